package client

import (
	"fmt"
	"net/http"
	"strings"
)

// OutcomeKind is the classification of one API call attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the call produced a usable response.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeNotFound means the entity does not exist. Never retried.
	OutcomeNotFound

	// OutcomeRateLimited means the API throttled the call. Retried with linear backoff.
	OutcomeRateLimited

	// OutcomeRetryableError covers every other failure. Retried with a fixed delay.
	OutcomeRetryableError
)

// String returns the label used in logs, metrics and failure records.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeRetryableError:
		return "retryable_error"
	default:
		return "unknown"
	}
}

// Failure reasons produced by the classifier and the executor.
const (
	ReasonEmptyResponse      = "Empty response"
	ReasonNoData             = "No data in response"
	ReasonRateLimited        = "Rate limit exceeded"
	ReasonRateLimitExhausted = "Rate limit exceeded after all retries"
	ReasonNotFound           = "Profile not found"
	ReasonMaxRetries         = "Max retries exceeded"
)

// Outcome is a classified call result. The executor returns the terminal one.
type Outcome struct {
	Kind     OutcomeKind
	Reason   string
	Response *Response

	// Attempts is the number of calls made; set by the executor.
	Attempts int
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Retryable reports whether another attempt may change the result.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeRateLimited || o.Kind == OutcomeRetryableError
}

// EndpointKind tells the classifier which payload contract applies.
type EndpointKind int

const (
	// EndpointOverview is the mandatory lookup; it tolerates a missing payload here
	// and leaves that check to the caller.
	EndpointOverview EndpointKind = iota

	// EndpointCategory is an optional sub-lookup; a missing payload is a failure.
	EndpointCategory
)

// String returns the endpoint kind label.
func (k EndpointKind) String() string {
	if k == EndpointOverview {
		return "overview"
	}
	return "category"
}

// notFoundKeywords mark success=false messages that will never succeed on retry.
var notFoundKeywords = []string{
	"cannot be displayed",
	"doesn't exist",
	"not found",
	"invalid username",
	"profile not available",
	"does not exist",
}

// rateLimitSignatures are matched against transport error text.
var rateLimitSignatures = []string{"429", "too many requests"}

// classificationRule inspects a response and reports whether it decided the outcome.
type classificationRule struct {
	name  string
	apply func(resp *Response, kind EndpointKind) (Outcome, bool)
}

// classificationRules run in order; the first rule that matches wins.
var classificationRules = []classificationRule{
	{name: "empty", apply: classifyEmpty},
	{name: "error_field", apply: classifyErrorField},
	{name: "success_flag", apply: classifySuccessFlag},
	{name: "status_code", apply: classifyStatusCode},
	{name: "missing_data", apply: classifyMissingData},
}

// Classify turns a response or a transport error into an Outcome.
func Classify(resp *Response, err error, kind EndpointKind) Outcome {
	if err != nil {
		return classifyTransportError(err)
	}
	for _, rule := range classificationRules {
		if out, ok := rule.apply(resp, kind); ok {
			return out
		}
	}
	return Outcome{Kind: OutcomeSuccess, Response: resp}
}

func classifyEmpty(resp *Response, _ EndpointKind) (Outcome, bool) {
	if !resp.Empty() {
		return Outcome{}, false
	}
	return Outcome{Kind: OutcomeRetryableError, Reason: ReasonEmptyResponse, Response: resp}, true
}

func classifyErrorField(resp *Response, _ EndpointKind) (Outcome, bool) {
	if resp.Error == nil {
		return Outcome{}, false
	}
	return Outcome{
		Kind:     OutcomeRetryableError,
		Reason:   "API Error: " + resp.Error.Message,
		Response: resp,
	}, true
}

func classifySuccessFlag(resp *Response, _ EndpointKind) (Outcome, bool) {
	if !resp.Failed() {
		return Outcome{}, false
	}
	msg := resp.Message
	if msg == "" {
		msg = "Unknown error"
	}
	out := Outcome{Kind: OutcomeRetryableError, Reason: "Request failed: " + msg, Response: resp}
	if containsAny(strings.ToLower(msg), notFoundKeywords) {
		out.Kind = OutcomeNotFound
	}
	return out, true
}

func classifyStatusCode(resp *Response, _ EndpointKind) (Outcome, bool) {
	switch {
	case resp.Status == http.StatusTooManyRequests:
		return Outcome{Kind: OutcomeRateLimited, Reason: ReasonRateLimited, Response: resp}, true
	case resp.Status == http.StatusNotFound:
		return Outcome{Kind: OutcomeNotFound, Reason: ReasonNotFound, Response: resp}, true
	case resp.Status >= 400:
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.Status)
		}
		return Outcome{
			Kind:     OutcomeRetryableError,
			Reason:   fmt.Sprintf("HTTP Error %d: %s", resp.Status, msg),
			Response: resp,
		}, true
	default:
		return Outcome{}, false
	}
}

func classifyMissingData(resp *Response, kind EndpointKind) (Outcome, bool) {
	if kind == EndpointOverview || resp.HasData() {
		return Outcome{}, false
	}
	return Outcome{Kind: OutcomeRetryableError, Reason: ReasonNoData, Response: resp}, true
}

// classifyTransportError maps an error raised by the transport. The substring
// heuristic mirrors how the upstream SDK surfaces throttling.
func classifyTransportError(err error) Outcome {
	text := err.Error()
	if containsAny(strings.ToLower(text), rateLimitSignatures) {
		return Outcome{Kind: OutcomeRateLimited, Reason: ReasonRateLimited}
	}
	return Outcome{Kind: OutcomeRetryableError, Reason: text}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// CleanReason strips transport prefixes from a reason and truncates it to
// max runes for display.
func CleanReason(reason string, max int) string {
	for _, prefix := range []string{"Request failed: ", "API Error: ", "Client error"} {
		reason = strings.ReplaceAll(reason, prefix, "")
	}
	reason = strings.TrimSpace(reason)
	return Truncate(reason, max)
}

// Truncate shortens s to at most max runes. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
