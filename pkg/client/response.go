package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape names the response variant returned by the remote profile API.
type Shape int

const (
	// ShapeEmpty is an absent or field-less response.
	ShapeEmpty Shape = iota

	// ShapeError carries an explicit error field: {"error": "..."} or {"error": {"message": "..."}}.
	ShapeError

	// ShapeFailure carries success=false: {"success": false, "message": "..."}.
	ShapeFailure

	// ShapeStatus carries an HTTP-like status: {"status": 429, "message": "..."}.
	ShapeStatus

	// ShapeData carries a payload: {"data": ...}.
	ShapeData

	// ShapeOther is a non-empty response matching none of the known shapes.
	ShapeOther
)

// String returns the shape name used in logs and metrics.
func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeError:
		return "error"
	case ShapeFailure:
		return "failure"
	case ShapeStatus:
		return "status"
	case ShapeData:
		return "data"
	default:
		return "other"
	}
}

// ErrorPayload is the value of the "error" field, which the API sends either
// as a bare string or as an object with a "message" member.
type ErrorPayload struct {
	Message string
}

// UnmarshalJSON accepts both the string and the object form.
func (p *ErrorPayload) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Message = s
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		// Any other JSON value is kept verbatim.
		p.Message = string(bytes.TrimSpace(b))
		return nil
	}
	if raw, ok := obj["message"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			p.Message = msg
			return nil
		}
	}
	p.Message = string(bytes.TrimSpace(b))
	return nil
}

// MarshalJSON writes the payload back in its string form.
func (p ErrorPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Message)
}

// Response is one decoded API response.
type Response struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Status  int             `json:"status,omitempty"`
}

// DecodeResponse parses a raw body. An empty body or a JSON null yields an
// empty Response.
func DecodeResponse(body []byte) (*Response, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return &Response{}, nil
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// Empty reports whether the response is absent or carries no fields.
func (r *Response) Empty() bool {
	return r == nil ||
		(len(r.Data) == 0 && r.Error == nil && r.Success == nil && r.Message == "" && r.Status == 0)
}

// HasData reports whether a non-null payload is present.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Failed reports whether the response carries success=false.
func (r *Response) Failed() bool {
	return r != nil && r.Success != nil && !*r.Success
}

// Shape classifies the response variant by field presence, using the same
// priority as the classification rules.
func (r *Response) Shape() Shape {
	switch {
	case r.Empty():
		return ShapeEmpty
	case r.Error != nil:
		return ShapeError
	case r.Failed():
		return ShapeFailure
	case r.Status != 0:
		return ShapeStatus
	case r.HasData():
		return ShapeData
	default:
		return ShapeOther
	}
}

// DecodeData unmarshals the payload into v.
func (r *Response) DecodeData(v any) error {
	if !r.HasData() {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
