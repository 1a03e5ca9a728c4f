package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached API response.
type Key struct {
	// Endpoint is the API path (e.g. "/api/v1/profile/overview").
	Endpoint string

	// QueryParams are the lookup parameters (e.g. {"username": "alice"}).
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: profile:endpoint:query1=val1:query2=val2
//
// Example:
//
//	profile:api/v1/profile/overview:username=alice
func (k Key) String() string {
	parts := []string{"profile"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism. Identifiers are case-insensitive, values are not
	// normalised here because urns are case-sensitive.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
