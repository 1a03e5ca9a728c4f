package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "endpoint no params",
			key:  Key{Endpoint: "/api/v1/profile/overview"},
			want: "profile:api/v1/profile/overview",
		},
		{
			name: "username lookup",
			key: Key{
				Endpoint:    "/api/v1/profile/overview",
				QueryParams: url.Values{"username": []string{"alice"}},
			},
			want: "profile:api/v1/profile/overview:username=alice",
		},
		{
			name: "multiple params are sorted",
			key: Key{
				Endpoint: "/api/v1/profile/skills/",
				QueryParams: url.Values{
					"urn":  []string{"ACoAAB"},
					"lang": []string{"en"},
				},
			},
			want: "profile:api/v1/profile/skills:lang=en:urn=ACoAAB",
		},
		{
			name: "empty endpoint",
			key:  Key{QueryParams: url.Values{"username": []string{"bob"}}},
			want: "profile:username=bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Endpoint: "/api/v1/profile/education",
		QueryParams: url.Values{
			"urn": []string{"x"},
			"b":   []string{"2"},
			"a":   []string{"1"},
		},
	}
	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
