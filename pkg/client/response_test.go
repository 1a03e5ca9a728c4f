package client

import (
	"testing"
)

func TestDecodeResponse_Shapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantShape   Shape
		wantMessage string
	}{
		{"empty body", "", ShapeEmpty, ""},
		{"json null", "null", ShapeEmpty, ""},
		{"empty object", "{}", ShapeEmpty, ""},
		{"error string", `{"error":"bad key"}`, ShapeError, ""},
		{"error object", `{"error":{"message":"bad key","code":1}}`, ShapeError, ""},
		{"success false", `{"success":false,"message":"not found"}`, ShapeFailure, "not found"},
		{"status", `{"status":429,"message":"slow"}`, ShapeStatus, "slow"},
		{"data", `{"data":{"urn":"x"}}`, ShapeData, ""},
		{"success true only", `{"success":true}`, ShapeOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeResponse() error = %v", err)
			}
			if got := resp.Shape(); got != tt.wantShape {
				t.Errorf("Shape() = %v, want %v", got, tt.wantShape)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", resp.Message, tt.wantMessage)
			}
		})
	}
}

func TestErrorPayload_Forms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"error":"bad key"}`, "bad key"},
		{"object with message", `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"object without message", `{"error":{"code":7}}`, `{"code":7}`},
		{"number", `{"error":42}`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeResponse() error = %v", err)
			}
			if resp.Error == nil {
				t.Fatal("Error should be set")
			}
			if resp.Error.Message != tt.want {
				t.Errorf("Error.Message = %q, want %q", resp.Error.Message, tt.want)
			}
		})
	}
}

func TestDecodeResponse_Invalid(t *testing.T) {
	if _, err := DecodeResponse([]byte("<html>oops</html>")); err == nil {
		t.Error("DecodeResponse() should fail on non-JSON bodies")
	}
}

func TestResponse_DecodeData(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"data":{"urn":"abc","name":"Dave"}}`))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}

	var payload map[string]any
	if err := resp.DecodeData(&payload); err != nil {
		t.Fatalf("DecodeData() error = %v", err)
	}
	if payload["urn"] != "abc" {
		t.Errorf("urn = %v, want abc", payload["urn"])
	}

	empty := &Response{Message: "x"}
	if err := empty.DecodeData(&payload); err == nil {
		t.Error("DecodeData() should fail without data")
	}
}
