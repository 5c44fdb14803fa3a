package openaicompat

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkraev/llmprobe/pkg/api"
)

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "openai envelope",
			body: `{"error":{"message":"model not found","type":"invalid_request_error","code":null}}`,
			want: "model not found",
		},
		{
			name: "bare string error",
			body: `{"error":"upstream timeout"}`,
			want: "upstream timeout",
		},
		{
			name: "top-level message",
			body: `{"message":"service warming up"}`,
			want: "service warming up",
		},
		{
			name: "fastapi detail",
			body: `{"detail":"Not authenticated"}`,
			want: "Not authenticated",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
		{
			name: "not json",
			body: "<html>502 Bad Gateway</html>",
			want: "",
		},
		{
			name: "numeric error code only",
			body: `{"error":{"code":500}}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractErrorMessage(strings.NewReader(tt.body))
			if got != tt.want {
				t.Errorf("ExtractErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantType api.ErrorType
	}{
		{http.StatusBadRequest, `{"error":{"message":"bad"}}`, api.ErrorTypeInvalidRequest},
		{http.StatusUnauthorized, ``, api.ErrorTypeAuthentication},
		{http.StatusForbidden, ``, api.ErrorTypeAuthentication},
		{http.StatusNotFound, ``, api.ErrorTypeNotFound},
		{http.StatusTooManyRequests, ``, api.ErrorTypeRateLimit},
		{http.StatusInternalServerError, ``, api.ErrorTypeServerError},
		{http.StatusBadGateway, ``, api.ErrorTypeServerError},
		{http.StatusTeapot, ``, api.ErrorTypeServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		rec.WriteHeader(tt.status)
		rec.WriteString(tt.body)

		apiErr := MapHTTPError(rec.Result())
		if apiErr.Type != tt.wantType {
			t.Errorf("status %d: type = %q, want %q", tt.status, apiErr.Type, tt.wantType)
		}
		if apiErr.Message == "" {
			t.Errorf("status %d: message must not be empty", tt.status)
		}
	}
}

func TestMapNetworkError(t *testing.T) {
	err := MapNetworkError(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
	if !api.IsUnavailable(err) {
		t.Errorf("expected unavailable, got %v", err)
	}
}
