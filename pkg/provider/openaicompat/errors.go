package openaicompat

import (
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/mkraev/llmprobe/pkg/api"
)

// MapHTTPError converts a non-2xx HTTP response into an APIError, extracting
// a descriptive message from the error body when one is present.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend rejected credentials"
		}
		return api.NewAuthenticationError(message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend resource not found"
		}
		return api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewRateLimitError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		}
		return api.NewServerError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewServerError(message)
	}
}

// MapNetworkError converts a network-level error (connection refused,
// timeout, DNS failure) into an unavailable APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewUnavailableError(fmt.Sprintf("backend unreachable: %s", err.Error()))
}

// ExtractErrorMessage pulls a human-readable message out of an error body.
// Providers disagree on the envelope: OpenAI nests it under error.message,
// some gateways return error as a bare string, others use a top-level
// message or detail field. gjson lets us probe the variants without a
// struct per provider.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if v := gjson.GetBytes(data, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}

	return ""
}
