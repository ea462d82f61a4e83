package transport

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/pkg/errors"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-secret")

	// Should not have any authentication headers
	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-secret")

	authHeader := req.Header.Get("Authorization")
	expected := "Bearer test-secret"
	if authHeader != expected {
		t.Errorf("Expected Authorization header '%s', got '%s'", expected, authHeader)
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	auth := &HeaderAuth{Header: "x-api-key"}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-secret")

	headerValue := req.Header.Get("x-api-key")
	if headerValue != "test-secret" {
		t.Errorf("Expected x-api-key header 'test-secret', got '%s'", headerValue)
	}

	// Should not have Authorization header
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "key"}

	// Test with valid URL
	reqURL, _ := url.Parse("https://example.com/api/models")
	req := &http.Request{
		URL:    reqURL,
		Header: make(http.Header),
	}

	auth.Apply(req, "test-secret")

	// Check that the query parameter was added
	if req.URL.Query().Get("key") != "test-secret" {
		t.Errorf("Expected query param 'key=test-secret', got '%s'", req.URL.RawQuery)
	}

	// Test with existing query parameters
	reqURL2, _ := url.Parse("https://example.com/api/models?existing=value")
	req2 := &http.Request{
		URL:    reqURL2,
		Header: make(http.Header),
	}

	auth.Apply(req2, "test-secret")

	query := req2.URL.Query()
	if query.Get("key") != "test-secret" {
		t.Errorf("Expected query param 'key=test-secret', got '%s'", query.Get("key"))
	}
	if query.Get("existing") != "value" {
		t.Errorf("Expected existing param to be preserved, got '%s'", query.Get("existing"))
	}

	// Test with nil URL (should not panic)
	req3 := &http.Request{
		URL:    nil,
		Header: make(http.Header),
	}

	auth.Apply(req3, "test-secret")
	// Should not panic and should do nothing
}

// TestParseAuth tests resolving configured authentication schemes.
func TestParseAuth(t *testing.T) {
	tests := []struct {
		scheme string
		want   Authenticator
	}{
		{"", &NoAuth{}},
		{"none", &NoAuth{}},
		{"Bearer", &BearerAuth{}},
		{"header:X-Api-Key", &HeaderAuth{Header: "X-Api-Key"}},
		{"query:token", &QueryAuth{Param: "token"}},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			got, err := ParseAuth(tt.scheme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"header", "query:", "digest"} {
		_, err := ParseAuth(bad)
		assert.True(t, errors.IsValidationError(err), bad)
	}
}
