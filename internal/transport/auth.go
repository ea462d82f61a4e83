package transport

import (
	"net/http"
	"strings"

	"github.com/agentstation/scansync/pkg/errors"
)

// Authenticator applies a secret to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request, secret string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sends the secret as a Bearer token.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Bearer "+secret)
}

// HeaderAuth sends the secret verbatim in a custom header.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, secret string) {
	req.Header.Set(a.Header, secret)
}

// QueryAuth sends the secret as a query parameter.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, secret string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, secret)
	req.URL.RawQuery = query.Encode()
}

// ParseAuth resolves a configured scheme: "", "none", "bearer",
// "header:<Name>" or "query:<param>".
func ParseAuth(scheme string) (Authenticator, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(scheme), ":")
	switch strings.ToLower(kind) {
	case "", "none":
		return &NoAuth{}, nil
	case "bearer":
		return &BearerAuth{}, nil
	case "header":
		if arg == "" {
			return nil, errors.NewValidationError("auth", scheme, "header scheme needs a header name")
		}
		return &HeaderAuth{Header: arg}, nil
	case "query":
		if arg == "" {
			return nil, errors.NewValidationError("auth", scheme, "query scheme needs a parameter name")
		}
		return &QueryAuth{Param: arg}, nil
	default:
		return nil, errors.NewValidationError("auth", scheme, "unknown authentication scheme")
	}
}
