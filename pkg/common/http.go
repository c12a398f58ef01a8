package common

import (
	_ "embed"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// Version returns the release version embedded at build time.
func Version() string {
	return strings.TrimSpace(version)
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper by stamping the user agent on a clone
// of the request.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "HydroQuebecBridge/" + Version(),
		},
		Timeout: timeout,
	}
}

// SessionClient is like HTTPClient but keeps cookies between requests so a
// portal login survives across calls.
func SessionClient(timeout time.Duration) *http.Client {
	c := HTTPClient(timeout)
	// cookiejar.New only fails when given a broken PublicSuffixList
	jar, _ := cookiejar.New(nil)
	c.Jar = jar
	return c
}
