// Package client builds the shared HTTP client used to forward requests to
// the upstream generative-language API.
package client

import (
	"crypto/tls"
	"net/http"
	"time"
)

// New builds the outbound client used for every upstream forward. HTTP/2 is
// disabled, matching the transport shape the wider relay stack uses to avoid
// stream-level errors against upstreams that misbehave under HTTP/2
// multiplexing. timeout is the single total-deadline applied to the whole
// request, including reading a streamed body (§5 of the design).
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		TLSNextProto: make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
