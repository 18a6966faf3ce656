package observability

import (
	"net"
	"net/http"
	"strings"
)

// RequestIDFromRequest returns the caller-supplied request id, if any.
func RequestIDFromRequest(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return r.Header.Get("X-Correlation-Id")
}

// IPFromRequest resolves the client address, honouring the first
// X-Forwarded-For hop set by the edge proxy.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
