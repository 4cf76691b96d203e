package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport logs every outbound request and puts a request-scoped logger
// into the request context for the layers below it.
func Transport(base *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripper{base: base, next: next}
	}
}

type roundTripper struct {
	base *slog.Logger
	next http.RoundTripper
}

func (t roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	logger := t.base.With(
		"req_id", r.Header.Get("X-Request-ID"),
		"method", r.Method,
		"host", r.URL.Host,
		"path", r.URL.Path,
	)
	r = r.WithContext(WithContext(r.Context(), logger))

	resp, err := t.next.RoundTrip(r)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
