package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/idx"
)

// Middleware wraps an outbound transport. It is the client-side mirror of
// the usual func(http.Handler) http.Handler server middleware.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain builds a transport from base and an ordered list of middlewares.
// mws[0] is outermost: it sees the request first and the response last.
// A nil base means http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			rt = mws[i](rt)
		}
	}
	return rt
}

const HeaderRequestID = "X-Request-ID"

// RequestID tags every outbound request with an X-Request-ID unless the
// caller already set one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}

			// RoundTrippers must not mutate the caller's request
			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, idx.New().String())
			return next.RoundTrip(r)
		})
	}
}
