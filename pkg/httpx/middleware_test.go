package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string

	tag := func(name string) httpx.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name+">")
				resp, err := next.RoundTrip(r)
				order = append(order, "<"+name)
				return resp, err
			})
		}
	}

	base := httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := httpx.Chain(base, tag("a"), nil, tag("b"))
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"a>", "b>", "base", "<b", "<a"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	base := httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(httpx.HeaderRequestID)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	rt := httpx.Chain(base, httpx.RequestID())

	t.Run("generates a ulid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)

		_, err = idx.Parse(seen)
		require.NoError(t, err)
		require.Empty(t, req.Header.Get(httpx.HeaderRequestID), "caller request must not be mutated")
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(httpx.HeaderRequestID, "abc")
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.Equal(t, "abc", seen)
	})
}

func TestBearerToken(t *testing.T) {
	h := http.Header{}
	require.Empty(t, httpx.BearerToken(h))

	h.Set("Authorization", "Bearer abc.def")
	require.Equal(t, "abc.def", httpx.BearerToken(h))

	h.Set("Authorization", "Basic Zm9vOmJhcg==")
	require.Empty(t, httpx.BearerToken(h))
}
