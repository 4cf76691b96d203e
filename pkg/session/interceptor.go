package session

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
)

type retriedKey struct{}

func retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Transport wraps next with the auth interceptor. A nil next means
// http.DefaultTransport.
//
// Requests to the login, register and refresh endpoints pass through
// untouched. Everything else gets the current access token, refreshed
// first if it has expired. A 401 response triggers one refresh and one
// replay of the request; if the refresh fails the original 401 is
// returned and the session is logged out.
func (s *Session) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{s: s, next: next}
}

type transport struct {
	s    *Session
	next http.RoundTripper
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if authsdk.IsCredentialPath(r.URL.Path) {
		return t.next.RoundTrip(r)
	}

	token := t.s.AccessToken()
	if token == "" {
		return t.next.RoundTrip(r)
	}

	if !t.s.policy.Fresh(token) {
		fresh, err := t.s.refreshFrom(r.Context(), token)
		if err != nil {
			t.s.logger.Debug("sending request unauthenticated", "path", r.URL.Path, "error", err)
			req := r.Clone(r.Context())
			req.Header.Del("Authorization")
			return t.next.RoundTrip(req)
		}
		token = fresh
	}

	// RoundTrippers must not mutate the caller's request
	req := r.Clone(r.Context())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || retried(r.Context()) {
		return resp, err
	}

	return t.retry(r, resp, token)
}

// retry handles a 401 for a request that hasn't been retried yet.
func (t *transport) retry(r *http.Request, unauthorized *http.Response, used string) (*http.Response, error) {
	ctx := r.Context()

	if r.Body != nil && r.Body != http.NoBody && r.GetBody == nil {
		t.s.metrics.retry(retryUnreplayable)
		return unauthorized, nil
	}

	if _, err := t.s.refreshFrom(ctx, used); err != nil {
		if ctx.Err() != nil {
			// The caller gave up, the exchange carries on without it
			return unauthorized, nil
		}
		t.s.metrics.retry(retryRefreshFailed)
		if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrNoRenewalCredential) {
			_ = t.s.Logout(context.WithoutCancel(ctx))
		}
		return unauthorized, nil
	}

	replay := r.Clone(context.WithValue(ctx, retriedKey{}, true))
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return unauthorized, nil
		}
		replay.Body = body
	}

	_, _ = io.Copy(io.Discard, unauthorized.Body)
	_ = unauthorized.Body.Close()

	t.s.metrics.retry(retryReplayed)
	return t.RoundTrip(replay)
}
