package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
)

const refreshKey = "refresh"

// Refresh exchanges the renewal token for a new access token now, whether
// or not the current one has expired.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	return s.refreshFrom(ctx, s.AccessToken())
}

// refreshFrom gets a token to replace stale. Concurrent callers share a
// single exchange and all see its result. If stale has already been
// replaced by a fresh token, that token is returned without an exchange.
//
// The exchange itself runs detached from ctx: a caller that gives up
// stops waiting, the exchange carries on for everyone else.
func (s *Session) refreshFrom(ctx context.Context, stale string) (string, error) {
	ch := s.flight.DoChan(refreshKey, func() (any, error) {
		return s.exchange(stale)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.joined()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// exchange performs one refresh on behalf of every caller waiting in
// refreshFrom.
func (s *Session) exchange(stale string) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	access, renewal := s.access, s.renewal
	if access != "" && access != stale && s.policy.Fresh(access) {
		s.mu.Unlock()
		return access, nil
	}
	if renewal == "" {
		s.mu.Unlock()
		return "", ErrNoRenewalCredential
	}
	var changed []State
	if s.state == Authenticated {
		changed = s.setStateLocked(Refreshing)
	}
	s.mu.Unlock()
	s.publish(changed)

	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	logger := s.logger.With("renewal_fp", cryptox.Fingerprint(renewal))

	resp, err := s.exchangeWithRetry(ctx, renewal)
	if err != nil {
		s.metrics.exchange(outcomeFailure)
		logger.Warn("refresh failed, logging out", "error", err)
		s.teardown(ctx)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	creds := credstore.Credentials{Access: resp.Access, Renewal: renewal}
	outcome := outcomeSuccess
	if resp.Refresh != "" && resp.Refresh != renewal {
		creds.Renewal = resp.Refresh
		outcome = outcomeRotated
	}
	if err := s.store.Save(ctx, creds); err != nil {
		// The new pair is still good for this process
		logger.Warn("failed to persist refreshed credentials", "error", err)
	}

	s.mu.Lock()
	s.access, s.renewal = creds.Access, creds.Renewal
	changed = nil
	if s.state == Refreshing || s.state == Initializing {
		changed = s.setStateLocked(Authenticated)
	}
	s.mu.Unlock()
	s.publish(changed)

	s.metrics.exchange(outcome)
	logger.Info("access token refreshed", "rotated", outcome == outcomeRotated)
	return creds.Access, nil
}

// exchangeWithRetry calls the refresh endpoint, retrying network and 5xx
// failures with exponential backoff. A 4xx means the renewal token was
// rejected and is never retried.
func (s *Session) exchangeWithRetry(ctx context.Context, renewal string) (*authsdk.RefreshResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)

	return backoff.RetryNotifyWithData(func() (*authsdk.RefreshResponse, error) {
		resp, err := s.client.Refresh(ctx, renewal)
		if err != nil && authsdk.Permanent(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, policy, func(err error, wait time.Duration) {
		s.metrics.exchange(outcomeRetry)
		s.logger.Debug("refresh attempt failed, retrying", "error", err, "wait", wait)
	})
}
