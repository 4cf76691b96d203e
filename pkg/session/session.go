package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/memory"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

var (
	ErrNotAuthenticated    = errors.New("session: not authenticated")
	ErrNoRenewalCredential = errors.New("session: no renewal credential")
	ErrRefreshFailed       = errors.New("session: refresh failed")
)

const (
	DefaultRefreshTimeout    = 15 * time.Second
	DefaultMaxRefreshRetries = 2
	DefaultRetryInterval     = 200 * time.Millisecond
)

// Config configures a Session. Only Client is required.
type Config struct {
	// Client talks to the issuing service. Its HTTPClient must NOT go
	// through this Session's transport.
	Client *authsdk.SDKClient

	// Store persists credentials (default: process memory).
	Store credstore.Store

	// Policy decides when an access token has expired.
	Policy jwtx.Policy

	// Base is the transport under the auth interceptor, used by
	// HTTPClient and profile fetches (default: http.DefaultTransport).
	Base http.RoundTripper

	// HTTPTimeout bounds each request made through HTTPClient (default: none).
	HTTPTimeout time.Duration

	// RefreshTimeout bounds a whole refresh exchange, retries included.
	RefreshTimeout time.Duration

	// MaxRefreshRetries is how many times a refresh is retried after a
	// network or 5xx failure. Negative disables retries.
	MaxRefreshRetries int

	// RetryInterval is the first backoff between refresh attempts.
	RetryInterval time.Duration

	Logger  *slog.Logger
	Metrics *Metrics
}

// Snapshot is a consistent read of the session for display.
type Snapshot struct {
	User        *authsdk.UserProfile
	AccessToken string
	State       State
}

// Session is the client-side auth lifecycle manager. It is safe for
// concurrent use.
type Session struct {
	client  *authsdk.SDKClient
	authed  *authsdk.SDKClient
	store   credstore.Store
	policy  jwtx.Policy
	logger  *slog.Logger
	metrics *Metrics

	transport      http.RoundTripper
	httpTimeout    time.Duration
	refreshTimeout time.Duration
	maxRetries     int
	retryInterval  time.Duration

	// writeMu serialises everything that writes credentials: refresh
	// exchanges, the write half of Login, Init's restore and Logout.
	writeMu sync.Mutex
	flight  singleflight.Group

	mu        sync.RWMutex
	access    string
	renewal   string
	user      *authsdk.UserProfile
	state     State
	listeners []func(State)
}

// New creates an Anonymous Session. Call Init to restore a stored one.
func New(cfg Config) (*Session, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("session: client required")
	}

	s := &Session{
		client:         cfg.Client,
		store:          cfg.Store,
		policy:         cfg.Policy,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		httpTimeout:    cfg.HTTPTimeout,
		refreshTimeout: cfg.RefreshTimeout,
		maxRetries:     cfg.MaxRefreshRetries,
		retryInterval:  cfg.RetryInterval,
		state:          Anonymous,
	}

	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.refreshTimeout <= 0 {
		s.refreshTimeout = DefaultRefreshTimeout
	}
	if s.maxRetries == 0 {
		s.maxRetries = DefaultMaxRefreshRetries
	} else if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.retryInterval <= 0 {
		s.retryInterval = DefaultRetryInterval
	}

	s.logger = s.logger.With("component", "session")
	s.transport = s.Transport(cfg.Base)
	s.authed = s.client.WithHTTPClient(s.HTTPClient())

	return s, nil
}

// ============================================================================
// Read surface
// ============================================================================

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	return s.State().SignedIn()
}

// User returns a copy of the signed-in user's profile, or nil.
func (s *Session) User() *authsdk.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfile(s.user)
}

// Snapshot returns the user, access token and state read together.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		User:        copyProfile(s.user),
		AccessToken: s.access,
		State:       s.state,
	}
}

// Subscribe registers fn to be called on every state change. fn runs on
// the goroutine that caused the change, possibly mid-refresh, so it must
// not block or call Login, Logout, Init or Refresh.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// HTTPClient returns a client whose requests go through the auth
// interceptor.
func (s *Session) HTTPClient() *http.Client {
	return &http.Client{
		Transport: s.transport,
		Timeout:   s.httpTimeout,
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Init restores a stored session. With nothing stored the session stays
// Anonymous. Otherwise the access token is refreshed if it has expired and
// the user's profile is fetched. A failed refresh tears the stored session
// down and is returned.
func (s *Session) Init(ctx context.Context) error {
	s.writeMu.Lock()
	creds, err := s.store.Load(ctx)
	if err != nil {
		s.writeMu.Unlock()
		if errors.Is(err, credstore.ErrNotFound) {
			s.logger.Debug("no stored session")
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	s.mu.Lock()
	s.access, s.renewal, s.user = creds.Access, creds.Renewal, nil
	changed := s.setStateLocked(Initializing)
	s.mu.Unlock()
	s.writeMu.Unlock()
	s.publish(changed)

	if !s.policy.Fresh(creds.Access) {
		if _, err := s.refreshFrom(ctx, creds.Access); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}

	user, err := s.ReloadProfile(ctx)
	if err != nil {
		// A 401 that survived a refresh has already logged us out. Anything
		// else (service down) keeps the tokens, signed in without a profile
		// until ReloadProfile succeeds.
		s.mu.Lock()
		var changed []State
		if s.state == Initializing && s.access != "" {
			changed = s.setStateLocked(Authenticated)
		}
		s.mu.Unlock()
		s.publish(changed)
		return fmt.Errorf("failed to load profile: %w", err)
	}

	s.logger.Info("session restored", "user", user.Username)
	return nil
}

// Login signs in with a username and password. On failure the session is
// left as it was and the service's error is returned.
func (s *Session) Login(ctx context.Context, username, password string) (*authsdk.UserProfile, error) {
	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	creds := credstore.Credentials{Access: resp.Access, Renewal: resp.Refresh}
	if err := s.store.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	user := resp.User

	s.mu.Lock()
	s.access, s.renewal, s.user = creds.Access, creds.Renewal, &user
	changed := s.setStateLocked(Authenticated)
	s.mu.Unlock()
	s.publish(changed)

	s.logger.Info("logged in", "user", user.Username)
	return copyProfile(&user), nil
}

// Register creates an account and returns it, username included. It never
// signs in, even if the service returns tokens.
func (s *Session) Register(ctx context.Context, req authsdk.RegisterRequest) (*authsdk.UserProfile, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered", "user", resp.User.Username)
	return &resp.User, nil
}

// Logout signs out. It waits for an in-flight refresh to settle, then
// clears memory and the store before telling the service to revoke the
// renewal token. Revocation is best effort, its errors are logged and
// dropped. Logging out twice is harmless.
func (s *Session) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	renewal := s.teardown(ctx)
	s.writeMu.Unlock()

	if renewal == "" {
		return nil
	}

	if err := s.client.Logout(ctx, renewal); err != nil {
		s.logger.Warn("logout call failed", "error", err)
	}
	return nil
}

// ReloadProfile refetches the signed-in user's profile.
func (s *Session) ReloadProfile(ctx context.Context) (*authsdk.UserProfile, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	claims, err := jwtx.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if claims.Subject() == "" {
		return nil, fmt.Errorf("access token has no subject: %w", jwtx.ErrMalformed)
	}

	profile, err := s.authed.GetProfile(ctx, claims.Subject())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.access == "" {
		// Logged out while the request was in flight
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	s.user = profile
	changed := s.setStateLocked(Authenticated)
	s.mu.Unlock()
	s.publish(changed)

	return copyProfile(profile), nil
}

// teardown clears credentials from memory and the store and returns the
// renewal token that was held. Caller holds writeMu.
func (s *Session) teardown(ctx context.Context) string {
	s.mu.Lock()
	renewal := s.renewal
	signedIn := s.access != "" || s.state != Anonymous
	s.access, s.renewal, s.user = "", "", nil
	var changed []State
	if signedIn {
		changed = s.setStateLocked(LoggedOut)
	}
	s.mu.Unlock()
	s.publish(changed)

	// Clear even when nothing was held in memory, Init may have failed
	// before loading.
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to clear credential store", "error", err)
	}

	s.mu.Lock()
	changed = nil
	if s.state == LoggedOut {
		changed = s.setStateLocked(Anonymous)
	}
	s.mu.Unlock()
	s.publish(changed)

	return renewal
}

// setStateLocked moves to state and returns it for publish, or nil if
// nothing changed. Caller holds mu.
func (s *Session) setStateLocked(state State) []State {
	if s.state == state {
		return nil
	}
	s.logger.Debug("state changed", "from", s.state.String(), "to", state.String())
	s.state = state
	s.metrics.transition(state)
	return []State{state}
}

// publish tells listeners about state changes. Called without mu held.
func (s *Session) publish(changed []State) {
	if len(changed) == 0 {
		return
	}

	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, state := range changed {
		for _, fn := range listeners {
			fn(state)
		}
	}
}

func copyProfile(p *authsdk.UserProfile) *authsdk.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
