// Package authtest runs a fake storefront issuing service for tests. It
// signs real HS256 access tokens, keeps renewal tokens in memory and can be
// told to misbehave (rotate, reject, fail or stall refreshes).
package authtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// PathEcho is a protected endpoint that reports what it received.
const PathEcho = "/api/echo/"

const DefaultAccessTTL = 5 * time.Minute

// Echo is the PathEcho response body.
type Echo struct {
	Method  string `json:"method"`
	Subject string `json:"subject"`
	Token   string `json:"token"`
	Body    string `json:"body"`
}

type account struct {
	password string
	profile  authsdk.UserProfile
}

// Server is a fake issuing service. Set the exported fields before the
// first request, use the methods for anything that changes mid-test.
type Server struct {
	*httptest.Server

	Secret    []byte
	AccessTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]*account // by username
	renewals      map[string]string   // renewal token -> user id
	hits          map[string]int
	authHeaders   []string
	rotate        bool
	refreshStatus int
	refreshFails  int
	failStatus    int
	refreshGate   chan struct{}
	logoutStatus  int
	rejectNext    int
	nextID        int
}

// NewServer starts a fake issuing service that is closed with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Secret:    []byte("authtest-secret"),
		AccessTTL: DefaultAccessTTL,
		accounts:  make(map[string]*account),
		renewals:  make(map[string]string),
		hits:      make(map[string]int),
		nextID:    100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+authsdk.PathLogin, s.handleLogin)
	mux.HandleFunc("POST "+authsdk.PathRegister, s.handleRegister)
	mux.HandleFunc("POST "+authsdk.PathRefresh, s.handleRefresh)
	mux.HandleFunc("POST "+authsdk.PathLogout, s.handleLogout)
	mux.Handle("GET /auth/users/{id}/", s.requireAuth(http.HandlerFunc(s.handleUser)))
	mux.Handle(PathEcho, s.requireAuth(http.HandlerFunc(s.handleEcho)))

	s.Server = httptest.NewServer(s.count(mux))
	t.Cleanup(s.Close)
	return s
}

// Client returns an SDK client pointed at the server.
func (s *Server) Client() *authsdk.SDKClient {
	return authsdk.NewSDKClient(s.URL)
}

// ============================================================================
// Setup
// ============================================================================

// AddUser registers an account directly. profile.ID must be set.
func (s *Server) AddUser(password string, profile authsdk.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[profile.Username] = &account{password: password, profile: profile}
}

// IssueAccess signs an access token for userID expiring at exp.
func (s *Server) IssueAccess(userID string, exp time.Time) string {
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        idx.New().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: jwtx.SubjectID(userID),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		panic(fmt.Sprintf("authtest: sign access token: %v", err))
	}
	return token
}

// IssueRenewal creates a renewal token the server will accept for userID.
func (s *Server) IssueRenewal(userID string) string {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		panic(fmt.Sprintf("authtest: generate renewal token: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewals[token] = userID
	return token
}

// RenewalValid reports whether the server would still accept token.
func (s *Server) RenewalValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.renewals[token]
	return ok
}

// RotateRenewals makes every refresh also issue a new renewal token and
// revoke the old one.
func (s *Server) RotateRenewals(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate = on
}

// RejectRefresh makes refreshes answer status until reset with 0.
func (s *Server) RejectRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// FailRefreshes makes the next n refreshes answer status, a transient
// failure such as 503 or 429.
func (s *Server) FailRefreshes(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFails = n
	s.failStatus = status
}

// HoldRefreshes makes refreshes wait until the returned func is called.
func (s *Server) HoldRefreshes() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailLogout makes logout answer status until reset with 0.
func (s *Server) FailLogout(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutStatus = status
}

// RejectNext makes the next n protected requests answer 401 no matter
// what token they carry, as if the token had been revoked server side.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = n
}

// Hits returns how many requests path has received.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// AuthHeaders returns the Authorization header of every protected request
// in arrival order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type subjectKey struct{}

// requireAuth verifies the bearer token, the real service does the same
// on every protected call.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, header)
		reject := s.rejectNext > 0
		if reject {
			s.rejectNext--
		}
		s.mu.Unlock()

		if reject {
			writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
			return
		}

		raw := httpx.BearerToken(r.Header)
		if raw == "" {
			writeDetail(w, http.StatusUnauthorized, "not_authenticated", "Authentication credentials were not provided.")
			return
		}

		var claims jwtx.Claims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, claims.Subject()))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "", "Malformed request.")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()

	if !ok || acct.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "", "No active account found with the given credentials")
		return
	}

	id := string(acct.profile.ID)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		TokenPair: authsdk.TokenPair{
			Access:  s.IssueAccess(id, time.Now().Add(s.AccessTTL)),
			Refresh: s.IssueRenewal(id),
		},
		User: acct.profile,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "", "Malformed request.")
		return
	}

	if errs := req.Validate(); errs != nil {
		fields := make(map[string][]string, len(errs))
		for field, msg := range errs {
			fields[field] = []string{msg}
		}
		httpx.WriteJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.mu.Lock()
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.profile.Email, req.Email) {
			s.mu.Unlock()
			httpx.WriteJSON(w, http.StatusBadRequest, map[string][]string{
				"email": {"user with this email already exists."},
			})
			return
		}
	}

	s.nextID++
	local, _, _ := strings.Cut(req.Email, "@")
	profile := authsdk.UserProfile{
		ID:          jwtx.SubjectID(fmt.Sprint(s.nextID)),
		Username:    fmt.Sprintf("%s_%d", strings.ToLower(local), s.nextID),
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        "customer",
		Gender:      req.Gender,
		PhoneNumber: req.PhoneNumber,
	}
	s.accounts[profile.Username] = &account{password: req.Password, profile: profile}
	s.mu.Unlock()

	id := string(profile.ID)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		User: profile,
		Tokens: &authsdk.TokenPair{
			Access:  s.IssueAccess(id, time.Now().Add(s.AccessTTL)),
			Refresh: s.IssueRenewal(id),
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "", "Malformed request.")
		return
	}

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	status := s.refreshStatus
	fail, failStatus := s.refreshFails > 0, s.failStatus
	if fail {
		s.refreshFails--
	}
	userID, ok := s.renewals[req.Refresh]
	rotate := s.rotate
	if ok && rotate {
		delete(s.renewals, req.Refresh)
	}
	s.mu.Unlock()

	switch {
	case status != 0:
		writeDetail(w, status, "token_not_valid", "Token is invalid or expired")
		return
	case fail:
		writeDetail(w, failStatus, "", "Service temporarily unavailable, try again later.")
		return
	case !ok:
		writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
		return
	}

	resp := authsdk.RefreshResponse{Access: s.IssueAccess(userID, time.Now().Add(s.AccessTTL))}
	if rotate {
		resp.Refresh = s.IssueRenewal(userID)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "", "Malformed request.")
		return
	}

	s.mu.Lock()
	status := s.logoutStatus
	if status == 0 {
		delete(s.renewals, req.Refresh)
	}
	s.mu.Unlock()

	if status != 0 {
		writeDetail(w, status, "", http.StatusText(status))
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusResetContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != subjectFrom(r) {
		writeDetail(w, http.StatusForbidden, "", "You do not have permission to perform this action.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if string(acct.profile.ID) == id {
			httpx.WriteJSON(w, http.StatusOK, acct.profile)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "", "Not found.")
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	httpx.WriteJSON(w, http.StatusOK, Echo{
		Method:  r.Method,
		Subject: subjectFrom(r),
		Token:   httpx.BearerToken(r.Header),
		Body:    string(body),
	})
}

func writeDetail(w http.ResponseWriter, status int, code, detail string) {
	body := map[string]string{"detail": detail}
	if code != "" {
		body["code"] = code
	}
	httpx.WriteJSON(w, status, body)
}

func subjectFrom(r *http.Request) string {
	sub, _ := r.Context().Value(subjectKey{}).(string)
	return sub
}
