package authsdk

import (
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// ============================================================================
// Credential Types
// ============================================================================

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is an access token with the renewal (refresh) token that can
// mint more of them.
type TokenPair struct {
	// Access is the short-lived JWT sent as "Authorization: Bearer <access>"
	Access string `json:"access"`

	// Refresh is the long-lived opaque token exchanged for new access tokens
	Refresh string `json:"refresh"`
}

// LoginResponse is returned from POST /auth/login/.
type LoginResponse struct {
	TokenPair

	User UserProfile `json:"user"`
}

// RefreshRequest is the body of both POST /auth/token/refresh/ and
// POST /auth/logout/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is returned from POST /auth/token/refresh/. Refresh is
// only set when the service rotates renewal tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ============================================================================
// User Types
// ============================================================================

// UserProfile is the user record as the issuing service returns it.
type UserProfile struct {
	ID          jwtx.SubjectID `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Role        string         `json:"role,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
}

// RegisterRequest is the body of POST /auth/register/. There is no username
// field, the service assigns one.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// RegisterResponse is returned from POST /auth/register/. Some deployments
// include tokens, registering never signs the caller in so they are
// ignored by the session.
type RegisterResponse struct {
	User   UserProfile `json:"user"`
	Tokens *TokenPair  `json:"tokens,omitempty"`
}

// ============================================================================
// Error Types
// ============================================================================

// errorBody covers the error shapes the service emits: {"detail": ...},
// {"code": ..., "detail": ...} and {"error": ..., "error_description": ...}.
// Field errors ({"email": ["..."]}) are picked up separately.
type errorBody struct {
	Detail           string `json:"detail"`
	Code             string `json:"code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
