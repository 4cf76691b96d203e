package jwtx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrMissingExpiry = errors.New("jwtx: token has no exp claim")
)

// Claims are the access-token claims the client cares about. The issuing
// service may put more in there, we only read what we need.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the issuing service's primary key for the user. Some
	// deployments put it in "user_id" instead of "sub".
	UserID SubjectID `json:"user_id,omitempty"`

	// Username for the authenticated user
	Username string `json:"username,omitempty"`
}

// Subject returns the user identifier, preferring "user_id" over "sub".
func (c Claims) Subject() string {
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.RegisteredClaims.Subject
}

// Expiry returns the exp claim, or the zero time if it's missing.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// SubjectID accepts both `"user_id": 42` and `"user_id": "42"`.
type SubjectID string

func (s *SubjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SubjectID(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*s = SubjectID(num.String())
	return nil
}

var parser = jwt.NewParser()

// Decode reads the claims out of a token WITHOUT checking the signature.
// The issuing service verifies tokens on every call, the client only needs
// to know when to refresh and who it is.
func Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMalformed
	}

	var c Claims
	if _, _, err := parser.ParseUnverified(token, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if c.ExpiresAt == nil {
		return Claims{}, ErrMissingExpiry
	}

	return c, nil
}
