package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var (
	ErrEmptyAccessToken = errors.New("authsdk: response carried no access token")
	ErrEmptyRefresh     = errors.New("authsdk: renewal token required")
)

// Login exchanges a username and password for a token pair and the user's
// profile. A rejected login comes back as an *APIError.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, PathLogin, LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	if out.Access == "" || out.Refresh == "" {
		return nil, ErrEmptyAccessToken
	}
	return &out, nil
}

// Register creates an account. It does not sign the caller in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, PathRegister, req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a renewal token for a new access token.
func (c *SDKClient) Refresh(ctx context.Context, refresh string) (*RefreshResponse, error) {
	if refresh == "" {
		return nil, ErrEmptyRefresh
	}

	resp, err := c.doJSON(ctx, http.MethodPost, PathRefresh, RefreshRequest{Refresh: refresh})
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	if out.Access == "" {
		return nil, ErrEmptyAccessToken
	}
	return &out, nil
}

// Logout asks the service to revoke the renewal token.
func (c *SDKClient) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		return ErrEmptyRefresh
	}

	resp, err := c.doJSON(ctx, http.MethodPost, PathLogout, RefreshRequest{Refresh: refresh})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// GetProfile fetches a user's profile. This is an authenticated call, so
// c.HTTPClient must attach credentials.
func (c *SDKClient) GetProfile(ctx context.Context, id string) (*UserProfile, error) {
	if id == "" {
		return nil, fmt.Errorf("authsdk: user id required")
	}

	resp, err := c.doJSON(ctx, http.MethodGet, pathUsers+url.PathEscape(id)+"/", nil)
	if err != nil {
		return nil, err
	}

	var out UserProfile
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
