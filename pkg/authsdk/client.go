package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Issuing-service endpoint paths.
const (
	PathLogin    = "/auth/login/"
	PathRegister = "/auth/register/"
	PathRefresh  = "/auth/token/refresh/"
	PathLogout   = "/auth/logout/"
	pathUsers    = "/auth/users/"
)

// CredentialPaths are the endpoints that hand out credentials. They must
// never require (or be given) an existing access token.
var CredentialPaths = []string{PathLogin, PathRegister, PathRefresh}

// SDKClient is a thin client for the storefront's issuing service. It does
// no token management of its own: hand it an HTTPClient whose transport
// attaches credentials (see the session package) for authenticated calls.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client with a plain HTTP client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHTTPClient returns a copy of c that sends requests through hc.
func (c *SDKClient) WithHTTPClient(hc *http.Client) *SDKClient {
	return &SDKClient{BaseURL: c.BaseURL, HTTPClient: hc}
}

// IsCredentialPath reports whether path is one of CredentialPaths.
func IsCredentialPath(path string) bool {
	for _, p := range CredentialPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
