/*
Package authsdk is a thin client for the storefront's issuing service.

# Overview

SDKClient wraps the five endpoints the storefront needs:

  - Login: POST /auth/login/ exchanges credentials for a token pair and profile
  - Register: POST /auth/register/ creates an account, without signing in
  - Refresh: POST /auth/token/refresh/ exchanges a renewal token for an access token
  - Logout: POST /auth/logout/ revokes a renewal token
  - GetProfile: GET /auth/users/{id}/ fetches a user profile

SDKClient holds no credentials. Token storage, expiry checks and refresh
are the session package's job:

	client := authsdk.NewSDKClient("https://api.example.com")

	resp, err := client.Login(ctx, "alice", "secret")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) {
			fmt.Println(apiErr.Detail)
		}
		return err
	}

For authenticated calls, give the client an HTTP client whose transport
attaches the bearer token:

	authed := client.WithHTTPClient(sess.HTTPClient())
	profile, err := authed.GetProfile(ctx, "42")

# Error Handling

Every non-2xx response becomes an *APIError carrying the status, the
service's message and any per-field validation messages. Transport
failures are returned wrapped, as-is.
*/
package authsdk
