/*
Package session keeps a storefront client signed in.

A Session owns the access token (short-lived JWT) and the renewal token
(long-lived, opaque) for one issuing service. It persists them through a
credstore.Store, keeps the access token fresh for any number of concurrent
API calls, and tears itself down when renewal is no longer possible.

# Lifecycle

	Anonymous      --Login-------------> Authenticated
	Anonymous      --Init, stored------> Initializing --token fresh-----> Authenticated
	Initializing   --renewal rejected--> LoggedOut    --------------------> Anonymous
	Authenticated  --token expired-----> Refreshing   --ok--------------> Authenticated
	Refreshing     --renewal rejected--> LoggedOut    --------------------> Anonymous
	Authenticated  --Logout------------> LoggedOut    --store cleared-----> Anonymous

Init leaves Initializing for Authenticated even when the profile can't be
fetched; User stays nil until ReloadProfile succeeds.

# Making calls

Every authenticated call goes through the Session's transport:

	sess, err := session.New(session.Config{Client: authsdk.NewSDKClient(apiURL), Store: store})
	...
	resp, err := sess.HTTPClient().Get(apiURL + "/orders/")

The transport attaches "Authorization: Bearer <access>", refreshing first
if the token has expired. A 401 triggers one refresh and one replay of
the request. Concurrent refreshes collapse into one exchange with the
issuing service, and every waiter sees the same outcome.
*/
package session
