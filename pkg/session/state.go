package session

// State is the position of a Session in its lifecycle.
type State int

const (
	Anonymous State = iota
	Initializing
	Authenticated
	Refreshing
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// SignedIn reports whether a user is signed in. Refreshing counts: the
// user is the same, only their access token is being replaced.
func (s State) SignedIn() bool {
	return s == Authenticated || s == Refreshing
}
