package jwtx

import "time"

// Policy decides whether an access token still has life in it.
//
// With a zero Skew a token is expired once exp <= now, the exp instant
// itself counts as expired. A positive Skew makes tokens count as expired
// that much earlier, so a refresh happens before the server starts
// rejecting them.
type Policy struct {
	// Skew moves the expiry check forward by this much (default: 0).
	Skew time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Expired reports whether expiresAt is at or before now (+Skew).
func (p Policy) Expired(expiresAt time.Time) bool {
	return !expiresAt.After(p.now().Add(p.Skew))
}

// Fresh decodes the token and reports whether it can still be used. A token
// that can't be decoded, or has no exp, is never fresh.
func (p Policy) Fresh(token string) bool {
	_, ok := p.Inspect(token)
	return ok
}

// Inspect is Fresh but also hands back the decoded claims when they parse.
func (p Policy) Inspect(token string) (Claims, bool) {
	c, err := Decode(token)
	if err != nil {
		return Claims{}, false
	}
	return c, !p.Expired(c.Expiry())
}
