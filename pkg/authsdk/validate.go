package authsdk

import (
	"net/mail"
	"strings"
)

const requiredReason = "required"

// Validate catches obviously broken registration requests before they go
// over the wire. The service still has the final word (duplicate email,
// weak password). Returns nil when nothing is wrong.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)

	switch email := strings.TrimSpace(r.Email); {
	case email == "":
		errs["email"] = requiredReason
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			errs["email"] = "not a valid email address"
		}
	}

	if r.Password == "" {
		errs["password"] = requiredReason
	}
	if strings.TrimSpace(r.FirstName) == "" {
		errs["first_name"] = requiredReason
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs["last_name"] = requiredReason
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
