package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ============================================================================
// APIError - error response from the issuing service
// ============================================================================

// APIError is a non-2xx response from the issuing service. Login and
// registration failures come back as one of these, untouched, so the caller
// can show the service's own message.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the machine readable error code, if the service sent one
	Code string

	// Detail is the human readable message
	Detail string

	// Fields holds per-field validation messages (e.g. "email": ["taken"])
	Fields map[string][]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP %d", e.StatusCode)
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}

	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
		}
		b.WriteString(" (" + strings.Join(parts, "; ") + ")")
	}
	return b.String()
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}

// HasStatus reports whether err is an APIError with the given status.
func HasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Permanent reports whether retrying the same request can't help. Client
// errors (4xx) are permanent, except 408 and 429 which only say "not now".
// Server errors and transport failures aren't.
func Permanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response body into an *APIError. It
// understands {"detail": ...}, {"error": ..., "error_description": ...}
// and field error maps. Returns nil for 2xx.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.Code
		apiErr.Detail = eb.Detail
		if eb.Error != "" {
			if apiErr.Code == "" {
				apiErr.Code = eb.Error
			}
			if apiErr.Detail == "" {
				apiErr.Detail = eb.ErrorDescription
			}
		}
	}

	// Field errors: any key whose value is a string or list of strings
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err == nil {
		for key, val := range raw {
			switch key {
			case "detail", "code", "error", "error_description":
				continue
			}
			if msgs := fieldMessages(val); len(msgs) > 0 {
				if apiErr.Fields == nil {
					apiErr.Fields = make(map[string][]string)
				}
				apiErr.Fields[key] = msgs
			}
		}
	}

	if apiErr.Detail == "" {
		if msgs, ok := apiErr.Fields["non_field_errors"]; ok {
			apiErr.Detail = strings.Join(msgs, " ")
			delete(apiErr.Fields, "non_field_errors")
		}
	}
	if apiErr.Detail == "" && len(apiErr.Fields) == 0 {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

func fieldMessages(val json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(val, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(val, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
