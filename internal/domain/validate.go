package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Limits bounds the shape of a check. Zero values fall back to defaults.
type Limits struct {
	IDLength          int // exact id length; 0 accepts any non-empty id
	MinOwnerIDLength  int
	MaxTimeoutSeconds int
}

func DefaultLimits() Limits {
	return Limits{IDLength: 25, MinOwnerIDLength: 10, MaxTimeoutSeconds: 5}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid check %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate returns a *ValidationError for the first field of c that is malformed.
func Validate(c Check, l Limits) error {
	if l.MaxTimeoutSeconds < 1 {
		l.MaxTimeoutSeconds = 5
	}

	id := string(c.ID)
	switch {
	case strings.TrimSpace(id) == "":
		return invalid("id", "empty")
	case l.IDLength > 0 && len(id) != l.IDLength:
		return invalid("id", "length %d, want %d", len(id), l.IDLength)
	case !safeID(id):
		return invalid("id", "contains characters outside [A-Za-z0-9_-]")
	}

	owner := strings.TrimSpace(c.OwnerID)
	if owner == "" || len(owner) < l.MinOwnerIDLength {
		return invalid("userId", "shorter than %d", l.MinOwnerIDLength)
	}

	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolHTTPS {
		return invalid("protocol", "%q not in {http, https}", c.Protocol)
	}

	if strings.TrimSpace(c.URL) == "" {
		return invalid("url", "empty")
	}
	if strings.Contains(c.URL, "://") {
		return invalid("url", "must not carry a scheme")
	}
	u, err := url.Parse(c.Target())
	if err != nil || u.Hostname() == "" {
		return invalid("url", "no host in %q", c.URL)
	}

	switch c.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
	default:
		return invalid("method", "%q not in {get, post, put, delete}", c.Method)
	}

	if len(c.SuccessCodes) == 0 {
		return invalid("successCodes", "empty")
	}

	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > l.MaxTimeoutSeconds {
		return invalid("timeoutSeconds", "%d not in [1,%d]", c.TimeoutSeconds, l.MaxTimeoutSeconds)
	}
	return nil
}

func safeID(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
