package panel

import (
	"fmt"
	"net/url"
	"strings"
)

// placeholderScheme is prepended to schemeless host-form input so a single
// strict parser handles all accepted shapes. The parsed scheme and host are
// discarded; only the query matters.
const placeholderScheme = "oauthcb"

// ParseCallback extracts the code and state query parameters from an
// operator-pasted OAuth callback URL. Three shapes are accepted: a full
// absolute URL, a schemeless host form (host:port/path?query), and a bare
// path plus query (/path?query).
func ParseCallback(raw string) (code, state string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrEmptyInput
	}

	target := raw
	switch {
	case strings.Contains(raw, "://"):
		// absolute URL, parse as-is
	case strings.HasPrefix(raw, "/"):
		// path+query, a valid relative reference as-is
	default:
		target = placeholderScheme + "://" + raw
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("parse callback url: %w", err)
	}

	query := u.Query()
	code = query.Get("code")
	state = query.Get("state")
	if code == "" {
		return "", "", ErrMissingCode
	}
	if state == "" {
		return "", "", ErrMissingState
	}
	return code, state, nil
}
