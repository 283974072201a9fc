package panel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccountID is returned for empty or blank account identifiers
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrAccountNotFound is returned when the account store has no such account
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmptyInput is returned when the pasted callback URL is empty
	ErrEmptyInput = errors.New("callback url is empty")

	// ErrMissingCode is returned when the callback URL has no code parameter
	ErrMissingCode = errors.New("callback url is missing the code parameter")

	// ErrMissingState is returned when the callback URL has no state parameter
	ErrMissingState = errors.New("callback url is missing the state parameter")

	// ErrStateInvalid is returned when the OAuth state is unknown, already
	// consumed, or expired
	ErrStateInvalid = errors.New("oauth state validation failed or expired, restart the authorization")

	// ErrExchangeFailed is returned when the code-for-token exchange fails
	ErrExchangeFailed = errors.New("token exchange failed: confirm the authorization code is fresh and the redirect uri matches the one used to authorize")

	// ErrProjectNotFound is returned by ProjectResolver implementations when
	// no project id can be discovered
	ErrProjectNotFound = errors.New("project id not found")

	// ErrProjectIDUnresolvable is returned when no project id could be resolved
	// and runtime settings forbid a random fallback id
	ErrProjectIDUnresolvable = errors.New("could not resolve a project id and random fallback ids are not permitted")

	// ErrPersistFailed is returned when saving the new account fails
	ErrPersistFailed = errors.New("failed to persist account")
)

// ValidationError reports a rejected settings field. The store is left
// unchanged when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid setting %q: %s", e.Field, e.Reason)
}
