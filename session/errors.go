package session

import (
	"errors"

	"github.com/leftys-app/go-auth-client/authflow"
)

var (
	ErrConfiguration   = errors.New("identity provider configuration missing")
	ErrProfileFetch    = errors.New("profile fetch failed")
	ErrLoginSuperseded = errors.New("login attempt superseded")
	ErrSessionExpired  = errors.New("session expired")
)

// Human-readable messages surfaced through Snapshot.Err. Provider errors
// are surfaced verbatim instead.
const (
	msgConfiguration  = "Login is not configured."
	msgCancelled      = "Login was cancelled."
	msgDismissed      = "Login was dismissed."
	msgStateMismatch  = "Login failed: state mismatch in the provider response."
	msgTokenMissing   = "Token missing from response."
	msgProfileFetch   = "Login failed: your profile could not be loaded."
	msgSessionExpired = "Your session has expired."
	msgLoginFailed    = "Login failed."
)

// humanMessage maps an attempt failure to the short string shown to the
// user.
func humanMessage(err error) string {
	var providerErr *authflow.ProviderError
	switch {
	case errors.As(err, &providerErr):
		return providerErr.Error()
	case errors.Is(err, authflow.ErrUserCancelled):
		return msgCancelled
	case errors.Is(err, authflow.ErrUserDismissed):
		return msgDismissed
	case errors.Is(err, authflow.ErrStateMismatch):
		return msgStateMismatch
	case errors.Is(err, authflow.ErrTokenMissing):
		return msgTokenMissing
	case errors.Is(err, ErrProfileFetch):
		return msgProfileFetch
	case errors.Is(err, ErrConfiguration):
		return msgConfiguration
	default:
		return msgLoginFailed
	}
}
