package authflow

import "errors"

var (
	ErrUserCancelled = errors.New("login cancelled by user")
	ErrUserDismissed = errors.New("login dismissed")
	ErrStateMismatch = errors.New("state parameter missing or mismatched")
	ErrTokenMissing  = errors.New("token missing from response")
)

// ProviderError is an explicit error returned by the identity provider in
// the redirect (error / error_description parameter pair).
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}
