// Package authflow builds the implicit-flow authorization request and
// interprets the redirect the provider sends back. It owns the per-attempt
// state/nonce generation and the fail-fast validation of the response.
package authflow

import "time"

// ResponseType represents the OAuth 2.0 response type requested from the
// authorization endpoint.
type ResponseType string

const (
	// TokenResponseType indicates the implicit flow.
	// Used in: public clients that cannot hold a client secret.
	// Returns the access token directly in the redirect (fragment or query),
	// with no authorization code and no refresh token.
	// Example: /authorize?response_type=token&client_id=...
	TokenResponseType ResponseType = "token"
)

// PromptType controls whether the provider is allowed to show login UI.
type PromptType string

const (
	// PromptDefault lets the provider decide whether to show a login page.
	PromptDefault PromptType = ""

	// PromptNone instructs the provider to complete the flow without any
	// UI. If the provider-side session is gone the redirect carries an
	// error such as login_required instead of a token.
	// Used in: silent renewal shortly before the current token expires.
	PromptNone PromptType = "none"
)

// DefaultScope is requested on every attempt. The profile and email scopes
// feed the userinfo response the session keeps for display purposes.
const DefaultScope = "openid profile email"

// AuthorizeParams holds everything needed to construct one authorization
// request URL.
type AuthorizeParams struct {
	// Domain is the identity provider host, e.g. "leftys.eu.auth0.com".
	Domain string

	// ClientID identifies this application at the provider.
	ClientID string

	// RedirectURI is where the provider sends the user-agent back to.
	RedirectURI string

	// Scope is the requested scope; DefaultScope when empty.
	Scope string

	// Audience optionally names the API the token should be accepted by.
	Audience string

	// Connection optionally preselects a social identity connection,
	// e.g. "google-oauth2".
	Connection string

	// State is the per-attempt CSRF value echoed back by the provider.
	State string

	// Nonce is the per-attempt replay-resistance value.
	Nonce string

	// Prompt is PromptNone for silent renewal, PromptDefault otherwise.
	Prompt PromptType
}

// Outcome is a successfully validated redirect response.
type Outcome struct {
	AccessToken string
	ExpiresIn   time.Duration
	State       string
}
