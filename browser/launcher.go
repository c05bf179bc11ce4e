// Package browser abstracts the interactive browser session used for the
// authorization round trip. The session manager only needs two things from
// the platform: open a URL in a browsing context bound to a redirect URI,
// and wait for the redirect (or for the user to give up).
package browser

import "context"

// ResultKind classifies how an interactive browser session ended.
type ResultKind string

const (
	// ResultSuccess means the provider redirected back to the redirect URI.
	// The Result URL carries the provider's response parameters in its
	// query string or fragment.
	ResultSuccess ResultKind = "success"

	// ResultCancel means the user explicitly cancelled the flow, e.g. by
	// pressing a cancel control inside the hosted login page.
	ResultCancel ResultKind = "cancel"

	// ResultDismiss means the browsing context was closed without
	// completing the flow (window closed, app switched away, context
	// cancelled). Indistinguishable from cancel in effect, but surfaced
	// with its own message.
	ResultDismiss ResultKind = "dismiss"
)

// Result is the terminal outcome of one interactive browser session.
// URL is only meaningful when Kind is ResultSuccess.
type Result struct {
	Kind ResultKind
	URL  string
}

// Launcher opens an authorization URL in a managed browsing context and
// blocks until the provider redirects back, the user cancels or dismisses,
// or ctx is done. Open carries no timeout of its own; an interactive login
// is bounded only by the user and by ctx.
type Launcher interface {
	Open(ctx context.Context, authorizeURL string) (Result, error)
}
