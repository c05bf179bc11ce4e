// Package session owns the client-side authentication session: one state
// machine holding the credential obtained through the implicit
// authorization flow, the persisted mirror of that credential, and the
// timers that renew or end the session around token expiry.
package session

import (
	"time"

	"github.com/leftys-app/go-auth-client/userinfo"
)

// Status is the session state visible to the UI. Exactly one value holds
// at any time.
type Status string

const (
	// StatusLoading is the initial state, re-entered while an interactive
	// login round trip is outstanding.
	StatusLoading Status = "loading"

	// StatusAuthenticated means a valid credential and profile are held
	// and the expiry scheduler is armed.
	StatusAuthenticated Status = "authenticated"

	// StatusUnauthenticated means no credential is held. Terminal until a
	// new login starts.
	StatusUnauthenticated Status = "unauthenticated"

	// StatusError means the provider configuration is unusable (missing
	// domain or client id). Terminal until the process restarts with a
	// fixed configuration.
	StatusError Status = "error"
)

// Credential is the token obtained from the provider. It is owned by the
// Manager and exposed to the UI only as an opaque bearer string.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Snapshot is the reactive tuple handed to the UI. AccessToken is opaque;
// the UI attaches it as a bearer token to API calls and nothing else.
type Snapshot struct {
	Status      Status
	AccessToken string
	Profile     *userinfo.Profile
	Err         string
}

// Config identifies the provider and this client. Domain and ClientID are
// required at the moment a login is attempted.
type Config struct {
	Domain      string
	ClientID    string
	Audience    string
	RedirectURI string
	Scope       string
}
