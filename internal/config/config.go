// Package config loads the identity provider and storage settings from the
// environment.
package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds everything the auth client needs from the environment.
// Domain and ClientID are the only values without a usable default; their
// absence is a configuration error surfaced when a login is attempted, not
// at load time.
type Config struct {
	// Domain is the identity provider host, e.g. "leftys.eu.auth0.com".
	Domain string `env:"LEFTYS_AUTH_DOMAIN"`

	// ClientID identifies this application at the provider.
	ClientID string `env:"LEFTYS_AUTH_CLIENT_ID"`

	// Audience optionally names the Leftys API the token is meant for.
	Audience string `env:"LEFTYS_AUTH_AUDIENCE"`

	// RedirectURI is where the provider redirects back to. The default
	// matches the loopback launcher's listen address.
	RedirectURI string `env:"LEFTYS_AUTH_REDIRECT_URI" envDefault:"http://127.0.0.1:8903/callback"`

	// Scope overrides the default "openid profile email" when set.
	Scope string `env:"LEFTYS_AUTH_SCOPE"`

	// RenewalLeeway is how long before expiry the silent renewal fires.
	RenewalLeeway time.Duration `env:"LEFTYS_AUTH_RENEWAL_LEEWAY" envDefault:"2m"`

	// CredentialsFile is where the encrypted credential record lives.
	// Defaults to credentials.bin under the user config directory.
	CredentialsFile string `env:"LEFTYS_AUTH_CREDENTIALS_FILE"`

	// CredentialsKey is the standard-base64 32-byte key sealing the
	// credential record. When absent the credential is not persisted
	// across restarts.
	CredentialsKey string `env:"LEFTYS_AUTH_CREDENTIALS_KEY"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] parse environment")
	}
	if cfg.CredentialsFile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.CredentialsFile = filepath.Join(dir, "leftys", "credentials.bin")
		}
	}
	return cfg, nil
}

// StoreKey decodes the configured sealing key. Returns nil when no key is
// configured.
func (c Config) StoreKey() ([]byte, error) {
	if c.CredentialsKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.CredentialsKey)
	if err != nil {
		return nil, errors.Wrap(err, "[config.StoreKey] decode key")
	}
	return key, nil
}
