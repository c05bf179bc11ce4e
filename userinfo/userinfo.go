// Package userinfo exchanges a bearer token for the user's profile at the
// identity provider's userinfo endpoint.
package userinfo

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Profile is the subset of userinfo claims the app keeps. Subject is the
// provider's stable identifier and is the only required field.
type Profile struct {
	Subject string
	Name    string
	Email   string
	Picture string
}

// Client fetches profiles from one identity provider. Endpoint locations
// come from OIDC discovery, performed lazily on first use and cached for
// the lifetime of the Client.
type Client struct {
	issuer     string
	httpClient *http.Client

	mu       sync.Mutex
	provider *oidc.Provider
}

// ClientOption modifies a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for discovery and userinfo
// calls (primarily for testing).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithIssuer overrides the issuer URL derived from the provider domain
// (primarily for testing against a local provider).
func WithIssuer(issuer string) ClientOption {
	return func(c *Client) {
		c.issuer = issuer
	}
}

// NewClient creates a profile fetcher for the given provider domain,
// e.g. "leftys.eu.auth0.com".
func NewClient(domain string, options ...ClientOption) (*Client, error) {
	if domain == "" {
		return nil, errors.New("[userinfo.NewClient] provider domain is required")
	}
	c := &Client{
		issuer:     fmt.Sprintf("https://%s/", domain),
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Fetch calls the userinfo endpoint with the access token as a bearer
// credential. Any non-2xx response is a hard failure; a response without a
// subject identifier is rejected as well.
func (c *Client) Fetch(ctx context.Context, accessToken string) (*Profile, error) {
	provider, err := c.discoverProvider(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[userinfo.Fetch] provider discovery")
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	info, err := provider.UserInfo(oidc.ClientContext(ctx, c.httpClient), tokenSource)
	if err != nil {
		return nil, errors.Wrap(err, "[userinfo.Fetch] userinfo request")
	}

	if info.Subject == "" {
		return nil, errors.New("[userinfo.Fetch] userinfo response missing subject")
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[userinfo.Fetch] decode claims")
	}

	return &Profile{
		Subject: info.Subject,
		Name:    claims.Name,
		Email:   info.Email,
		Picture: claims.Picture,
	}, nil
}

func (c *Client) discoverProvider(ctx context.Context) (*oidc.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return c.provider, nil
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), c.issuer)
	if err != nil {
		return nil, err
	}
	c.provider = provider
	return provider, nil
}
