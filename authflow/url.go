package authflow

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

// BuildAuthorizeURL constructs the provider authorization endpoint URL for
// one implicit-flow attempt. Every parameter value is URL-encoded by
// url.Values.
func BuildAuthorizeURL(p AuthorizeParams) (string, error) {
	if p.Domain == "" {
		return "", errors.New("[BuildAuthorizeURL] provider domain is required")
	}
	if p.ClientID == "" {
		return "", errors.New("[BuildAuthorizeURL] client id is required")
	}
	if p.RedirectURI == "" {
		return "", errors.New("[BuildAuthorizeURL] redirect URI is required")
	}
	if p.State == "" || p.Nonce == "" {
		return "", errors.New("[BuildAuthorizeURL] state and nonce are required")
	}

	scope := p.Scope
	if scope == "" {
		scope = DefaultScope
	}

	values := url.Values{}
	values.Set("response_type", string(TokenResponseType))
	values.Set("client_id", p.ClientID)
	values.Set("redirect_uri", p.RedirectURI)
	values.Set("scope", scope)
	values.Set("state", p.State)
	values.Set("nonce", p.Nonce)
	if p.Audience != "" {
		values.Set("audience", p.Audience)
	}
	if p.Connection != "" {
		values.Set("connection", p.Connection)
	}
	if p.Prompt != PromptDefault {
		values.Set("prompt", string(p.Prompt))
	}

	return fmt.Sprintf("https://%s/authorize?%s", p.Domain, values.Encode()), nil
}

// BuildLogoutURL constructs the provider logout endpoint URL, which clears
// the provider-side session and then redirects to returnTo.
func BuildLogoutURL(domain, clientID, returnTo string) (string, error) {
	if domain == "" || clientID == "" {
		return "", errors.New("[BuildLogoutURL] provider domain and client id are required")
	}
	values := url.Values{}
	values.Set("client_id", clientID)
	if returnTo != "" {
		values.Set("returnTo", returnTo)
	}
	return fmt.Sprintf("https://%s/v2/logout?%s", domain, values.Encode()), nil
}
