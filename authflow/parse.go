package authflow

import (
	"crypto/subtle"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/leftys-app/go-auth-client/browser"
)

// ParseRedirect validates the terminal result of one interactive browser
// session against the attempt's expected state and extracts the token on
// success.
//
// Validation is fail-fast, first match wins:
//  1. cancel or dismiss outcome
//  2. explicit provider error (error / error_description)
//  3. missing or mismatched state — rejected even when a token is present
//  4. missing access_token or expires_in
//  5. success
func ParseRedirect(result browser.Result, expectedState string) (*Outcome, error) {
	switch result.Kind {
	case browser.ResultCancel:
		return nil, ErrUserCancelled
	case browser.ResultDismiss:
		return nil, ErrUserDismissed
	case browser.ResultSuccess:
	default:
		return nil, errors.Errorf("[ParseRedirect] unknown result kind %q", result.Kind)
	}

	params, err := redirectParams(result.URL)
	if err != nil {
		return nil, errors.Wrap(err, "[ParseRedirect] redirect URL")
	}

	if errCode := params.Get("error"); errCode != "" {
		return nil, &ProviderError{Code: errCode, Description: params.Get("error_description")}
	}

	returnedState := params.Get("state")
	if returnedState == "" || subtle.ConstantTimeCompare([]byte(returnedState), []byte(expectedState)) != 1 {
		// Logged distinctly from other failures: a bad state can mean the
		// redirect was intercepted or replayed, not just a provider hiccup.
		log.Warn().Msg("authorization redirect rejected: state parameter missing or mismatched")
		return nil, ErrStateMismatch
	}

	accessToken := params.Get("access_token")
	expiresIn := params.Get("expires_in")
	if accessToken == "" || expiresIn == "" {
		return nil, ErrTokenMissing
	}

	seconds, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || seconds <= 0 {
		return nil, ErrTokenMissing
	}

	return &Outcome{
		AccessToken: accessToken,
		ExpiresIn:   time.Duration(seconds) * time.Second,
		State:       returnedState,
	}, nil
}

// redirectParams extracts the response parameters from the final URL.
// Providers return them either in the query string or in the fragment;
// the fragment wins when both carry parameters.
func redirectParams(rawURL string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if u.Fragment != "" {
		if fragment, err := url.ParseQuery(u.Fragment); err == nil && hasResponseParams(fragment) {
			return fragment, nil
		}
	}
	return u.Query(), nil
}

func hasResponseParams(values url.Values) bool {
	return values.Get("access_token") != "" || values.Get("error") != "" || values.Get("state") != ""
}
