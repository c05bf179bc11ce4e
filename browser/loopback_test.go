package browser_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leftys-app/go-auth-client/browser"
)

const testRedirectURI = "http://127.0.0.1:18943/callback"

func TestNewLoopback_Validation(t *testing.T) {
	t.Run("valid loopback URI", func(t *testing.T) {
		_, err := browser.NewLoopback(testRedirectURI)
		require.NoError(t, err)
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		_, err := browser.NewLoopback("leftys://callback")
		require.Error(t, err)
	})
}

func TestLoopback_OpenReceivesRedirect(t *testing.T) {
	// The fake "browser" hits the callback with the response already in
	// the query string, the way a query-mode provider would.
	launcher, err := browser.NewLoopback(testRedirectURI, browser.WithOpenURL(func(authorizeURL string) error {
		require.Contains(t, authorizeURL, "https://provider.example.com/authorize")
		go func() {
			resp, err := http.Get(testRedirectURI + "?access_token=tok&expires_in=3600&state=s1")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := launcher.Open(ctx, "https://provider.example.com/authorize?client_id=x")
	require.NoError(t, err)
	require.Equal(t, browser.ResultSuccess, result.Kind)
	require.Contains(t, result.URL, "access_token=tok")
	require.Contains(t, result.URL, "state=s1")
}

func TestLoopback_FirstHitServesFragmentForwarder(t *testing.T) {
	pageBody := make(chan string, 1)

	launcher, err := browser.NewLoopback(testRedirectURI, browser.WithOpenURL(func(string) error {
		go func() {
			// First hit carries no parameters: the token is in the
			// fragment, which never reaches the server.
			resp, err := http.Get(testRedirectURI)
			if err != nil {
				pageBody <- ""
				return
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			pageBody <- string(body)

			// The forwarder script re-submits the fragment as a query.
			resp, err = http.Get(testRedirectURI + "?access_token=tok&expires_in=3600&state=s1&forwarded=1")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := launcher.Open(ctx, "https://provider.example.com/authorize")
	require.NoError(t, err)
	require.Equal(t, browser.ResultSuccess, result.Kind)

	body := <-pageBody
	require.True(t, strings.Contains(body, "location.hash"), "first response should carry the fragment forwarder")
}

func TestLoopback_ContextCancelIsDismiss(t *testing.T) {
	launcher, err := browser.NewLoopback(testRedirectURI, browser.WithOpenURL(func(string) error {
		return nil // browser opens, user never completes the flow
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := launcher.Open(ctx, "https://provider.example.com/authorize")
	require.NoError(t, err)
	require.Equal(t, browser.ResultDismiss, result.Kind)
}

func TestLoopback_OpenURLFailure(t *testing.T) {
	launcher, err := browser.NewLoopback(testRedirectURI, browser.WithOpenURL(func(string) error {
		return io.ErrUnexpectedEOF
	}))
	require.NoError(t, err)

	_, err = launcher.Open(context.Background(), "https://provider.example.com/authorize")
	require.Error(t, err)
}
