package session_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leftys-app/go-auth-client/authflow"
	"github.com/leftys-app/go-auth-client/browser"
	"github.com/leftys-app/go-auth-client/session"
)

// loginWithExpiry authenticates the fixture with a token living for ttl.
func loginWithExpiry(t *testing.T, f *testFixture, token string, ttl time.Duration) {
	t.Helper()
	f.scriptSuccess(token, int(ttl/time.Second))
	f.setTestProfile(token)
	require.NoError(t, f.manager.Login(context.Background()))
}

func TestScheduler_RenewalTimerDelay(t *testing.T) {
	// expiresAt = now + 10s with a 2s leeway: the renewal must be armed at
	// 8s, inside [ttl-leeway, ttl).
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Second),
		session.WithMinimumDelay(time.Second),
	)

	loginWithExpiry(t, f, testToken, 10*time.Second)

	delay := f.sched.last(t).delay
	require.GreaterOrEqual(t, delay, 8*time.Second)
	require.Less(t, delay, 10*time.Second)
}

func TestScheduler_MinimumDelayFloor(t *testing.T) {
	// A token restored moments before expiry must not fire instantly.
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Minute),
		session.WithMinimumDelay(5*time.Second),
	)

	loginWithExpiry(t, f, testToken, 30*time.Second)

	require.Equal(t, 5*time.Second, f.sched.last(t).delay)
}

func TestScheduler_SilentRenewalSuccess(t *testing.T) {
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Second),
		session.WithMinimumDelay(time.Second),
	)

	loginWithExpiry(t, f, testToken, 10*time.Second)
	renewTimer := f.sched.last(t)

	// The renewal round trip must carry prompt=none and succeed silently.
	f.launcher.Script(func(authorizeURL string) browser.Result {
		u, err := url.Parse(authorizeURL)
		require.NoError(t, err)
		require.Equal(t, string(authflow.PromptNone), u.Query().Get("prompt"))
		state := u.Query().Get("state")
		return browser.Result{
			Kind: browser.ResultSuccess,
			URL:  testRedirectURI + "?access_token=renewed-token&expires_in=3600&state=" + url.QueryEscape(state),
		}
	})
	f.setTestProfile("renewed-token")

	f.now = f.now.Add(8 * time.Second)
	renewTimer.fn()

	snapshot := f.manager.Snapshot()
	require.Equal(t, session.StatusAuthenticated, snapshot.Status)
	require.Equal(t, "renewed-token", snapshot.AccessToken)
	require.Equal(t, "renewed-token", f.store.Record().AccessToken)

	// Re-armed against the new expiry, previous timer replaced.
	latest := f.sched.last(t)
	require.NotSame(t, renewTimer, latest)
	require.Equal(t, time.Hour-2*time.Second, latest.delay)
}

func TestScheduler_RenewalFailureFallsBackToHardExpiry(t *testing.T) {
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Second),
		session.WithMinimumDelay(time.Second),
	)

	loginWithExpiry(t, f, testToken, 10*time.Second)
	renewTimer := f.sched.last(t)

	// Silent renewal comes back with login_required: the provider-side
	// session is gone.
	f.launcher.Script(func(authorizeURL string) browser.Result {
		u, _ := url.Parse(authorizeURL)
		state := u.Query().Get("state")
		return browser.Result{
			Kind: browser.ResultSuccess,
			URL:  testRedirectURI + "?error=login_required&state=" + url.QueryEscape(state),
		}
	})

	f.now = f.now.Add(8 * time.Second)
	renewTimer.fn()

	// Still authenticated: one failed renewal never logs the user out
	// before the credential actually expires.
	snapshot := f.manager.Snapshot()
	require.Equal(t, session.StatusAuthenticated, snapshot.Status)
	require.Equal(t, testToken, snapshot.AccessToken)
	require.Empty(t, snapshot.Err)

	// Hard-expiry fallback armed for the remaining real ttl (2s).
	hardTimer := f.sched.last(t)
	require.NotSame(t, renewTimer, hardTimer)
	require.Equal(t, 2*time.Second, hardTimer.delay)

	f.now = f.now.Add(2 * time.Second)
	hardTimer.fn()

	snapshot = f.manager.Snapshot()
	require.Equal(t, session.StatusUnauthenticated, snapshot.Status)
	require.Equal(t, "Your session has expired.", snapshot.Err)
	require.Empty(t, snapshot.AccessToken)
	require.Nil(t, f.store.Record())
}

func TestScheduler_HardExpiryCancelledByNewLogin(t *testing.T) {
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Second),
		session.WithMinimumDelay(time.Second),
	)

	loginWithExpiry(t, f, testToken, 10*time.Second)
	renewTimer := f.sched.last(t)

	// Renewal fails, hard expiry armed.
	f.launcher.ScriptResult(browser.Result{Kind: browser.ResultDismiss})
	f.now = f.now.Add(8 * time.Second)
	renewTimer.fn()
	hardTimer := f.sched.last(t)

	// The user logs in again before the hard expiry fires.
	loginWithExpiry(t, f, "fresh-token", time.Hour)
	require.True(t, hardTimer.stopped)

	// A late hard-expiry fire is a no-op for the new session.
	hardTimer.fn()
	snapshot := f.manager.Snapshot()
	require.Equal(t, session.StatusAuthenticated, snapshot.Status)
	require.Equal(t, "fresh-token", snapshot.AccessToken)
}

func TestScheduler_LogoutCancelsPendingHardExpiry(t *testing.T) {
	f := setupTestFixture(t,
		session.WithRenewalLeeway(2*time.Second),
		session.WithMinimumDelay(time.Second),
	)

	loginWithExpiry(t, f, testToken, 10*time.Second)
	renewTimer := f.sched.last(t)

	f.launcher.ScriptResult(browser.Result{Kind: browser.ResultDismiss})
	renewTimer.fn()
	hardTimer := f.sched.last(t)

	require.NoError(t, f.manager.Logout(context.Background()))
	require.True(t, hardTimer.stopped)

	hardTimer.fn()
	snapshot := f.manager.Snapshot()
	require.Equal(t, session.StatusUnauthenticated, snapshot.Status)
	// Logout, not expiry: no "session expired" message appears afterwards.
	require.Empty(t, snapshot.Err)
}

func TestScheduler_StaleRenewalFireIsNoOp(t *testing.T) {
	f := setupTestFixture(t)

	loginWithExpiry(t, f, testToken, time.Hour)
	firstTimer := f.sched.last(t)

	// A second login replaces the session and its timer.
	loginWithExpiry(t, f, "newer-token", time.Hour)
	require.True(t, firstTimer.stopped)

	firstTimer.fn()
	snapshot := f.manager.Snapshot()
	require.Equal(t, session.StatusAuthenticated, snapshot.Status)
	require.Equal(t, "newer-token", snapshot.AccessToken)
}
