package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/leftys-app/go-auth-client/authflow"
	"github.com/leftys-app/go-auth-client/browser"
	"github.com/leftys-app/go-auth-client/credstore"
	"github.com/leftys-app/go-auth-client/userinfo"
)

const (
	defaultRenewalLeeway = 2 * time.Minute
	defaultMinimumDelay  = 5 * time.Second
)

// ProfileFetcher exchanges a bearer token for the user's profile.
// *userinfo.Client implements it.
type ProfileFetcher interface {
	Fetch(ctx context.Context, accessToken string) (*userinfo.Profile, error)
}

// Deps holds the platform collaborators the Manager consumes.
type Deps struct {
	Launcher browser.Launcher // interactive browsing context
	Store    credstore.Store  // encrypted credential persistence
	Profiles ProfileFetcher   // provider userinfo endpoint
}

// pendingAttempt exists only between "authorization URL opened" and
// "redirect received". At most one is current; a newer login supersedes it.
type pendingAttempt struct {
	id            string
	expectedState string
	nonce         string
	epoch         uint64
}

// Manager is the session state machine. It is the single writer of all
// session state; timer callbacks and login goroutines re-enter through
// methods that take the mutex, and every async result is gated on the
// epoch captured when the work started so a logout or a newer attempt
// invalidates it.
type Manager struct {
	cfg      Config
	launcher browser.Launcher
	store    credstore.Store
	profiles ProfileFetcher

	nowTime       func() time.Time
	newTimer      TimerFactory
	renewalLeeway time.Duration
	minimumDelay  time.Duration

	mu             sync.Mutex
	status         Status
	cred           *Credential
	profile        *userinfo.Profile
	errMsg         string
	pending        *pendingAttempt
	lastConnection string
	epoch          uint64
	timer          TimerHandle
	renewing       bool
	subscribers    map[int]func(Snapshot)
	nextSubID      int
}

// Option modifies a Manager.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithTimerFactory replaces the scheduled-timer implementation
// (primarily for testing).
func WithTimerFactory(factory TimerFactory) Option {
	return func(m *Manager) {
		m.newTimer = factory
	}
}

// WithRenewalLeeway sets how long before expiry the silent renewal fires.
func WithRenewalLeeway(leeway time.Duration) Option {
	return func(m *Manager) {
		m.renewalLeeway = leeway
	}
}

// WithMinimumDelay sets the floor on the renewal timer so tokens restored
// near expiry do not trigger a renewal instantly.
func WithMinimumDelay(delay time.Duration) Option {
	return func(m *Manager) {
		m.minimumDelay = delay
	}
}

// New creates a Manager in the loading state. Call Restore before
// rendering any UI.
func New(cfg Config, deps Deps, options ...Option) (*Manager, error) {
	if deps.Launcher == nil {
		return nil, errors.New("[session.New] Launcher is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[session.New] Store is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("[session.New] Profiles fetcher is required")
	}

	m := &Manager{
		cfg:           cfg,
		launcher:      deps.Launcher,
		store:         deps.Store,
		profiles:      deps.Profiles,
		nowTime:       time.Now,
		newTimer:      defaultTimerFactory,
		renewalLeeway: defaultRenewalLeeway,
		minimumDelay:  defaultMinimumDelay,
		status:        StatusLoading,
		subscribers:   make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Restore reads the persisted record and, when a non-expired credential
// exists, jumps straight to authenticated and re-arms the scheduler
// against the stored expiry. Intended to run once at startup before any
// UI renders.
func (m *Manager) Restore(ctx context.Context) error {
	record, err := m.store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("credential restore failed, starting unauthenticated")
		record = nil
	}

	if record == nil {
		m.mu.Lock()
		if m.status == StatusLoading {
			m.status = StatusUnauthenticated
		}
		m.mu.Unlock()
		m.notify()
		return nil
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	cred := &Credential{AccessToken: record.AccessToken, ExpiresAt: record.ExpiresAt}
	profile := &userinfo.Profile{
		Subject: record.Subject,
		Name:    record.Name,
		Email:   record.Email,
		Picture: record.Picture,
	}
	// The record is already on disk; no write-back needed.
	return m.adopt(ctx, epoch, cred, profile, false)
}

// Login runs one interactive authorization round trip and resolves once
// the resulting state transition has been applied.
func (m *Manager) Login(ctx context.Context) error {
	return m.login(ctx, "")
}

// LoginWithConnection is Login with a provider connection hint, e.g.
// "google-oauth2" to preselect a social identity connection.
func (m *Manager) LoginWithConnection(ctx context.Context, connection string) error {
	return m.login(ctx, connection)
}

func (m *Manager) login(ctx context.Context, connection string) error {
	m.mu.Lock()
	if m.cfg.Domain == "" || m.cfg.ClientID == "" {
		m.status = StatusError
		m.errMsg = msgConfiguration
		m.mu.Unlock()
		m.notify()
		return ErrConfiguration
	}
	m.mu.Unlock()

	state, err := authflow.GenerateState()
	if err != nil {
		return errors.Wrap(err, "[Manager.login] generate state")
	}
	nonce, err := authflow.GenerateNonce()
	if err != nil {
		return errors.Wrap(err, "[Manager.login] generate nonce")
	}

	m.mu.Lock()
	// Starting a new attempt supersedes whatever was outstanding: the
	// previous attempt's redirect will carry a stale epoch and be
	// discarded without touching session state.
	m.epoch++
	attempt := &pendingAttempt{
		id:            uuid.New().String(),
		expectedState: state,
		nonce:         nonce,
		epoch:         m.epoch,
	}
	m.cancelTimerLocked()
	m.pending = attempt
	m.lastConnection = connection
	m.status = StatusLoading
	m.errMsg = ""
	m.mu.Unlock()
	m.notify()

	log.Debug().Str("attempt", attempt.id).Msg("interactive login started")

	cred, profile, err := m.runAttempt(ctx, attempt.expectedState, attempt.nonce, connection, authflow.PromptDefault)
	if err != nil {
		return m.failAttempt(ctx, attempt, err)
	}
	return m.adopt(ctx, attempt.epoch, cred, profile, true)
}

// runAttempt performs the authorization round trip shared by interactive
// login and silent renewal: build the URL, wait for the redirect, validate
// it, and fetch the profile for the new token.
func (m *Manager) runAttempt(ctx context.Context, state, nonce, connection string, prompt authflow.PromptType) (*Credential, *userinfo.Profile, error) {
	authorizeURL, err := authflow.BuildAuthorizeURL(authflow.AuthorizeParams{
		Domain:      m.cfg.Domain,
		ClientID:    m.cfg.ClientID,
		RedirectURI: m.cfg.RedirectURI,
		Scope:       m.cfg.Scope,
		Audience:    m.cfg.Audience,
		Connection:  connection,
		State:       state,
		Nonce:       nonce,
		Prompt:      prompt,
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := m.launcher.Open(ctx, authorizeURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Manager.runAttempt] browser session")
	}

	outcome, err := authflow.ParseRedirect(result, state)
	if err != nil {
		return nil, nil, err
	}

	expiresAt := authflow.TokenExpiry(outcome.AccessToken, outcome.ExpiresIn, m.nowTime())

	profile, err := m.profiles.Fetch(ctx, outcome.AccessToken)
	if err != nil {
		// The token is discarded along with the attempt, never half-adopted.
		return nil, nil, errors.Wrap(ErrProfileFetch, err.Error())
	}

	return &Credential{AccessToken: outcome.AccessToken, ExpiresAt: expiresAt}, profile, nil
}

// failAttempt applies the unauthenticated transition for a failed
// interactive attempt, unless the attempt was superseded in the meantime,
// in which case the failure is discarded harmlessly.
func (m *Manager) failAttempt(ctx context.Context, attempt *pendingAttempt, cause error) error {
	m.mu.Lock()
	if m.epoch != attempt.epoch {
		m.mu.Unlock()
		log.Debug().Str("attempt", attempt.id).Msg("stale login attempt result discarded")
		return errors.Wrap(ErrLoginSuperseded, cause.Error())
	}
	m.pending = nil
	m.cred = nil
	m.profile = nil
	m.status = StatusUnauthenticated
	m.errMsg = humanMessage(cause)
	m.mu.Unlock()

	m.clearStore(ctx)
	m.notify()
	return cause
}

// adopt installs a credential and profile as the authenticated session:
// state, persisted record and expiry scheduler move together. epoch is the
// value captured when the work producing the credential started; a
// mismatch means a logout or newer attempt won the race and the credential
// is dropped.
func (m *Manager) adopt(ctx context.Context, epoch uint64, cred *Credential, profile *userinfo.Profile, persist bool) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrLoginSuperseded
	}
	m.epoch++
	m.pending = nil
	m.cancelTimerLocked()

	if !cred.ExpiresAt.After(m.nowTime()) {
		m.cred = nil
		m.profile = nil
		m.status = StatusUnauthenticated
		m.errMsg = msgSessionExpired
		m.mu.Unlock()
		m.clearStore(ctx)
		m.notify()
		return ErrSessionExpired
	}

	m.cred = cred
	m.profile = profile
	m.status = StatusAuthenticated
	m.errMsg = ""
	m.armTimerLocked(cred.ExpiresAt)
	m.mu.Unlock()

	if persist {
		m.saveStore(ctx, cred, profile)
	}
	m.notify()
	return nil
}

// Logout ends the session. Any armed timer and pending attempt are
// cancelled before this returns, so a late redirect or renewal cannot
// resurrect the session. Calling Logout while already unauthenticated is a
// no-op apart from clearing any stray persisted record.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	m.cancelTimerLocked()
	m.pending = nil
	m.cred = nil
	m.profile = nil
	m.status = StatusUnauthenticated
	m.errMsg = ""
	m.mu.Unlock()

	m.clearStore(ctx)
	m.notify()
	return nil
}

// UpdateDisplayName patches the display name on the in-memory profile.
// Nothing is sent to the provider and nothing is persisted.
func (m *Manager) UpdateDisplayName(name string) {
	m.mu.Lock()
	if m.profile != nil {
		m.profile.Name = name
	}
	m.mu.Unlock()
	m.notify()
}

// ProviderLogoutURL returns the provider endpoint that clears the
// provider-side session. The UI opens it after Logout when a full
// sign-out is wanted.
func (m *Manager) ProviderLogoutURL(returnTo string) (string, error) {
	return authflow.BuildLogoutURL(m.cfg.Domain, m.cfg.ClientID, returnTo)
}

// Snapshot returns the current reactive tuple.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a listener invoked after every state transition.
// The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snapshot := Snapshot{Status: m.status, Err: m.errMsg}
	if m.cred != nil {
		snapshot.AccessToken = m.cred.AccessToken
	}
	if m.profile != nil {
		copied := *m.profile
		snapshot.Profile = &copied
	}
	return snapshot
}

func (m *Manager) notify() {
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// saveStore mirrors the session into the persisted record. The store is a
// cache; failures are logged, not propagated.
func (m *Manager) saveStore(ctx context.Context, cred *Credential, profile *userinfo.Profile) {
	record := credstore.Record{
		AccessToken: cred.AccessToken,
		Subject:     profile.Subject,
		Name:        profile.Name,
		Email:       profile.Email,
		Picture:     profile.Picture,
		ExpiresAt:   cred.ExpiresAt,
	}
	if err := m.store.Save(ctx, record); err != nil {
		log.Warn().Err(err).Msg("failed to persist credential record")
	}
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear credential record")
	}
}
