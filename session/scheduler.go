package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leftys-app/go-auth-client/authflow"
)

// The expiry scheduler keeps exactly one timer alive per session. On
// adoption it arms a renewal timer at max(ttl - renewalLeeway,
// minimumDelay). When that fires, a silent renewal (prompt=none) runs; on
// success it is treated exactly like a fresh login, on failure a fallback
// hard-expiry timer is armed for the remaining real ttl so one failed
// renewal does not log the user out early. Only the hard-expiry fire ends
// the session.

// armTimerLocked schedules the silent renewal. Caller holds m.mu and has
// verified the credential is not yet expired.
func (m *Manager) armTimerLocked(expiresAt time.Time) {
	m.cancelTimerLocked()

	ttl := expiresAt.Sub(m.nowTime())
	delay := ttl - m.renewalLeeway
	if delay < m.minimumDelay {
		delay = m.minimumDelay
	}

	epoch := m.epoch
	m.timer = m.newTimer(delay, func() {
		m.renew(epoch, expiresAt)
	})
}

// cancelTimerLocked stops whichever of the renewal or hard-expiry timers
// is active. Caller holds m.mu. Re-arming always goes through here first,
// so two timers are never live for the same session.
func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// renew runs one silent renewal attempt. The epoch gate drops fires that
// lost a race with logout or a newer login; the renewing flag ensures a
// second trigger cannot start a concurrent attempt.
func (m *Manager) renew(epoch uint64, expiresAt time.Time) {
	m.mu.Lock()
	if m.epoch != epoch || m.renewing {
		m.mu.Unlock()
		return
	}
	m.renewing = true
	connection := m.lastConnection
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.renewing = false
		m.mu.Unlock()
	}()

	state, err := authflow.GenerateState()
	if err != nil {
		m.renewalFailed(epoch, expiresAt, err)
		return
	}
	nonce, err := authflow.GenerateNonce()
	if err != nil {
		m.renewalFailed(epoch, expiresAt, err)
		return
	}

	// A renewal attempt must not outlive the credential it renews; the
	// hard-expiry fallback takes over from there.
	ctx, cancel := context.WithDeadline(context.Background(), expiresAt)
	defer cancel()

	cred, profile, err := m.runAttempt(ctx, state, nonce, connection, authflow.PromptNone)
	if err != nil {
		m.renewalFailed(epoch, expiresAt, err)
		return
	}

	if err := m.adopt(ctx, epoch, cred, profile, true); err != nil {
		log.Debug().Err(err).Msg("silent renewal result discarded")
	}
}

// renewalFailed arms the hard-expiry fallback for the remaining real ttl.
// The failure itself stays invisible to the user: the session only ends if
// the hard-expiry timer actually fires.
func (m *Manager) renewalFailed(epoch uint64, expiresAt time.Time, cause error) {
	log.Debug().Err(cause).Msg("silent renewal failed, falling back to hard expiry")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.cancelTimerLocked()

	remaining := expiresAt.Sub(m.nowTime())
	if remaining < 0 {
		remaining = 0
	}
	m.timer = m.newTimer(remaining, func() {
		m.expire(epoch)
	})
}

// expire ends the session when the hard-expiry timer fires.
func (m *Manager) expire(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.cancelTimerLocked()
	m.pending = nil
	m.cred = nil
	m.profile = nil
	m.status = StatusUnauthenticated
	m.errMsg = msgSessionExpired
	m.mu.Unlock()

	m.clearStore(context.Background())
	m.notify()
}
