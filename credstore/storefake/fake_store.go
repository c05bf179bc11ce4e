// Package storefake provides an in-memory Store for tests.
package storefake

import (
	"context"
	"sync"
	"time"

	"github.com/leftys-app/go-auth-client/credstore"
)

// FakeStore keeps at most one record in memory and mimics the
// expired-on-load behaviour of the real store.
type FakeStore struct {
	mu      sync.Mutex
	record  *credstore.Record
	NowTime func() time.Time

	SaveCalls  int
	ClearCalls int
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{NowTime: time.Now}
}

// Seed places a record in the store without counting as a Save call.
func (f *FakeStore) Seed(record credstore.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record = &record
}

// Record returns the currently held record, or nil.
func (f *FakeStore) Record() *credstore.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return nil
	}
	copied := *f.record
	return &copied
}

// Save implements credstore.Store.
func (f *FakeStore) Save(_ context.Context, record credstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveCalls++
	f.record = &record
	return nil
}

// Load implements credstore.Store.
func (f *FakeStore) Load(context.Context) (*credstore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return nil, nil
	}
	if !f.record.ExpiresAt.After(f.NowTime()) {
		f.record = nil
		return nil, nil
	}
	copied := *f.record
	return &copied, nil
}

// Clear implements credstore.Store.
func (f *FakeStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearCalls++
	f.record = nil
	return nil
}
