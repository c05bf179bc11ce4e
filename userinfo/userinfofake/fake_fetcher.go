// Package userinfofake provides a canned profile fetcher for tests.
package userinfofake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/leftys-app/go-auth-client/userinfo"
)

// FakeFetcher maps access tokens to profiles.
type FakeFetcher struct {
	mu       sync.Mutex
	profiles map[string]userinfo.Profile
	failAll  bool

	FetchCalls int
}

// NewFakeFetcher creates an empty fake fetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{profiles: make(map[string]userinfo.Profile)}
}

// SetProfile registers the profile returned for a given access token.
func (f *FakeFetcher) SetProfile(accessToken string, profile userinfo.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[accessToken] = profile
}

// FailAll makes every Fetch call return an error.
func (f *FakeFetcher) FailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

// Fetch implements the session manager's ProfileFetcher dependency.
func (f *FakeFetcher) Fetch(_ context.Context, accessToken string) (*userinfo.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++
	if f.failAll {
		return nil, errors.New("userinfo endpoint unavailable")
	}
	profile, ok := f.profiles[accessToken]
	if !ok {
		return nil, errors.New("unknown access token")
	}
	copied := profile
	return &copied, nil
}
