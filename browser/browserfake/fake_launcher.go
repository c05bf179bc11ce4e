// Package browserfake provides a scripted Launcher for tests.
package browserfake

import (
	"context"
	"sync"

	"github.com/leftys-app/go-auth-client/browser"
)

// FakeLauncher returns pre-scripted results instead of opening a real
// browsing context. Script functions receive the authorization URL that
// would have been opened, so tests can derive a matching redirect from it.
type FakeLauncher struct {
	mu      sync.Mutex
	scripts []func(authorizeURL string) browser.Result
	opened  []string
}

// NewFakeLauncher creates an empty fake. Calls to Open with no remaining
// script return a dismiss result.
func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{}
}

// Script appends a response for the next Open call.
func (f *FakeLauncher) Script(fn func(authorizeURL string) browser.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, fn)
}

// ScriptResult appends a fixed response for the next Open call.
func (f *FakeLauncher) ScriptResult(result browser.Result) {
	f.Script(func(string) browser.Result { return result })
}

// Opened returns the authorization URLs passed to Open, in order.
func (f *FakeLauncher) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// Open implements browser.Launcher.
func (f *FakeLauncher) Open(_ context.Context, authorizeURL string) (browser.Result, error) {
	f.mu.Lock()
	f.opened = append(f.opened, authorizeURL)
	var fn func(string) browser.Result
	if len(f.scripts) > 0 {
		fn = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	f.mu.Unlock()

	if fn == nil {
		return browser.Result{Kind: browser.ResultDismiss}, nil
	}
	return fn(authorizeURL), nil
}
