package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	pkgbrowser "github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// fragmentForwardPage is served on the first hit of the callback path.
// Implicit-flow providers return the token in the URL fragment, which the
// browser never sends to a server, so a small script re-submits the
// fragment as a query string that the loopback listener can read.
const fragmentForwardPage = `<!DOCTYPE html>
<html>
<head><title>Signing in…</title></head>
<body>
<script>
var h = window.location.hash;
if (h && h.length > 1) {
	window.location.replace(window.location.pathname + "?" + h.substring(1) + "&forwarded=1");
} else {
	window.location.replace(window.location.pathname + "?forwarded=1");
}
</script>
</body>
</html>`

const closeWindowPage = `<!DOCTYPE html>
<html>
<head><title>Leftys</title></head>
<body><p>You are signed in. You can close this window and return to the app.</p></body>
</html>`

// Loopback implements Launcher by listening on a local address for the
// provider redirect while the system browser hosts the login page.
type Loopback struct {
	redirectURI string
	openURL     func(string) error
}

// LoopbackOption configures a Loopback launcher.
type LoopbackOption func(*Loopback)

// WithOpenURL replaces the function used to open the system browser
// (primarily for testing).
func WithOpenURL(open func(string) error) LoopbackOption {
	return func(l *Loopback) {
		l.openURL = open
	}
}

// NewLoopback creates a launcher bound to redirectURI. The URI must be a
// loopback http URL such as http://127.0.0.1:8903/callback since the
// launcher itself serves the redirect target.
func NewLoopback(redirectURI string, options ...LoopbackOption) (*Loopback, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, errors.Wrap(err, "[NewLoopback] invalid redirect URI")
	}
	if u.Scheme != "http" {
		return nil, errors.Errorf("[NewLoopback] redirect URI must use http on loopback, got %q", u.Scheme)
	}
	l := &Loopback{
		redirectURI: redirectURI,
		openURL:     pkgbrowser.OpenURL,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Open starts the loopback listener, opens the authorization URL in the
// system browser and blocks until the redirect arrives or ctx is done.
// A cancelled context is reported as a dismiss, not an error: the caller
// treats both as a terminal outcome of the attempt.
func (l *Loopback) Open(ctx context.Context, authorizeURL string) (Result, error) {
	u, err := url.Parse(l.redirectURI)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Loopback.Open] redirect URI")
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Loopback.Open] listen on redirect address")
	}

	results := make(chan Result, 1)
	callbackPath := u.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		// First pass has the response in the fragment, which never reaches
		// us. Serve the forwarding page once; the second pass carries the
		// parameters as a query string.
		if len(query) == 0 || (r.URL.Fragment == "" && query.Get("forwarded") == "" && query.Get("access_token") == "" && query.Get("error") == "" && query.Get("state") == "") {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, fragmentForwardPage)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, closeWindowPage)
		select {
		case results <- Result{Kind: ResultSuccess, URL: r.URL.String()}:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("loopback redirect listener stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := l.openURL(authorizeURL); err != nil {
		return Result{}, errors.Wrap(err, "[Loopback.Open] open system browser")
	}

	select {
	case result := <-results:
		return result, nil
	case <-ctx.Done():
		return Result{Kind: ResultDismiss}, nil
	}
}
