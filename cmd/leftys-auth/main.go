// Command leftys-auth runs the Leftys login flow from a terminal: restore
// a persisted session if one exists, otherwise walk through an interactive
// browser login, then keep the session alive until interrupted.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/leftys-app/go-auth-client/browser"
	"github.com/leftys-app/go-auth-client/credstore"
	"github.com/leftys-app/go-auth-client/internal/config"
	"github.com/leftys-app/go-auth-client/session"
	"github.com/leftys-app/go-auth-client/userinfo"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("leftys-auth failed")
	}
}

func run() error {
	_ = godotenv.Load()
	setupLogging()
	displayAppname("Leftys")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	unsubscribe := manager.Subscribe(func(s session.Snapshot) {
		log.Info().Str("status", string(s.Status)).Str("error", s.Err).Msg("session changed")
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Restore(ctx); err != nil {
		return err
	}

	if manager.Snapshot().Status != session.StatusAuthenticated {
		if err := manager.Login(ctx); err != nil {
			snapshot := manager.Snapshot()
			fmt.Printf("Login did not complete: %s\n", snapshot.Err)
			return nil
		}
	}

	snapshot := manager.Snapshot()
	fmt.Printf("Signed in as %s (%s)\n", snapshot.Profile.Name, snapshot.Profile.Subject)
	fmt.Println("Session will renew itself in the background. Press Ctrl-C to quit.")

	<-ctx.Done()
	fmt.Println("\nBye. The session stays valid; run again to restore it.")
	return nil
}

func buildManager(cfg config.Config) (*session.Manager, error) {
	launcher, err := browser.NewLoopback(cfg.RedirectURI)
	if err != nil {
		return nil, err
	}

	key, err := cfg.StoreKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		// Without a configured key the session cannot outlive the process;
		// seal with a throwaway key so the flow still works end to end.
		key = make([]byte, credstore.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Warn().Msg("LEFTYS_AUTH_CREDENTIALS_KEY not set; session will not survive a restart")
	}

	store, err := credstore.NewFileStore(cfg.CredentialsFile, key)
	if err != nil {
		return nil, err
	}

	profiles, err := userinfo.NewClient(cfg.Domain)
	if err != nil {
		return nil, err
	}

	return session.New(
		session.Config{
			Domain:      cfg.Domain,
			ClientID:    cfg.ClientID,
			Audience:    cfg.Audience,
			RedirectURI: cfg.RedirectURI,
			Scope:       cfg.Scope,
		},
		session.Deps{Launcher: launcher, Store: store, Profiles: profiles},
		session.WithRenewalLeeway(cfg.RenewalLeeway),
	)
}

func setupLogging() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("LEFTYS_AUTH_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
