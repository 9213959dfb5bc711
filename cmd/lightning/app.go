package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/admin"
	"github.com/RWilker87/lightning-client/internal/config"
	"github.com/RWilker87/lightning-client/internal/entitlement"
	"github.com/RWilker87/lightning-client/internal/events"
	"github.com/RWilker87/lightning-client/internal/gateway"
	"github.com/RWilker87/lightning-client/internal/guard"
	"github.com/RWilker87/lightning-client/internal/logging"
	"github.com/RWilker87/lightning-client/internal/session"
)

// app wires the client core together: one session store, one gateway, one
// entitlement evaluator, the guards, and the signal bus connecting them.
type app struct {
	cfg        *config.Config
	bus        *events.Bus
	store      *session.Store
	client     *gateway.Client
	evaluator  *entitlement.Evaluator
	admin      *admin.Service
	navigator  *cliNavigator
}

// cliNavigator maps the redirect semantics of the gateway onto a CLI: going
// to the entry point means telling the user to log in again. AtEntry guards
// against repeating that message (and satisfies the no-redirect-loop rule
// when the rejected call was the login itself).
type cliNavigator struct {
	mu      sync.Mutex
	atEntry bool
}

func (n *cliNavigator) AtEntry() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.atEntry
}

func (n *cliNavigator) ToEntry() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.atEntry = true
	fmt.Println("Session expired or rejected. Run 'lightning login' to sign in again.")
}

// markAtEntry is set by the login command so a rejected login attempt does
// not also print the session-expired notice.
func (n *cliNavigator) markAtEntry() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.atEntry = true
}

// newApp builds the client core. The session store is constructed first so
// the gateway can read its credential per request; the backend is attached
// afterwards.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "lightning",
	})

	bus := events.NewBus()

	credentials, err := session.NewCredentialFile(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	store := session.New(credentials, bus)

	navigator := &cliNavigator{}
	client, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
	}, store.Credential, bus, navigator)
	if err != nil {
		return nil, err
	}
	store.AttachBackend(client)

	evaluator := entitlement.New(client, bus)
	store.OnInvalidate(evaluator.Reset)

	return &app{
		cfg:       cfg,
		bus:       bus,
		store:     store,
		client:    client,
		evaluator: evaluator,
		admin:     admin.NewService(client),
		navigator: navigator,
	}, nil
}

// initSession starts the credential watcher and restores a persisted
// session. The watcher runs for the life of the command so an external
// logout (another process removing the credential file) invalidates this
// session even while a request is in flight. A failed restore leaves the
// client logged out; commands behind guards will report that state.
func (a *app) initSession(ctx context.Context) {
	if err := a.store.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("Credential watcher unavailable; external logout will not be picked up")
	}
	if err := a.store.Init(ctx); err != nil {
		log.Debug().Err(err).Msg("Session restore failed")
	}
}

// requireGuard evaluates a guard and translates a denial into a command
// error carrying the redirect destination and reason.
func (a *app) requireGuard(ctx context.Context, g guard.Guard) error {
	result, err := g.Evaluate(ctx)
	if err != nil {
		return fmt.Errorf("could not verify access: %w", err)
	}
	switch result.Decision {
	case guard.DecisionAllow:
		return nil
	case guard.DecisionLoading:
		return fmt.Errorf("access check did not resolve; try again")
	default:
		if result.Reason == guard.ReasonLicenseError {
			return fmt.Errorf("no active license for this feature; contact your administrator (see %s?%s=true)", result.RedirectTo, result.Reason)
		}
		if result.RedirectTo == guard.RouteLogin {
			return fmt.Errorf("not signed in; run 'lightning login' first")
		}
		return fmt.Errorf("access denied; redirected to %s", result.RedirectTo)
	}
}

func (a *app) authGuard() guard.Guard {
	return guard.AuthGuard{Session: a.store}
}

func (a *app) adminGuard() guard.Guard {
	return guard.AdminGuard{Session: a.store}
}

func (a *app) licenseGuard() guard.Guard {
	return guard.LicenseGuard{Session: a.store, Checker: a.evaluator}
}
