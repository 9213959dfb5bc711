// Package session owns the client's authentication state: the bearer
// credential, the identity derived from it, and the cached license snapshot.
// Exactly one Store exists per running client.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/events"
	"github.com/RWilker87/lightning-client/internal/gateway"
)

// Session errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session is no longer valid")
	ErrNoBackend          = errors.New("session store has no backend attached")
)

// Backend is the slice of the gateway the store depends on.
type Backend interface {
	Login(ctx context.Context, identifier, secret string) (gateway.LoginResponse, error)
	Profile(ctx context.Context) (gateway.ProfileResponse, error)
}

// Store holds the current credential and the cached identity/license
// snapshot. All mutation goes through Acquire, Refresh and Invalidate.
type Store struct {
	mu          sync.Mutex
	backend     Backend
	credentials *CredentialFile

	credential string
	identity   *gateway.Identity
	license    *gateway.LicenseSnapshot

	// loading is true from construction until Init resolves.
	loading bool

	// generation increments on every Invalidate. Completions of in-flight
	// round-trips compare it to discard responses that arrive after a
	// teardown.
	generation uint64

	onInvalidate []func()
}

// New creates the session store and subscribes it to the credential-rejected
// signal. The backend is attached separately because the gateway needs the
// store's credential source at construction.
func New(credentials *CredentialFile, bus *events.Bus) *Store {
	s := &Store{
		credentials: credentials,
		loading:     true,
	}
	if bus != nil {
		bus.Subscribe(events.SignalCredentialRejected, s.Invalidate)
	}
	return s
}

// AttachBackend wires the gateway client in. Must be called before Init,
// Acquire or Refresh.
func (s *Store) AttachBackend(backend Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = backend
}

// OnInvalidate registers a callback run at the end of every teardown.
func (s *Store) OnInvalidate(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalidate = append(s.onInvalidate, fn)
}

// Credential returns the current bearer credential, or "" when logged out.
// It always reflects the latest value, never a snapshot.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Identity returns a copy of the current identity, or nil when logged out.
func (s *Store) Identity() *gateway.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// License returns a copy of the cached license snapshot, or nil when absent.
// The snapshot is point-in-time; sensitive actions must revalidate through
// the entitlement evaluator, not trust this cache.
func (s *Store) License() *gateway.LicenseSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.license == nil {
		return nil
	}
	license := *s.license
	return &license
}

// Loading reports whether the store is still initializing.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Authenticated reports whether both credential and identity are present.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential != "" && s.identity != nil
}

// Init restores a persisted session at startup: if a credential survives on
// disk, adopt it and refresh identity and license. The loading flag resolves
// either way; a failed restore leaves the store logged out.
func (s *Store) Init(ctx context.Context) error {
	defer s.resolveLoading()

	credential, err := s.credentials.Load()
	if err != nil {
		return fmt.Errorf("load persisted credential: %w", err)
	}
	if credential == "" {
		return nil
	}

	s.mu.Lock()
	s.credential = credential
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		// Refresh already tore the session down on credential rejection;
		// tear down on any other startup failure too rather than keeping a
		// credential that cannot be validated.
		s.Invalidate()
		return err
	}
	return nil
}

// Acquire exchanges identifier+secret for a credential, persists it, and
// refreshes identity and license. A rejected login leaves the store
// untouched and returns ErrInvalidCredentials.
func (s *Store) Acquire(ctx context.Context, identifier, secret string) error {
	s.mu.Lock()
	backend := s.backend
	generation := s.generation
	s.mu.Unlock()
	if backend == nil {
		return ErrNoBackend
	}

	response, err := backend.Login(ctx, identifier, secret)
	if err != nil {
		if errors.Is(err, gateway.ErrCredentialRejected) {
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		// Logged out while the login round-trip was in flight; the response
		// is stale and must not repopulate state.
		log.Warn().Msg("Discarding stale login response after teardown")
		return ErrSessionInvalid
	}
	s.credential = response.Token
	s.mu.Unlock()

	if err := s.credentials.Store(response.Token); err != nil {
		log.Error().Err(err).Msg("Failed to persist credential; session will not survive restart")
	}

	return s.Refresh(ctx)
}

// Refresh re-fetches identity and license using the current credential. A
// rejected credential tears the session down and returns ErrSessionInvalid.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	backend := s.backend
	generation := s.generation
	s.mu.Unlock()
	if backend == nil {
		return ErrNoBackend
	}

	profile, err := backend.Profile(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrCredentialRejected) {
			// The gateway observer already published the teardown signal;
			// invalidate directly as well so the store never depends on the
			// bus being wired.
			s.Invalidate()
			return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
		}
		s.mu.Lock()
		s.identity = nil
		s.license = nil
		s.mu.Unlock()
		return fmt.Errorf("refresh profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		log.Warn().Msg("Discarding stale profile response after teardown")
		return ErrSessionInvalid
	}
	identity := profile.User
	s.identity = &identity
	s.license = profile.License
	log.Debug().
		Int64("user_id", identity.ID).
		Bool("admin", identity.Admin).
		Bool("license_present", profile.License != nil).
		Msg("Session refreshed")
	return nil
}

// Invalidate clears all session state and removes the persisted credential.
// It is idempotent and safe to call at any time, including re-entrantly from
// the credential-rejected signal.
func (s *Store) Invalidate() {
	s.mu.Lock()
	wasActive := s.credential != "" || s.identity != nil || s.license != nil
	s.credential = ""
	s.identity = nil
	s.license = nil
	s.generation++
	callbacks := make([]func(), len(s.onInvalidate))
	copy(callbacks, s.onInvalidate)
	s.mu.Unlock()

	if err := s.credentials.Remove(); err != nil {
		log.Error().Err(err).Msg("Failed to remove persisted credential")
	}
	if wasActive {
		log.Info().Msg("Session invalidated")
	}
	for _, fn := range callbacks {
		fn()
	}
}

func (s *Store) resolveLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}
