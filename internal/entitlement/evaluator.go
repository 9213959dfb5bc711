// Package entitlement derives the tri-state access verdict for the licensed
// feature set. The cached license snapshot on the session is never trusted
// for gating: licenses can be revoked server-side at any time, so every
// protected action is preceded by a dedicated backend probe.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/events"
	"github.com/RWilker87/lightning-client/internal/gateway"
)

// Verdict is the tri-state entitlement decision.
type Verdict int

const (
	// VerdictUnknown is the initial state, before any check completes.
	VerdictUnknown Verdict = iota
	VerdictGranted
	VerdictDenied
)

func (v Verdict) String() string {
	switch v {
	case VerdictGranted:
		return "granted"
	case VerdictDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Prober performs the dedicated server-side entitlement check.
type Prober interface {
	CheckLicense(ctx context.Context) error
}

// Evaluator tracks the current entitlement verdict. Concurrent checks
// resolve last-writer-wins by completion order; a Reset discards the
// completions of checks that were in flight when it ran.
type Evaluator struct {
	mu         sync.Mutex
	prober     Prober
	verdict    Verdict
	generation uint64
	watchers   []func(Verdict)
}

// New creates an evaluator. It subscribes to the entitlement-rejected signal
// so that a denial observed on any backend call flips the verdict without a
// fresh probe.
func New(prober Prober, bus *events.Bus) *Evaluator {
	e := &Evaluator{prober: prober}
	if bus != nil {
		bus.Subscribe(events.SignalEntitlementRejected, func() {
			e.apply(VerdictDenied)
		})
	}
	return e
}

// Verdict returns the current verdict.
func (e *Evaluator) Verdict() Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.verdict
}

// OnChange registers a watcher notified whenever the stored verdict changes,
// letting open views react to asynchronous denials without polling.
func (e *Evaluator) OnChange(fn func(Verdict)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watchers = append(e.watchers, fn)
}

// Reset returns the verdict to unknown. Called whenever the identity is
// (re)loaded; completions of probes started before the reset are discarded.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.verdict = VerdictUnknown
}

// CheckAccess performs a fresh entitlement probe and returns its verdict.
// A transient failure decides nothing: the verdict stays as it was and the
// error is returned, leaving the caller to fail closed.
func (e *Evaluator) CheckAccess(ctx context.Context) (Verdict, error) {
	e.mu.Lock()
	prober := e.prober
	generation := e.generation
	e.mu.Unlock()
	if prober == nil {
		return VerdictUnknown, fmt.Errorf("entitlement evaluator has no prober")
	}

	err := prober.CheckLicense(ctx)
	verdict := VerdictGranted
	if err != nil {
		if !errors.Is(err, gateway.ErrEntitlementDenied) {
			return VerdictUnknown, fmt.Errorf("entitlement check: %w", err)
		}
		verdict = VerdictDenied
	}

	e.mu.Lock()
	if e.generation != generation {
		e.mu.Unlock()
		log.Debug().Stringer("verdict", verdict).Msg("Discarding entitlement check completed after reset")
		return verdict, nil
	}
	e.mu.Unlock()

	e.apply(verdict)
	return verdict, nil
}

// apply stores a completed verdict, last writer wins, and notifies watchers
// on change.
func (e *Evaluator) apply(verdict Verdict) {
	e.mu.Lock()
	changed := e.verdict != verdict
	e.verdict = verdict
	watchers := make([]func(Verdict), len(e.watchers))
	copy(watchers, e.watchers)
	e.mu.Unlock()

	if !changed {
		return
	}
	log.Debug().Stringer("verdict", verdict).Msg("Entitlement verdict updated")
	for _, fn := range watchers {
		fn(verdict)
	}
}
