// Package events provides the process-wide signal bus used to propagate
// cross-cutting failure signals (credential rejected, entitlement rejected)
// from the network gateway to the session store, the entitlement evaluator,
// and any open view.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Signal identifies a process-wide event.
type Signal string

const (
	// SignalCredentialRejected fires when the backend reports the current
	// credential as invalid or expired (HTTP 401).
	SignalCredentialRejected Signal = "credential_rejected"

	// SignalEntitlementRejected fires when the backend reports a call as
	// requiring an entitlement the caller lacks (HTTP 403).
	SignalEntitlementRejected Signal = "entitlement_rejected"
)

// Bus dispatches signals to registered subscribers. Subscribers run
// synchronously in registration order; the state machine is cooperative and
// single-threaded, so a signal is fully handled before Publish returns.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Signal][]func()
}

// NewBus creates an empty signal bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Signal][]func())}
}

// Subscribe registers a handler for the given signal. Handlers cannot be
// removed; a subscriber that becomes irrelevant must tolerate late delivery.
func (b *Bus) Subscribe(signal Signal, handler func()) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[signal] = append(b.subscribers[signal], handler)
}

// Publish delivers the signal to every subscriber. Publishing a signal with
// no subscribers is a no-op.
func (b *Bus) Publish(signal Signal) {
	b.mu.RLock()
	handlers := make([]func(), len(b.subscribers[signal]))
	copy(handlers, b.subscribers[signal])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}
	log.Debug().Str("signal", string(signal)).Int("subscribers", len(handlers)).Msg("Dispatching signal")
	for _, handler := range handlers {
		handler()
	}
}
