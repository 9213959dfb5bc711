package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(SignalCredentialRejected)
	})
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	bus.Subscribe(SignalEntitlementRejected, func() { order = append(order, 1) })
	bus.Subscribe(SignalEntitlementRejected, func() { order = append(order, 2) })
	bus.Subscribe(SignalEntitlementRejected, func() { order = append(order, 3) })

	bus.Publish(SignalEntitlementRejected)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSignalsAreIndependent(t *testing.T) {
	bus := NewBus()
	credential := 0
	entitlement := 0
	bus.Subscribe(SignalCredentialRejected, func() { credential++ })
	bus.Subscribe(SignalEntitlementRejected, func() { entitlement++ })

	bus.Publish(SignalCredentialRejected)
	bus.Publish(SignalCredentialRejected)

	assert.Equal(t, 2, credential)
	assert.Equal(t, 0, entitlement)
}

func TestNilHandlerIgnored(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(SignalCredentialRejected, nil)
	assert.NotPanics(t, func() {
		bus.Publish(SignalCredentialRejected)
	})
}
