package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForward(t *testing.T) {
	assert.True(t, CanTransition(ItemStatusNew, ItemStatusConfirmed))
	assert.True(t, CanTransition(ItemStatusConfirmed, ItemStatusAssembled))
	assert.True(t, CanTransition(ItemStatusTransferred, ItemStatusSend))
	assert.True(t, CanTransition(ItemStatusSend, ItemStatusDelivered))
}

func TestCanTransitionAllowsSkippingAhead(t *testing.T) {
	assert.True(t, CanTransition(ItemStatusNew, ItemStatusDelivered))
	assert.True(t, CanTransition(ItemStatusAssembled, ItemStatusSend))
}

func TestCanTransitionRejectsBackward(t *testing.T) {
	assert.False(t, CanTransition(ItemStatusDelivered, ItemStatusNew))
	assert.False(t, CanTransition(ItemStatusSend, ItemStatusAssembled))
	assert.False(t, CanTransition(ItemStatusConfirmed, ItemStatusConfirmed))
}

func TestCanTransitionRejectsUnknownStatuses(t *testing.T) {
	assert.False(t, CanTransition("", ItemStatusNew))
	assert.False(t, CanTransition(ItemStatusNew, "canceled"))
	assert.False(t, CanTransition("basket", ItemStatusDelivered))
}

func TestItemStatusValid(t *testing.T) {
	for _, s := range []string{
		ItemStatusNew, ItemStatusConfirmed, ItemStatusAssembled,
		ItemStatusTransferred, ItemStatusSend, ItemStatusDelivered,
	} {
		assert.True(t, ItemStatusValid(s), s)
	}
	assert.False(t, ItemStatusValid("basket"))
	assert.False(t, ItemStatusValid(""))
}

func TestDeliveredIsTerminal(t *testing.T) {
	for _, s := range []string{
		ItemStatusNew, ItemStatusConfirmed, ItemStatusAssembled,
		ItemStatusTransferred, ItemStatusSend, ItemStatusDelivered,
	} {
		assert.False(t, CanTransition(ItemStatusDelivered, s), s)
	}
}
