package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitOrderState(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{OrderStateCart, OrderStateNew, true},
		{OrderStateCart, OrderStateConfirmed, false},
		{OrderStateNew, OrderStateConfirmed, true},
		{OrderStateNew, OrderStateCanceled, true},
		{OrderStateSent, OrderStateDelivered, true},
		{OrderStateSent, OrderStateCanceled, false},
		{OrderStateDelivered, OrderStateCanceled, false},
		{OrderStateCanceled, OrderStateNew, false},
		{OrderStateNew, OrderStateCart, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitOrderState(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsValidOrderState(t *testing.T) {
	assert.True(t, IsValidOrderState(OrderStateAssembled))
	assert.False(t, IsValidOrderState("lost"))
	assert.False(t, IsValidOrderState(""))
}
