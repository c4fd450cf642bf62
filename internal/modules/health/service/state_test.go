package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_Ready(t *testing.T) {
	s := NewState()
	assert.False(t, s.Ready())

	s.SetReady(true)
	assert.True(t, s.Ready())

	s.SetReady(false)
	assert.False(t, s.Ready())
}

func TestState_TickFresh(t *testing.T) {
	s := NewState()
	// тиков ещё не было
	assert.False(t, s.TickFresh(5*time.Minute))
	assert.True(t, s.LastTick().IsZero())

	s.TouchTick(time.Now().Add(-10 * time.Minute))
	assert.False(t, s.TickFresh(5*time.Minute))

	s.TouchTick(time.Now())
	assert.True(t, s.TickFresh(5*time.Minute))
	assert.False(t, s.LastTick().IsZero())
}
