package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundNext(t *testing.T) {
	tests := []struct {
		current Round
		next    Round
		ok      bool
	}{
		{RoundNotStarted, RoundOf16, true},
		{RoundOf16, RoundQuarterfinal, true},
		{RoundQuarterfinal, RoundSemifinal, true},
		{RoundSemifinal, RoundFinal, true},
		{RoundFinal, RoundFinished, true},
		{RoundFinished, RoundFinished, false},
	}

	for _, tt := range tests {
		next, ok := tt.current.Next()
		assert.Equal(t, tt.ok, ok, "round %s", tt.current)
		assert.Equal(t, tt.next, next, "round %s", tt.current)
	}
}

func TestRoundOrderIsMonotonic(t *testing.T) {
	prev := RoundNotStarted
	for {
		next, ok := prev.Next()
		if !ok {
			break
		}
		assert.Greater(t, next.Order(), prev.Order())
		prev = next
	}
}

func TestRoundPlayable(t *testing.T) {
	assert.False(t, RoundNotStarted.Playable())
	assert.True(t, RoundOf16.Playable())
	assert.True(t, RoundFinal.Playable())
	assert.False(t, RoundFinished.Playable())
}

func TestTournamentRegistrationOpen(t *testing.T) {
	now := time.Now()
	tr := &Tournament{
		CurrentRound:          RoundNotStarted,
		RegistrationCloseDate: now.Add(24 * time.Hour),
	}
	assert.True(t, tr.RegistrationOpen(now))

	tr.RegistrationCloseDate = now.Add(-time.Hour)
	assert.False(t, tr.RegistrationOpen(now))

	tr.RegistrationCloseDate = now.Add(24 * time.Hour)
	tr.CurrentRound = RoundOf16
	assert.False(t, tr.RegistrationOpen(now))
}
