package ratelimit

import (
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

func TestEleventhProofGenerationRejected(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Check("client-1", ClassProofGeneration), "call %d", i+1)
		l.Record("client-1", ClassProofGeneration)
	}

	err := l.Check("client-1", ClassProofGeneration)
	require.Error(t, err)
	assert.Equal(t, secerr.KindRateLimited, secerr.KindOf(err))

	var se *secerr.Error
	require.ErrorAs(t, err, &se)
	assert.Greater(t, se.RetryAfter, time.Duration(0))
}

func TestCheckHasNoSideEffects(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, map[Class]Limit{ClassHiddenCard: {Max: 2, Window: time.Minute}})

	// Checks without records never consume budget.
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Check("client-1", ClassHiddenCard))
	}
	l.Record("client-1", ClassHiddenCard)
	l.Record("client-1", ClassHiddenCard)
	assert.Error(t, l.Check("client-1", ClassHiddenCard))
}

func TestWindowReset(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, map[Class]Limit{ClassHiddenCard: {Max: 1, Window: time.Minute}})

	l.Record("client-1", ClassHiddenCard)
	assert.Error(t, l.Check("client-1", ClassHiddenCard))

	clock.Advance(time.Minute)
	assert.NoError(t, l.Check("client-1", ClassHiddenCard))
}

func TestClientsAndClassesAreIsolated(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, nil)

	for i := 0; i < 10; i++ {
		l.Record("client-1", ClassProofGeneration)
	}
	assert.Error(t, l.Check("client-1", ClassProofGeneration))
	assert.NoError(t, l.Check("client-2", ClassProofGeneration))
	assert.NoError(t, l.Check("client-1", ClassDeckCommitment))
}

func TestUnknownClassIsUnlimited(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, nil)

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Check("client-1", Class("unconfigured")))
		l.Record("client-1", Class("unconfigured"))
	}
}

func TestSweepDropsOnlyExpiredWindows(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	l := NewLimiter(clock, nil)

	l.Record("client-1", ClassHiddenCard)      // 1 minute window
	l.Record("client-1", ClassProofGeneration) // 1 hour window

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())

	// The hour window is still live and still counted.
	for i := 0; i < 9; i++ {
		l.Record("client-1", ClassProofGeneration)
	}
	assert.Error(t, l.Check("client-1", ClassProofGeneration))
}
