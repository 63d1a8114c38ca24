package proof

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

func validProof(clock time2.Clock, gameID string) *Proof {
	return &Proof{
		PiA:       json.RawMessage(`["1","2"]`),
		PiB:       json.RawMessage(`[["3","4"],["5","6"]]`),
		PiC:       json.RawMessage(`["7","8"]`),
		Timestamp: clock.Now().UnixMilli(),
		GameID:    gameID,
	}
}

func TestValidateAcceptsFreshProof(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	v := NewValidator(clock, 0)

	require.NoError(t, v.Validate(validProof(clock, "game-1")))
}

func TestValidateStructuralFailures(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	v := NewValidator(clock, 0)

	cases := []struct {
		name   string
		mutate func(p *Proof)
	}{
		{"nil pi_a", func(p *Proof) { p.PiA = nil }},
		{"nil pi_b", func(p *Proof) { p.PiB = nil }},
		{"nil pi_c", func(p *Proof) { p.PiC = nil }},
		{"missing game id", func(p *Proof) { p.GameID = "" }},
		{"zero timestamp", func(p *Proof) { p.Timestamp = 0 }},
		{"negative timestamp", func(p *Proof) { p.Timestamp = -1 }},
	}
	for _, c := range cases {
		p := validProof(clock, "game-1")
		c.mutate(p)
		err := v.Validate(p)
		assert.Equal(t, secerr.KindInvalidFormat, secerr.KindOf(err), c.name)
	}

	err := v.Validate(nil)
	assert.Equal(t, secerr.KindInvalidFormat, secerr.KindOf(err))
}

func TestValidateExpiredProof(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	v := NewValidator(clock, time.Hour)
	p := validProof(clock, "game-1")

	clock.Advance(time.Hour + time.Second)
	err := v.Validate(p)
	assert.Equal(t, secerr.KindExpired, secerr.KindOf(err))
}

func TestReplayDetection(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	v := NewValidator(clock, 0)
	p := validProof(clock, "game-1")

	require.NoError(t, v.Validate(p))
	v.MarkUsed(p)

	err := v.Validate(p)
	assert.Equal(t, secerr.KindReplayed, secerr.KindOf(err))

	// A structurally identical proof presented for a different game is a
	// distinct entry.
	other := validProof(clock, "game-2")
	require.NoError(t, v.Validate(other))
}

func TestSweepPrunesExpiredRecords(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	v := NewValidator(clock, time.Hour)
	p := validProof(clock, "game-1")
	v.MarkUsed(p)
	assert.Equal(t, 1, v.UsedCount())

	// Records live for twice the expiry window.
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 0, v.Sweep())
	assert.Equal(t, 1, v.UsedCount())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, v.Sweep())
	assert.Equal(t, 0, v.UsedCount())
}
