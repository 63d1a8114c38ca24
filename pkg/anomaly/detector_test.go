package anomaly

import (
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
)

func hasRule(alerts []Alert, rule Rule) bool {
	for _, a := range alerts {
		if a.Rule == rule {
			return true
		}
	}
	return false
}

func TestImpossibleActionFlagged(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	alerts := d.Observe("client-1", Action{Type: "bet", Amount: 500, Balance: 100})
	assert.True(t, hasRule(alerts, RuleImpossibleAction))

	alerts = d.Observe("client-2", Action{Type: "bet", Amount: 100, Balance: 100})
	assert.False(t, hasRule(alerts, RuleImpossibleAction))
}

func TestReactionTooFastFlagged(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	d.Observe("client-1", Action{Type: "reveal", Balance: 100})
	clock.Advance(50 * time.Millisecond)
	alerts := d.Observe("client-1", Action{Type: "reveal", Balance: 100})
	assert.True(t, hasRule(alerts, RuleTooFast))

	clock.Advance(2 * time.Second)
	alerts = d.Observe("client-1", Action{Type: "reveal", Balance: 100})
	assert.False(t, hasRule(alerts, RuleTooFast))
}

func TestBotLikeTimingFlagged(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	// Metronomic one-second intervals: zero variance once enough samples
	// accumulate.
	var last []Alert
	for i := 0; i < 8; i++ {
		last = d.Observe("bot", Action{Type: "bet", Balance: 100})
		clock.Advance(time.Second)
	}
	assert.True(t, hasRule(last, RuleLowVariance))
}

func TestHumanJitterNotFlagged(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	gaps := []time.Duration{
		900 * time.Millisecond, 2300 * time.Millisecond, 1400 * time.Millisecond,
		3100 * time.Millisecond, 700 * time.Millisecond, 1900 * time.Millisecond,
		2600 * time.Millisecond,
	}
	var last []Alert
	last = d.Observe("human", Action{Type: "bet", Balance: 100})
	for _, g := range gaps {
		clock.Advance(g)
		last = d.Observe("human", Action{Type: "bet", Balance: 100})
	}
	assert.False(t, hasRule(last, RuleLowVariance))
}

func TestActionRateCeiling(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	// Sustained 300 actions per minute, far past the ceiling and well past
	// the history bound: the rate rule must keep firing even once the
	// retained history is shorter than the per-minute count.
	var flagged bool
	for i := 0; i < DefaultHistorySize*4; i++ {
		alerts := d.Observe("spammer", Action{Type: "bet", Balance: 100})
		if hasRule(alerts, RuleRateExceeded) {
			flagged = true
		}
		clock.Advance(200 * time.Millisecond)
	}
	assert.True(t, flagged)
	assert.Equal(t, DefaultHistorySize, d.HistoryLen("spammer"))
}

func TestModerateRateNotFlagged(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	for i := 0; i < DefaultMaxPerMinute; i++ {
		alerts := d.Observe("client-1", Action{Type: "bet", Balance: 100})
		assert.False(t, hasRule(alerts, RuleRateExceeded))
		clock.Advance(time.Second)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	d := NewDetector(clock)

	for i := 0; i < DefaultHistorySize*3; i++ {
		d.Observe("client-1", Action{Type: "bet", Balance: 100})
		clock.Advance(2 * time.Second)
	}
	assert.Equal(t, DefaultHistorySize, d.HistoryLen("client-1"))
}
