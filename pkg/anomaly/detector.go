// Package anomaly flags impossible or bot-like action sequences. It is
// advisory telemetry only: alerts are emitted for the game layer to act on,
// nothing is ever blocked here.
package anomaly

import (
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
)

const (
	// DefaultHistorySize bounds the per-client action history.
	DefaultHistorySize = 50
	// DefaultMinReaction is the fastest plausible human reaction between
	// actions.
	DefaultMinReaction = 150 * time.Millisecond
	// DefaultVarianceFloor is the interval variance (in ms^2) below which a
	// sequence looks machine-timed. Requires at least minIntervals samples.
	DefaultVarianceFloor = 100.0
	// DefaultMaxPerMinute caps the plausible human action rate.
	DefaultMaxPerMinute = 60

	minIntervals = 5
)

// Rule identifies which heuristic fired.
type Rule string

const (
	RuleImpossibleAction Rule = "impossible_action"
	RuleTooFast          Rule = "reaction_too_fast"
	RuleLowVariance      Rule = "bot_like_timing"
	RuleRateExceeded     Rule = "action_rate_exceeded"
)

// Action is one player action as reported by the game layer. Balance is
// caller-supplied context, not computed here.
type Action struct {
	Type    string
	Amount  int64
	Balance int64
	At      time.Time
}

// Alert is an advisory finding about a client.
type Alert struct {
	ClientID string
	Rule     Rule
	Detail   string
	At       time.Time
}

// rateWindow counts actions inside one fixed minute window. Tracked apart
// from the bounded history so the per-minute ceiling stays enforceable even
// when it exceeds the history size.
type rateWindow struct {
	count   int
	resetAt time.Time
}

// Detector keeps a bounded action history per client and evaluates each
// observation against the heuristics.
type Detector struct {
	mu            sync.Mutex
	clock         time2.Clock
	historySize   int
	minReaction   time.Duration
	varianceFloor float64
	maxPerMinute  int
	history       map[string][]Action
	rates         map[string]*rateWindow
}

// NewDetector creates a detector with the default thresholds.
func NewDetector(clock time2.Clock) *Detector {
	return &Detector{
		clock:         clock,
		historySize:   DefaultHistorySize,
		minReaction:   DefaultMinReaction,
		varianceFloor: DefaultVarianceFloor,
		maxPerMinute:  DefaultMaxPerMinute,
		history:       make(map[string][]Action),
		rates:         make(map[string]*rateWindow),
	}
}

// Observe records the action and returns any alerts it triggered.
func (d *Detector) Observe(clientID string, a Action) []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a.At.IsZero() {
		a.At = d.clock.Now()
	}
	var alerts []Alert
	emit := func(rule Rule, detail string) {
		alerts = append(alerts, Alert{ClientID: clientID, Rule: rule, Detail: detail, At: a.At})
	}

	if a.Amount > a.Balance {
		emit(RuleImpossibleAction, "action amount exceeds reported balance")
	}

	hist := d.history[clientID]
	if len(hist) > 0 {
		if gap := a.At.Sub(hist[len(hist)-1].At); gap >= 0 && gap < d.minReaction {
			emit(RuleTooFast, "interval below plausible human reaction time")
		}
	}

	hist = append(hist, a)
	if len(hist) > d.historySize {
		hist = hist[len(hist)-d.historySize:]
	}
	d.history[clientID] = hist

	if v, ok := intervalVarianceMs(hist); ok && v < d.varianceFloor {
		emit(RuleLowVariance, "action interval variance below bot threshold")
	}

	rw := d.rates[clientID]
	if rw == nil || !a.At.Before(rw.resetAt) {
		rw = &rateWindow{resetAt: a.At.Add(time.Minute)}
		d.rates[clientID] = rw
	}
	rw.count++
	if rw.count > d.maxPerMinute {
		emit(RuleRateExceeded, "action rate above per-minute ceiling")
	}

	return alerts
}

// HistoryLen returns the tracked action count for a client.
func (d *Detector) HistoryLen(clientID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history[clientID])
}

// intervalVarianceMs computes the variance of the inter-action intervals in
// milliseconds over the recorded history. ok is false with fewer than
// minIntervals intervals.
func intervalVarianceMs(hist []Action) (float64, bool) {
	if len(hist) < minIntervals+1 {
		return 0, false
	}
	intervals := make([]float64, 0, len(hist)-1)
	for i := 1; i < len(hist); i++ {
		intervals = append(intervals, float64(hist[i].At.Sub(hist[i-1].At).Milliseconds()))
	}
	var mean float64
	for _, iv := range intervals {
		mean += iv
	}
	mean /= float64(len(intervals))
	var variance float64
	for _, iv := range intervals {
		variance += (iv - mean) * (iv - mean)
	}
	variance /= float64(len(intervals))
	return variance, true
}

