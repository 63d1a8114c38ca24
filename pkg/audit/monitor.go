package audit

import (
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default per-minute alert thresholds by operation.
const (
	DefaultProofOpThreshold   = 20
	DefaultFailureOpThreshold = 10
)

// Monitor operation names.
const (
	OpProofGeneration     = "proof_generation"
	OpProofVerification   = "proof_verification"
	OpVerificationFailure = "verification_failure"
	OpEncryption          = "encryption"
	OpDecryptionFailure   = "decryption_failure"
)

var (
	monitorMetricsOnce sync.Once
	cryptoOpsTotal     *prometheus.CounterVec
	monitorAlertsTotal *prometheus.CounterVec
)

func ensureMonitorMetrics() {
	monitorMetricsOnce.Do(func() {
		cryptoOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairness_crypto_operations_total",
			Help: "Crypto operations observed by the monitor, by operation.",
		}, []string{"operation"})
		monitorAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairness_monitor_alerts_total",
			Help: "Threshold alerts raised by the crypto monitor, by operation.",
		}, []string{"operation"})
	})
}

// MonitorAlert reports a client exceeding an operation threshold within one
// minute. Pure observability; nothing is enforced here.
type MonitorAlert struct {
	ClientID  string
	Operation string
	Count     int
	Threshold int
	At        time.Time
}

type opWindow struct {
	count   int
	resetAt time.Time
}

// Monitor aggregates operation counts per client per minute and raises
// threshold alerts.
type Monitor struct {
	mu         sync.Mutex
	clock      time2.Clock
	thresholds map[string]int
	windows    map[string]*opWindow
}

// NewMonitor creates a monitor; nil thresholds installs the defaults.
func NewMonitor(clock time2.Clock, thresholds map[string]int) *Monitor {
	ensureMonitorMetrics()
	if thresholds == nil {
		thresholds = map[string]int{
			OpProofGeneration:     DefaultProofOpThreshold,
			OpVerificationFailure: DefaultFailureOpThreshold,
			OpDecryptionFailure:   DefaultFailureOpThreshold,
		}
	}
	return &Monitor{
		clock:      clock,
		thresholds: thresholds,
		windows:    make(map[string]*opWindow),
	}
}

// RecordOperation counts one operation for the client and returns an alert
// if this minute's count crossed the operation's threshold.
func (m *Monitor) RecordOperation(clientID, operation string) *MonitorAlert {
	cryptoOpsTotal.WithLabelValues(operation).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	k := clientID + "|" + operation
	w := m.windows[k]
	if w == nil || !now.Before(w.resetAt) {
		w = &opWindow{resetAt: now.Add(time.Minute)}
		m.windows[k] = w
	}
	w.count++

	threshold, ok := m.thresholds[operation]
	if !ok || w.count != threshold+1 {
		return nil
	}
	monitorAlertsTotal.WithLabelValues(operation).Inc()
	return &MonitorAlert{
		ClientID:  clientID,
		Operation: operation,
		Count:     w.count,
		Threshold: threshold,
		At:        now,
	}
}

// Sweep drops expired minute windows.
func (m *Monitor) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	pruned := 0
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
			pruned++
		}
	}
	return pruned
}
