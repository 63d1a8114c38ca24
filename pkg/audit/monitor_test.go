package audit

import (
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdAlertRaisedOnce(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	m := NewMonitor(clock, map[string]int{OpProofGeneration: 3})

	for i := 0; i < 3; i++ {
		assert.Nil(t, m.RecordOperation("client-1", OpProofGeneration))
	}
	alert := m.RecordOperation("client-1", OpProofGeneration)
	require.NotNil(t, alert)
	assert.Equal(t, "client-1", alert.ClientID)
	assert.Equal(t, OpProofGeneration, alert.Operation)
	assert.Equal(t, 4, alert.Count)

	// No alert spam for every subsequent operation in the same minute.
	assert.Nil(t, m.RecordOperation("client-1", OpProofGeneration))
}

func TestWindowResetsEveryMinute(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	m := NewMonitor(clock, map[string]int{OpVerificationFailure: 2})

	for i := 0; i < 2; i++ {
		assert.Nil(t, m.RecordOperation("client-1", OpVerificationFailure))
	}
	clock.Advance(time.Minute)
	assert.Nil(t, m.RecordOperation("client-1", OpVerificationFailure), "fresh window")
}

func TestUnthresholdedOperationNeverAlerts(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	m := NewMonitor(clock, nil)

	for i := 0; i < 100; i++ {
		assert.Nil(t, m.RecordOperation("client-1", OpEncryption))
	}
}

func TestMonitorSweep(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	m := NewMonitor(clock, nil)

	m.RecordOperation("client-1", OpProofGeneration)
	m.RecordOperation("client-2", OpEncryption)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, m.Sweep())
}
