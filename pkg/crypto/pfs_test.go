package crypto

import (
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

func TestRotationByMessageCount(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	r := NewRotator(testService(t), clock, "client-1")

	k0 := r.CurrentKey()
	for i := 0; i < DefaultRotateAfterMessages-1; i++ {
		assert.False(t, r.OnMessage(), "message %d must not rotate", i+1)
	}
	assert.True(t, r.OnMessage(), "threshold message triggers rotation")
	assert.Equal(t, uint64(1), r.Epoch())
	assert.NotEqual(t, k0, r.CurrentKey())
}

func TestRotationByAge(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	r := NewRotator(testService(t), clock, "client-1")

	k0 := r.CurrentKey()
	clock.Advance(DefaultRotateAfterAge)
	k1 := r.CurrentKey()

	assert.NotEqual(t, k0, k1)
	assert.Equal(t, uint64(1), r.Epoch())
}

func TestRetiredEpochStaysDecryptableUntilPruned(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	r := NewRotator(testService(t), clock, "client-1")

	k0 := r.CurrentKey()
	for epoch := 0; epoch < DefaultKeyHistory; epoch++ {
		clock.Advance(DefaultRotateAfterAge)
		_ = r.CurrentKey()
	}

	// Epoch 0 is now outside the history window.
	_, err := r.KeyForEpoch(0)
	assert.Equal(t, secerr.KindExpired, secerr.KindOf(err))

	// The most recent retired epoch is still reachable and differs from
	// epoch 0.
	k, err := r.KeyForEpoch(r.Epoch() - 1)
	require.NoError(t, err)
	assert.NotEqual(t, k0, k)

	_, err = r.KeyForEpoch(r.Epoch() + 1)
	assert.Equal(t, secerr.KindInvalidFormat, secerr.KindOf(err), "future epoch")
}

func TestEpochKeysAreClientBound(t *testing.T) {
	clock := time2.NewMockClock(time.Unix(1700000000, 0))
	svc := testService(t)

	r1 := NewRotator(svc, clock, "client-1")
	r2 := NewRotator(svc, clock, "client-2")

	assert.NotEqual(t, r1.CurrentKey(), r2.CurrentKey())
}
