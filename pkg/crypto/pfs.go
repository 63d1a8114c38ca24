package crypto

import (
	"fmt"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

const (
	// DefaultRotateAfterMessages rotates the ephemeral key after this many
	// messages.
	DefaultRotateAfterMessages = 100
	// DefaultRotateAfterAge rotates the ephemeral key after this much time.
	DefaultRotateAfterAge = 15 * time.Minute
	// DefaultKeyHistory is how many retired epochs stay decryptable for
	// stragglers before pruning.
	DefaultKeyHistory = 3
)

// Rotator implements forward secrecy for a client channel: epoch keys are
// derived from the master key and retired by message count or age, so
// compromise of a current key does not expose traffic from pruned epochs.
type Rotator struct {
	svc      *Service
	clock    time2.Clock
	clientID string

	rotateAfterMsgs int
	rotateAfterAge  time.Duration
	historySize     int

	mu           sync.Mutex
	epoch        uint64
	msgCount     int
	epochStarted time.Time
	oldestEpoch  uint64
}

// NewRotator starts a rotator at epoch 0 for the client.
func NewRotator(svc *Service, clock time2.Clock, clientID string) *Rotator {
	return &Rotator{
		svc:             svc,
		clock:           clock,
		clientID:        clientID,
		rotateAfterMsgs: DefaultRotateAfterMessages,
		rotateAfterAge:  DefaultRotateAfterAge,
		historySize:     DefaultKeyHistory,
		epochStarted:    clock.Now(),
	}
}

// CurrentKey returns the key for the live epoch, rotating first if the
// message count or age threshold has been crossed.
func (r *Rotator) CurrentKey() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maybeRotate()
	return r.epochKey(r.epoch)
}

// Epoch returns the live epoch number.
func (r *Rotator) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// OnMessage counts one message against the live epoch and reports whether
// that triggered a rotation.
func (r *Rotator) OnMessage() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgCount++
	before := r.epoch
	r.maybeRotate()
	return r.epoch != before
}

// KeyForEpoch returns the key of a retired epoch that is still inside the
// history window, for decrypting messages that were in flight across a
// rotation. Pruned epochs are gone for good; that is the forward-secrecy
// guarantee.
func (r *Rotator) KeyForEpoch(epoch uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch > r.epoch {
		return nil, secerr.Newf(secerr.KindInvalidFormat, "epoch %d has not started", epoch)
	}
	if epoch < r.oldestEpoch {
		return nil, secerr.Newf(secerr.KindExpired, "epoch %d has been pruned", epoch)
	}
	return r.epochKey(epoch), nil
}

func (r *Rotator) maybeRotate() {
	if r.msgCount < r.rotateAfterMsgs && r.clock.Now().Sub(r.epochStarted) < r.rotateAfterAge {
		return
	}
	r.epoch++
	r.msgCount = 0
	r.epochStarted = r.clock.Now()
	if r.epoch >= uint64(r.historySize) {
		r.oldestEpoch = r.epoch - uint64(r.historySize) + 1
	}
}

func (r *Rotator) epochKey(epoch uint64) []byte {
	return primitive.DeriveKey(r.svc.master, fmt.Sprintf("pfs:%s:%d", r.clientID, epoch))
}
