// Package proof performs the freshness and replay bookkeeping around
// externally verified proofs. It never checks the cryptographic validity of
// a proof itself; the caller runs the proving-system verifier and only then
// marks the proof as used here.
package proof

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// DefaultExpiry is how long a proof stays acceptable after its embedded
// timestamp.
const DefaultExpiry = time.Hour

// Proof is the structural shape required of externally supplied proofs. The
// pi components are opaque; only their presence and the timestamp are
// interpreted.
type Proof struct {
	PiA       json.RawMessage `json:"pi_a"`
	PiB       json.RawMessage `json:"pi_b"`
	PiC       json.RawMessage `json:"pi_c"`
	Timestamp int64           `json:"timestamp"`
	GameID    string          `json:"gameId"`
}

// Validator tracks used proofs and rejects malformed, expired and replayed
// ones with a structured reason.
type Validator struct {
	mu     sync.Mutex
	clock  time2.Clock
	expiry time.Duration
	used   map[string]time.Time
}

// NewValidator creates a validator with the given expiry window; zero means
// DefaultExpiry.
func NewValidator(clock time2.Clock, expiry time.Duration) *Validator {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Validator{
		clock:  clock,
		expiry: expiry,
		used:   make(map[string]time.Time),
	}
}

// Validate checks structural completeness, expiration and replay. It has no
// side effects; call MarkUsed only after the proof's cryptographic validity
// has been independently verified.
func (v *Validator) Validate(p *Proof) error {
	if p == nil {
		return secerr.New(secerr.KindInvalidFormat, "proof is nil")
	}
	if len(p.PiA) == 0 || len(p.PiB) == 0 || len(p.PiC) == 0 {
		return secerr.New(secerr.KindInvalidFormat, "proof is missing pi components")
	}
	if p.GameID == "" {
		return secerr.New(secerr.KindInvalidFormat, "proof has no game id")
	}
	if p.Timestamp <= 0 {
		return secerr.New(secerr.KindInvalidFormat, "proof timestamp is not parseable")
	}
	proofTime := time.UnixMilli(p.Timestamp)
	if v.clock.Now().Sub(proofTime) > v.expiry {
		return secerr.Newf(secerr.KindExpired, "proof is older than %s", v.expiry)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.used[hashProof(p)]; ok {
		return secerr.New(secerr.KindReplayed, "proof has already been used")
	}
	return nil
}

// MarkUsed records the proof hash so any replay is rejected until the
// record is pruned.
func (v *Validator) MarkUsed(p *Proof) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.used[hashProof(p)] = v.clock.Now()
}

// Sweep prunes used-proof records older than twice the expiry window to
// bound memory. It is an explicit scheduled task; the external driver
// decides the cadence (the source ran it every 5 minutes).
func (v *Validator) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	cutoff := v.clock.Now().Add(-2 * v.expiry)
	pruned := 0
	for h, at := range v.used {
		if at.Before(cutoff) {
			delete(v.used, h)
			pruned++
		}
	}
	return pruned
}

// UsedCount returns the number of tracked proof hashes.
func (v *Validator) UsedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.used)
}

// hashProof keys the replay set by the proof's cryptographic components
// plus the game id, so an identical proof presented for a different game is
// a distinct entry.
func hashProof(p *Proof) string {
	parts := []string{string(p.PiA), string(p.PiB), string(p.PiC), p.GameID}
	return primitive.SHA256Hex([]byte(strings.Join(parts, "|")))
}
