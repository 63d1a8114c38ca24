package audit

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// Checkpoint hashes a restricted subset of game state at a point in time so
// retroactive changes to that subset (for example a deck commitment edited
// after the fact) are detectable later.
type Checkpoint struct {
	ID        string            `json:"id"`
	GameID    string            `json:"gameId"`
	At        time.Time         `json:"at"`
	StateHash string            `json:"stateHash"`
	Fields    map[string]string `json:"fields"`
}

// Checkpoints keeps append-only per-game checkpoint chains.
type Checkpoints struct {
	mu     sync.Mutex
	clock  time2.Clock
	chains map[string][]Checkpoint
}

// NewCheckpoints creates an empty checkpoint store.
func NewCheckpoints(clock time2.Clock) *Checkpoints {
	return &Checkpoints{clock: clock, chains: make(map[string][]Checkpoint)}
}

// Capture snapshots the given state fields for the game and appends the
// checkpoint to its chain.
func (c *Checkpoints) Capture(gameID string, fields map[string]string) Checkpoint {
	cp := Checkpoint{
		ID:        uuid.NewString(),
		GameID:    gameID,
		StateHash: hashFields(fields),
		Fields:    copyFields(fields),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp.At = c.clock.Now()
	c.chains[gameID] = append(c.chains[gameID], cp)
	return cp
}

// Verify recomputes the hash of the current state fields and compares it in
// constant time against the originally committed checkpoint. A mismatch is
// tampering: the committed subset changed after the fact.
func (c *Checkpoints) Verify(gameID, checkpointID string, current map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cp := range c.chains[gameID] {
		if cp.ID != checkpointID {
			continue
		}
		if !primitive.ConstantTimeEqualHex(hashFields(current), cp.StateHash) {
			return secerr.Newf(secerr.KindTamperingDetected, "game %s state diverged from checkpoint %s", gameID, checkpointID)
		}
		return nil
	}
	return secerr.Newf(secerr.KindInvalidFormat, "checkpoint %s not found for game %s", checkpointID, gameID)
}

// Chain returns the game's checkpoints in capture order.
func (c *Checkpoints) Chain(gameID string) []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Checkpoint, len(c.chains[gameID]))
	copy(out, c.chains[gameID])
	return out
}

// hashFields encodes the fields canonically (sorted keys) before hashing so
// the hash is independent of map iteration order.
func hashFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return primitive.SHA256Hex([]byte(strings.Join(parts, "&")))
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
