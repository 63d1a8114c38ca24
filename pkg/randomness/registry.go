package randomness

import (
	"sync"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
)

// Registry owns the protocol runs of all live games. It replaces any notion
// of module-level singletons so multiple independent instances can coexist
// in tests. Run access is keyed by game id; runs themselves are driven by a
// single causal message stream per game.
type Registry struct {
	mu    sync.Mutex
	clock time2.Clock
	runs  map[string]*Run
	opts  []Option
}

// NewRegistry creates an empty registry. The options are applied to every
// run it creates.
func NewRegistry(clock time2.Clock, opts ...Option) *Registry {
	return &Registry{
		clock: clock,
		runs:  make(map[string]*Run),
		opts:  opts,
	}
}

// Begin creates a run for the game. Beginning a game that already has a
// live run is a protocol error.
func (reg *Registry) Begin(gameID string) (*Run, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.runs[gameID]; ok {
		return nil, errors.Errorf("game %s already has a protocol run", gameID)
	}
	r := NewRun(gameID, reg.clock, reg.opts...)
	reg.runs[gameID] = r
	return r, nil
}

// Get returns the run for the game, or nil.
func (reg *Registry) Get(gameID string) *Run {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.runs[gameID]
}

// Remove drops the run for the game, typically after the transcript has
// been published.
func (reg *Registry) Remove(gameID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.runs, gameID)
}

// Len returns the number of live runs.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.runs)
}
