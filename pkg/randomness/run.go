// Package randomness implements the commit-reveal protocol that lets
// mutually distrusting participants jointly produce a seed no single party
// controls. A Run walks the phases
//
//	awaiting_commitments -> commitments_sealed -> complete
//
// with fallback/timeout_partial reachable when reveals are withheld past the
// deadline. The final seed is a pure function of the sorted reveals and the
// timestamp captured at seal time, so any third party can recompute it.
package randomness

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// Phase is the state of a protocol run.
type Phase string

const (
	PhaseAwaitingCommitments Phase = "awaiting_commitments"
	PhaseCommitmentsSealed   Phase = "commitments_sealed"
	PhaseComplete            Phase = "complete"
	PhaseFallback            Phase = "fallback"
	PhaseTimeoutPartial      Phase = "timeout_partial"
)

// DefaultRevealDeadline is how long a participant has to reveal after its
// own commitment before being flagged late.
const DefaultRevealDeadline = 30 * time.Second

// Commitment binds a participant to a seed before it is revealed.
// Immutable once accepted.
type Commitment struct {
	ParticipantID string
	CommitmentHex string
	CommittedAt   time.Time
}

// Reveal is the disclosed seed, accepted only after verification against the
// stored commitment.
type Reveal struct {
	ParticipantID string
	Seed          string
	RevealedAt    time.Time
}

// Run owns one commit-reveal protocol execution for a single game.
// It is not safe for concurrent use; the transport layer is expected to
// deliver one message at a time per game.
type Run struct {
	gameID         string
	clock          time2.Clock
	revealDeadline time.Duration

	phase       Phase
	order       []string
	commitments map[string]*Commitment
	reveals     map[string]*Reveal
	late        map[string]bool

	committedAt time.Time
	// Hash commitment to committedAt, published at seal time so the server
	// cannot grind timestamps after observing reveals.
	timestampCommitment string

	finalSeed string
}

// Option configures a Run.
type Option func(*Run)

// WithRevealDeadline bounds how long after its commitment each participant
// may still reveal. Zero disables the deadline.
func WithRevealDeadline(d time.Duration) Option {
	return func(r *Run) {
		r.revealDeadline = d
	}
}

// NewRun creates a run in the awaiting_commitments phase.
func NewRun(gameID string, clock time2.Clock, opts ...Option) *Run {
	r := &Run{
		gameID:         gameID,
		clock:          clock,
		revealDeadline: DefaultRevealDeadline,
		phase:          PhaseAwaitingCommitments,
		commitments:    make(map[string]*Commitment),
		reveals:        make(map[string]*Reveal),
		late:           make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Run) GameID() string { return r.gameID }
func (r *Run) Phase() Phase   { return r.phase }

// Commit stores a participant's commitment. Rejected once the phase is
// sealed, on duplicate participants, and on malformed hex.
func (r *Run) Commit(participantID, commitmentHex string) error {
	if r.phase != PhaseAwaitingCommitments {
		return secerr.Newf(secerr.KindPhaseViolation, "cannot commit in phase %s", r.phase)
	}
	if participantID == "" {
		return secerr.New(secerr.KindInvalidFormat, "participant id is empty")
	}
	if !primitive.IsSeedHex(commitmentHex) {
		return secerr.New(secerr.KindInvalidFormat, "commitment must be 64 lowercase hex characters")
	}
	if _, ok := r.commitments[participantID]; ok {
		return secerr.Newf(secerr.KindPhaseViolation, "participant %s already committed", participantID)
	}
	r.commitments[participantID] = &Commitment{
		ParticipantID: participantID,
		CommitmentHex: commitmentHex,
		CommittedAt:   r.clock.Now(),
	}
	r.order = append(r.order, participantID)
	return nil
}

// SealCommitments closes the commitment phase. The timestamp that later
// feeds the final seed is captured here, before any reveal is seen, and a
// hash commitment to it is recorded. This ordering is the anti-grinding
// invariant: the server cannot pick a timestamp after learning the seeds.
func (r *Run) SealCommitments() error {
	if r.phase != PhaseAwaitingCommitments {
		return secerr.Newf(secerr.KindPhaseViolation, "cannot seal in phase %s", r.phase)
	}
	if len(r.commitments) == 0 {
		return secerr.New(secerr.KindPhaseViolation, "cannot seal without commitments")
	}
	r.committedAt = r.clock.Now()
	r.timestampCommitment = primitive.SHA256Hex([]byte(r.timestampString()))
	r.phase = PhaseCommitmentsSealed
	return nil
}

// Reveal verifies the disclosed seed against the stored commitment and
// records it. Late reveals (past the deadline since the participant's own
// commitment) are rejected and the participant is flagged for quorum
// exclusion.
func (r *Run) Reveal(participantID, seed string) error {
	if r.phase != PhaseCommitmentsSealed {
		return secerr.Newf(secerr.KindPhaseViolation, "cannot reveal in phase %s", r.phase)
	}
	c, ok := r.commitments[participantID]
	if !ok {
		return secerr.Newf(secerr.KindPhaseViolation, "participant %s never committed", participantID)
	}
	if _, ok := r.reveals[participantID]; ok {
		return secerr.Newf(secerr.KindPhaseViolation, "participant %s already revealed", participantID)
	}
	if !primitive.IsSeedHex(seed) {
		return secerr.New(secerr.KindInvalidFormat, "seed must be 64 lowercase hex characters")
	}
	now := r.clock.Now()
	if r.revealDeadline > 0 && now.Sub(c.CommittedAt) > r.revealDeadline {
		r.late[participantID] = true
		return secerr.Newf(secerr.KindLateReveal, "participant %s revealed %s after committing, past the %s deadline",
			participantID, now.Sub(c.CommittedAt), r.revealDeadline)
	}
	if !primitive.ConstantTimeEqualHex(primitive.SHA256Hex([]byte(seed)), c.CommitmentHex) {
		return secerr.Newf(secerr.KindCommitmentMismatch, "seed from %s does not hash to its commitment", participantID)
	}
	r.reveals[participantID] = &Reveal{
		ParticipantID: participantID,
		Seed:          seed,
		RevealedAt:    now,
	}
	return nil
}

// IsLate reports whether the participant has been flagged for revealing past
// the deadline.
func (r *Run) IsLate(participantID string) bool {
	return r.late[participantID]
}

// FinalizeSeed combines all reveals into the final seed. Every committed
// participant must have revealed; use FinalizeWithFallback when late
// participants are to be excluded.
func (r *Run) FinalizeSeed() (string, error) {
	if r.phase != PhaseCommitmentsSealed {
		return "", secerr.Newf(secerr.KindPhaseViolation, "cannot finalize in phase %s", r.phase)
	}
	if len(r.reveals) != len(r.commitments) {
		return "", secerr.Newf(secerr.KindIncompleteReveal, "have %d of %d reveals", len(r.reveals), len(r.commitments))
	}
	r.finalSeed = r.combineSeeds(r.revealedIDs())
	r.phase = PhaseComplete
	return r.finalSeed, nil
}

// FinalizeWithFallback combines the reveals that arrived on time, excluding
// late and withholding participants. At least one on-time reveal is
// required; whether partial entropy is acceptable is the game layer's call.
// The run terminates in timeout_partial.
func (r *Run) FinalizeWithFallback() (string, error) {
	if r.phase != PhaseCommitmentsSealed {
		return "", secerr.Newf(secerr.KindPhaseViolation, "cannot finalize in phase %s", r.phase)
	}
	ids := r.revealedIDs()
	if len(ids) == 0 {
		r.phase = PhaseFallback
		return "", secerr.New(secerr.KindIncompleteReveal, "no on-time reveals to fall back on")
	}
	r.finalSeed = r.combineSeeds(ids)
	if len(ids) == len(r.commitments) {
		r.phase = PhaseComplete
	} else {
		r.phase = PhaseTimeoutPartial
	}
	return r.finalSeed, nil
}

// combineSeeds computes SHA256(join(sortedSeeds, "||") + "||" + committedTimestamp).
// Sorting by participant id makes the result independent of arrival order.
func (r *Run) combineSeeds(ids []string) string {
	sort.Strings(ids)
	parts := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		parts = append(parts, r.reveals[id].Seed)
	}
	parts = append(parts, r.timestampString())
	return primitive.SHA256Hex([]byte(strings.Join(parts, "||")))
}

func (r *Run) revealedIDs() []string {
	ids := make([]string, 0, len(r.reveals))
	for id := range r.reveals {
		ids = append(ids, id)
	}
	return ids
}

func (r *Run) timestampString() string {
	return strconv.FormatInt(r.committedAt.UnixMilli(), 10)
}

// FinalSeed returns the combined seed, or "" before finalization.
func (r *Run) FinalSeed() string { return r.finalSeed }

// CommittedAt returns the timestamp captured when the commitment phase
// sealed.
func (r *Run) CommittedAt() time.Time { return r.committedAt }

// TimestampCommitment returns the hash commitment to the sealed timestamp.
func (r *Run) TimestampCommitment() string { return r.timestampCommitment }

// Commitments returns the accepted commitments in insertion order.
func (r *Run) Commitments() []Commitment {
	out := make([]Commitment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.commitments[id])
	}
	return out
}

// Reveals returns the accepted reveals sorted by participant id.
func (r *Run) Reveals() []Reveal {
	ids := r.revealedIDs()
	sort.Strings(ids)
	out := make([]Reveal, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.reveals[id])
	}
	return out
}
