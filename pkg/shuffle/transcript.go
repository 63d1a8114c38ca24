package shuffle

import (
	"strconv"
	"strings"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/randomness"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// TranscriptVersion identifies the transcript wire format.
const TranscriptVersion = 1

// TranscriptCommitment is one participant's published commitment.
type TranscriptCommitment struct {
	ParticipantID string `json:"participantId"`
	Commitment    string `json:"commitment"`
}

// TranscriptReveal publishes only the hash of the revealed seed, which for
// an honest reveal equals the commitment. Raw seeds stay private.
type TranscriptReveal struct {
	ParticipantID string `json:"participantId"`
	SeedHash      string `json:"seedHash"`
}

// Transcript is a self-contained, replayable audit record of one protocol
// run. A third party holding only the transcript and the original deck can
// re-derive the shuffle and check every published hash.
type Transcript struct {
	Version                  int                    `json:"version"`
	GameID                   string                 `json:"gameId"`
	Timestamp                int64                  `json:"timestamp"`
	TimestampCommitment      string                 `json:"timestampCommitment"`
	Commitments              []TranscriptCommitment `json:"commitments"`
	Reveals                  []TranscriptReveal     `json:"reveals"`
	FinalSeed                string                 `json:"finalSeed"`
	OriginalHash             string                 `json:"originalHash"`
	ShuffledHash             string                 `json:"shuffledHash"`
	Permutation              []int                  `json:"permutation"`
	TranscriptHash           string                 `json:"transcriptHash"`
	VerificationInstructions []string               `json:"verificationInstructions"`
}

var verificationInstructions = []string{
	"1. Verify each reveal's seedHash equals the matching participant's commitment",
	"2. Recompute the final seed as SHA256(join(sortedSeeds, \"||\") + \"||\" + timestamp) from the disclosed seeds",
	"3. Recompute the deterministic shuffle of the original deck from finalSeed",
	"4. Verify the permutation, originalHash and shuffledHash against the recomputed shuffle",
}

// BuildTranscript assembles the audit record for a finalized run and its
// shuffle output.
func BuildTranscript(run *randomness.Run, original, shuffled []string, perm []int) (*Transcript, error) {
	if run.FinalSeed() == "" {
		return nil, secerr.New(secerr.KindPhaseViolation, "run has no final seed")
	}
	tr := &Transcript{
		Version:             TranscriptVersion,
		GameID:              run.GameID(),
		Timestamp:           run.CommittedAt().UnixMilli(),
		TimestampCommitment: run.TimestampCommitment(),
		FinalSeed:           run.FinalSeed(),
		OriginalHash:        hashDeck(original),
		ShuffledHash:        hashDeck(shuffled),
		Permutation:         perm,
	}
	for _, c := range run.Commitments() {
		tr.Commitments = append(tr.Commitments, TranscriptCommitment{
			ParticipantID: c.ParticipantID,
			Commitment:    c.CommitmentHex,
		})
	}
	for _, rv := range run.Reveals() {
		tr.Reveals = append(tr.Reveals, TranscriptReveal{
			ParticipantID: rv.ParticipantID,
			SeedHash:      primitive.SHA256Hex([]byte(rv.Seed)),
		})
	}
	tr.TranscriptHash = tr.computeHash()
	tr.VerificationInstructions = verificationInstructions
	return tr, nil
}

// computeHash covers gameId, commitments, final seed and the sealed
// timestamp.
func (tr *Transcript) computeHash() string {
	parts := []string{tr.GameID}
	for _, c := range tr.Commitments {
		parts = append(parts, c.ParticipantID+":"+c.Commitment)
	}
	parts = append(parts, tr.FinalSeed, strconv.FormatInt(tr.Timestamp, 10))
	return primitive.SHA256Hex([]byte(strings.Join(parts, "|")))
}

// VerifyTranscript replays the transcript against the original deck. It
// checks the transcript hash, the timestamp commitment, each reveal against
// its commitment, and recomputes the shuffle from the final seed.
func VerifyTranscript(tr *Transcript, original []string) error {
	if tr.Version != TranscriptVersion {
		return secerr.Newf(secerr.KindInvalidFormat, "unsupported transcript version %d", tr.Version)
	}
	if !primitive.ConstantTimeEqualHex(tr.computeHash(), tr.TranscriptHash) {
		return secerr.New(secerr.KindTamperingDetected, "transcript hash mismatch")
	}
	tsHash := primitive.SHA256Hex([]byte(strconv.FormatInt(tr.Timestamp, 10)))
	if !primitive.ConstantTimeEqualHex(tsHash, tr.TimestampCommitment) {
		return secerr.New(secerr.KindTamperingDetected, "timestamp does not match its commitment")
	}
	commitments := make(map[string]string, len(tr.Commitments))
	for _, c := range tr.Commitments {
		commitments[c.ParticipantID] = c.Commitment
	}
	for _, rv := range tr.Reveals {
		want, ok := commitments[rv.ParticipantID]
		if !ok {
			return secerr.Newf(secerr.KindTamperingDetected, "reveal from %s has no commitment", rv.ParticipantID)
		}
		if !primitive.ConstantTimeEqualHex(rv.SeedHash, want) {
			return secerr.Newf(secerr.KindCommitmentMismatch, "reveal from %s does not match its commitment", rv.ParticipantID)
		}
	}
	if hashDeck(original) != tr.OriginalHash {
		return secerr.New(secerr.KindTamperingDetected, "original deck hash mismatch")
	}
	shuffled, perm, err := Deterministic(original, tr.FinalSeed)
	if err != nil {
		return err
	}
	if !IsPermutation(tr.Permutation, len(original)) {
		return secerr.New(secerr.KindTamperingDetected, "permutation is not a bijection")
	}
	for i := range perm {
		if perm[i] != tr.Permutation[i] {
			return secerr.New(secerr.KindTamperingDetected, "permutation does not match the recomputed shuffle")
		}
	}
	if hashDeck(shuffled) != tr.ShuffledHash {
		return secerr.New(secerr.KindTamperingDetected, "shuffled deck hash mismatch")
	}
	return nil
}

func hashDeck(deck []string) string {
	return primitive.SHA256Hex([]byte(strings.Join(deck, "|")))
}
