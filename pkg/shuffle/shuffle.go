// Package shuffle derives a reproducible permutation from a seed. The same
// (input, seed) pair always yields the same shuffled order and permutation,
// so anyone holding the seed can recompute and audit the result.
package shuffle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// byteStream yields a deterministic byte sequence derived from a seed by
// SHA-256 chaining: the current block is rehashed whenever it is exhausted.
type byteStream struct {
	state [sha256.Size]byte
	off   int
}

func newByteStream(seed []byte) *byteStream {
	s := &byteStream{state: sha256.Sum256(seed)}
	return s
}

func (s *byteStream) next4() uint32 {
	if s.off+4 > sha256.Size {
		s.state = sha256.Sum256(s.state[:])
		s.off = 0
	}
	v := binary.BigEndian.Uint32(s.state[s.off:])
	s.off += 4
	return v
}

// uniformIndex draws a uniform integer in [0, n) by rejection sampling over
// a 32-bit window. Plain modulo would bias any n that does not evenly
// divide 2^32.
func uniformIndex(s *byteStream, n uint32) uint32 {
	limit := (uint64(1) << 32) / uint64(n) * uint64(n)
	for {
		v := s.next4()
		if uint64(v) < limit {
			return v % n
		}
	}
}

// Deterministic shuffles original with a Fisher-Yates walk from the end,
// drawing each swap index from the seed-derived stream. It returns a new
// slice plus the permutation of original indices (shuffled[k] ==
// original[perm[k]]); the input is never mutated.
func Deterministic[T any](original []T, seedHex string) ([]T, []int, error) {
	seed, err := decodeSeed(seedHex)
	if err != nil {
		return nil, nil, err
	}
	n := len(original)
	shuffled := make([]T, n)
	copy(shuffled, original)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	stream := newByteStream(seed)
	for i := n - 1; i > 0; i-- {
		j := int(uniformIndex(stream, uint32(i+1)))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		perm[i], perm[j] = perm[j], perm[i]
	}
	return shuffled, perm, nil
}

// Verify recomputes the shuffle from scratch and compares both the shuffled
// order and the permutation. Any mismatch is a fairness violation.
func Verify[T comparable](original, claimedShuffled []T, claimedPerm []int, seedHex string) (bool, error) {
	shuffled, perm, err := Deterministic(original, seedHex)
	if err != nil {
		return false, err
	}
	if len(claimedShuffled) != len(shuffled) || len(claimedPerm) != len(perm) {
		return false, nil
	}
	for i := range shuffled {
		if shuffled[i] != claimedShuffled[i] || perm[i] != claimedPerm[i] {
			return false, nil
		}
	}
	return true, nil
}

// IsPermutation reports whether perm is a bijection on [0, n).
func IsPermutation(perm []int, n int) bool {
	if len(perm) != n {
		return false
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

func decodeSeed(seedHex string) ([]byte, error) {
	if !primitive.IsSeedHex(seedHex) {
		return nil, secerr.New(secerr.KindInvalidFormat, "seed must be 64 lowercase hex characters")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, secerr.Wrap(secerr.KindInvalidFormat, errors.WithStack(err), "seed is not valid hex")
	}
	return seed, nil
}
