package shuffle

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

func testSeed(label string) string {
	return primitive.SHA256Hex([]byte(label))
}

func identityDeck(n int) []int {
	deck := make([]int, n)
	for i := range deck {
		deck[i] = i
	}
	return deck
}

func TestDeterministicIsReproducible(t *testing.T) {
	deck := identityDeck(52)
	seed := testSeed("round-1")

	s1, p1, err := Deterministic(deck, seed)
	require.NoError(t, err)
	s2, p2, err := Deterministic(deck, seed)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, identityDeck(52), deck, "input must not be mutated")
}

func TestDifferentSeedsDiverge(t *testing.T) {
	deck := identityDeck(52)

	s1, _, err := Deterministic(deck, testSeed("round-1"))
	require.NoError(t, err)
	s2, _, err := Deterministic(deck, testSeed("round-2"))
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
}

func TestPermutationLinksShuffledToOriginal(t *testing.T) {
	deck := []string{"Ah", "Kh", "Qh", "Jh", "Th", "9h", "8h"}
	shuffled, perm, err := Deterministic(deck, testSeed("linkage"))
	require.NoError(t, err)

	for k := range shuffled {
		assert.Equal(t, deck[perm[k]], shuffled[k])
	}
}

func TestPermutationIsBijection(t *testing.T) {
	// Property check over assorted lengths and seeds, including the empty
	// and single-element edge cases.
	for _, n := range []int{0, 1, 2, 3, 13, 52, 101} {
		for trial := 0; trial < 10; trial++ {
			seed := testSeed(fmt.Sprintf("bijection-%d-%d", n, trial))
			_, perm, err := Deterministic(identityDeck(n), seed)
			require.NoError(t, err)
			assert.True(t, IsPermutation(perm, n), "n=%d trial=%d", n, trial)
		}
	}
}

func TestInvalidSeedRejected(t *testing.T) {
	_, _, err := Deterministic(identityDeck(5), "abc")
	assert.Equal(t, secerr.KindInvalidFormat, secerr.KindOf(err))

	_, _, err = Deterministic(identityDeck(5), "")
	assert.Equal(t, secerr.KindInvalidFormat, secerr.KindOf(err))
}

func TestVerify(t *testing.T) {
	deck := identityDeck(52)
	seed := testSeed("verify")
	shuffled, perm, err := Deterministic(deck, seed)
	require.NoError(t, err)

	ok, err := Verify(deck, shuffled, perm, seed)
	require.NoError(t, err)
	assert.True(t, ok)

	// Mutating a single element is a fairness violation.
	tampered := append([]int(nil), shuffled...)
	tampered[10], tampered[20] = tampered[20], tampered[10]
	ok, err = Verify(deck, tampered, perm, seed)
	require.NoError(t, err)
	assert.False(t, ok)

	// So is a doctored permutation.
	badPerm := append([]int(nil), perm...)
	badPerm[0], badPerm[1] = badPerm[1], badPerm[0]
	ok, err = Verify(deck, shuffled, badPerm, seed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsPermutation(t *testing.T) {
	assert.True(t, IsPermutation([]int{2, 0, 1}, 3))
	assert.False(t, IsPermutation([]int{0, 0, 1}, 3), "duplicate index")
	assert.False(t, IsPermutation([]int{0, 1, 3}, 3), "out of range")
	assert.False(t, IsPermutation([]int{0, 1}, 3), "wrong length")
	assert.True(t, IsPermutation(nil, 0))
}

func TestUniformIndexUnbiased(t *testing.T) {
	// Frequency check of the rejection sampler for moduli that do not
	// divide 2^32. With trials/n expected per bucket a 10% tolerance is
	// far looser than the sampler's actual spread but tight enough to
	// catch modulo bias (which skews low buckets by ~2x at small n).
	for _, n := range []uint32{3, 51, 52} {
		const trials = 200000
		counts := make([]int, n)
		stream := newByteStream([]byte(fmt.Sprintf("uniformity-%d", n)))
		for i := 0; i < trials; i++ {
			counts[uniformIndex(stream, n)]++
		}
		expected := float64(trials) / float64(n)
		for idx, c := range counts {
			deviation := math.Abs(float64(c)-expected) / expected
			assert.Less(t, deviation, 0.10, "n=%d bucket=%d count=%d", n, idx, c)
		}
	}
}

func TestFirstSwapIndexCoversFullRange(t *testing.T) {
	// Across many seeds the last position must be able to swap with every
	// index including itself, i.e. j in [0, n-1] all occur.
	n := 5
	seen := make(map[int]bool)
	for trial := 0; trial < 200; trial++ {
		_, perm, err := Deterministic(identityDeck(n), testSeed(fmt.Sprintf("coverage-%d", trial)))
		require.NoError(t, err)
		seen[perm[n-1]] = true
	}
	assert.Len(t, seen, n)
}
