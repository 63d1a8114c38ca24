// Package primitive holds the leaf cryptographic helpers the rest of the
// fairness core builds on: timing-safe comparison, nonce generation and
// HMAC/HKDF key derivation. It has no dependencies on the other packages.
package primitive

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"regexp"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	// SeedBytes is the size of participant seeds and commitments (32 bytes).
	SeedBytes = 32
	// KeySizeAES256 is the key size for AES-256 (32 bytes).
	KeySizeAES256 = 32
)

var seedHexRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ConstantTimeEqual compares two byte slices in constant time. Unequal
// lengths return false immediately; beyond the length check no timing
// information about the contents leaks.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeEqualHex decodes both operands and compares them in constant
// time. Malformed hex compares unequal.
func ConstantTimeEqualHex(a, b string) bool {
	ab, err := hex.DecodeString(a)
	if err != nil {
		return false
	}
	bb, err := hex.DecodeString(b)
	if err != nil {
		return false
	}
	return ConstantTimeEqual(ab, bb)
}

// RandomNonce returns n cryptographically random bytes.
func RandomNonce(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	return buf, nil
}

// RandomSeedHex returns a fresh 32-byte seed as lowercase hex.
func RandomSeedHex() (string, error) {
	buf, err := RandomNonce(SeedBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsSeedHex reports whether s is exactly 64 lowercase hex characters, the
// wire format for seeds and commitments.
func IsSeedHex(s string) bool {
	return seedHexRe.MatchString(s)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DeriveKey derives a 32-byte key from secret bound to context via
// HMAC-SHA256. Derived keys are never stored; callers recompute them from
// (secret, context) on demand, so a leaked derived key exposes neither the
// secret nor sibling derivations.
func DeriveKey(secret []byte, context string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(context))
	return mac.Sum(nil)
}

// HMACSHA256 computes the HMAC-SHA256 tag of payload under key.
func HMACSHA256(key, payload []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// ExpandKey derives n bytes of key material from secret using HKDF-SHA256
// with the given salt and info string.
func ExpandKey(secret, salt []byte, info string, n int) ([]byte, error) {
	kdf := hkdf.New(sha256.New, secret, salt, []byte(info))
	key := make([]byte, n)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, errors.Wrap(err, "failed to expand key")
	}
	return key, nil
}
