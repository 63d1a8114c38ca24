package crypto

import (
	"encoding/hex"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
)

// Authenticator signs and verifies arbitrary payloads with per-client
// HMAC-SHA256 keys derived from the master key.
type Authenticator struct {
	master []byte
}

// NewAuthenticator derives its per-client keys from the service's master
// key.
func NewAuthenticator(svc *Service) *Authenticator {
	return &Authenticator{master: svc.master}
}

// Sign returns the lowercase hex HMAC-SHA256 tag of payload under the
// client's derived key.
func (a *Authenticator) Sign(clientID string, payload []byte) string {
	key := primitive.DeriveKey(a.master, "auth:"+clientID)
	return hex.EncodeToString(primitive.HMACSHA256(key, payload))
}

// Verify checks a tag in constant time to avoid timing side-channels on
// signature verification.
func (a *Authenticator) Verify(clientID string, payload []byte, tagHex string) bool {
	tag, err := hex.DecodeString(tagHex)
	if err != nil {
		return false
	}
	key := primitive.DeriveKey(a.master, "auth:"+clientID)
	return primitive.ConstantTimeEqual(primitive.HMACSHA256(key, payload), tag)
}
