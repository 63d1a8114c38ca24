// Package crypto provides authenticated encryption for sensitive game
// payloads. All keys are derived on demand from a single master key bound
// to a context string, so no per-entity key is ever stored and a leaked
// derived key exposes neither the master key nor sibling keys.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/austin1233211/indian-poker-sub000/pkg/primitive"
	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

const (
	// AESGCMNonceSize is the standard nonce size for GCM (12 bytes).
	AESGCMNonceSize = 12
	// GCMTagSize is the authentication tag size (16 bytes).
	GCMTagSize = 16
)

// Envelope is the transport form of an encrypted payload. All fields are
// standard base64.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
}

// Service encrypts and decrypts with AES-256-GCM under context-derived
// keys.
type Service struct {
	master    []byte
	ephemeral bool
}

// NewService creates the AEAD service. masterKeyHex comes from
// configuration; when empty an ephemeral key is generated and a production
// warning is logged, since nothing encrypted under it survives a restart.
func NewService(masterKeyHex string) (*Service, error) {
	if masterKeyHex == "" {
		key, err := primitive.RandomNonce(primitive.KeySizeAES256)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate ephemeral master key")
		}
		log.Warn().Msg("no persistent master key configured, using ephemeral key; encrypted state will not survive a restart")
		return &Service{master: key, ephemeral: true}, nil
	}
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "master key is not valid hex")
	}
	if len(key) != primitive.KeySizeAES256 {
		return nil, errors.Errorf("master key must be %d bytes, got %d", primitive.KeySizeAES256, len(key))
	}
	return &Service{master: key}, nil
}

// Ephemeral reports whether the service runs on a generated master key.
func (s *Service) Ephemeral() bool { return s.ephemeral }

// GameKey derives the symmetric key for a game.
func (s *Service) GameKey(gameID string) []byte {
	return primitive.DeriveKey(s.master, "game:"+gameID)
}

// ClientKey derives the symmetric key for a client.
func (s *Service) ClientKey(clientID string) []byte {
	return primitive.DeriveKey(s.master, "client:"+clientID)
}

// GameClientKey derives the key for one client within one game.
func (s *Service) GameClientKey(gameID, clientID string) []byte {
	return primitive.DeriveKey(s.master, "game:"+gameID+":client:"+clientID)
}

// CardContext builds the associated-data string binding a card ciphertext
// to its game and player.
func CardContext(gameID, playerID string) string {
	return fmt.Sprintf("card_%s_%s", gameID, playerID)
}

// Encrypt seals plaintext under key with aad as associated data. The aad
// binds the ciphertext to its context: replaying it under a different game
// or player fails authentication even if the key were reused.
func Encrypt(plaintext, key []byte, aad string) (*Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, err := primitive.RandomNonce(AESGCMNonceSize)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, []byte(aad))
	ct, tag := sealed[:len(sealed)-GCMTagSize], sealed[len(sealed)-GCMTagSize:]
	return &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens an envelope. Any authentication failure surfaces as
// DecryptionFailed; the payload is discarded, never partially processed.
func Decrypt(env *Envelope, key []byte, aad string) ([]byte, error) {
	if env == nil {
		return nil, secerr.New(secerr.KindInvalidFormat, "envelope is nil")
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, secerr.Wrap(secerr.KindInvalidFormat, err, "ciphertext is not valid base64")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, secerr.Wrap(secerr.KindInvalidFormat, err, "iv is not valid base64")
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil {
		return nil, secerr.Wrap(secerr.KindInvalidFormat, err, "auth tag is not valid base64")
	}
	if len(nonce) != AESGCMNonceSize || len(tag) != GCMTagSize {
		return nil, secerr.New(secerr.KindInvalidFormat, "envelope has wrong nonce or tag length")
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, append(ct, tag...), []byte(aad))
	if err != nil {
		return nil, secerr.Wrap(secerr.KindDecryptionFailed, err, "authentication failed")
	}
	return plaintext, nil
}

// EncryptForGame seals plaintext under the game-derived key.
func (s *Service) EncryptForGame(gameID string, plaintext []byte, aad string) (*Envelope, error) {
	return Encrypt(plaintext, s.GameKey(gameID), aad)
}

// DecryptForGame opens an envelope sealed under the game-derived key.
func (s *Service) DecryptForGame(gameID string, env *Envelope, aad string) ([]byte, error) {
	return Decrypt(env, s.GameKey(gameID), aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcm")
	}
	return gcm, nil
}
