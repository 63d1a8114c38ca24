package crypto

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"

	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// DefaultMessageMaxAge bounds how old an in-flight message may be before it
// is rejected as stale regardless of its sequence number.
const DefaultMessageMaxAge = 5 * time.Minute

// messageBody is the authenticated plaintext. Sequence and timestamp live
// inside the AEAD boundary so they cannot be stripped or rewritten.
type messageBody struct {
	Seq     uint64          `json:"seq"`
	SentAt  int64           `json:"sentAt"`
	Payload json.RawMessage `json:"payload"`
}

// MessageEncryptor protects in-flight payloads per client with the derived
// client key, a monotonically increasing sequence number and a staleness
// window.
type MessageEncryptor struct {
	svc    *Service
	clock  time2.Clock
	maxAge time.Duration

	mu      sync.Mutex
	nextSeq map[string]uint64
	seen    map[string]uint64
}

// NewMessageEncryptor wraps the AEAD service; maxAge zero means
// DefaultMessageMaxAge.
func NewMessageEncryptor(svc *Service, clock time2.Clock, maxAge time.Duration) *MessageEncryptor {
	if maxAge <= 0 {
		maxAge = DefaultMessageMaxAge
	}
	return &MessageEncryptor{
		svc:     svc,
		clock:   clock,
		maxAge:  maxAge,
		nextSeq: make(map[string]uint64),
		seen:    make(map[string]uint64),
	}
}

// EncryptMessage seals payload for the client, embedding the next sequence
// number and the send timestamp inside the authenticated plaintext.
func (m *MessageEncryptor) EncryptMessage(clientID string, payload []byte) (*Envelope, error) {
	m.mu.Lock()
	m.nextSeq[clientID]++
	seq := m.nextSeq[clientID]
	m.mu.Unlock()

	body, err := json.Marshal(messageBody{
		Seq:     seq,
		SentAt:  m.clock.Now().UnixMilli(),
		Payload: payload,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message body")
	}
	return Encrypt(body, m.svc.ClientKey(clientID), "msg_"+clientID)
}

// DecryptMessage opens a client message and enforces replay protection: a
// sequence at or below the highest seen for the client is rejected, and
// messages older than the max-age window are rejected as stale even with a
// valid sequence.
func (m *MessageEncryptor) DecryptMessage(clientID string, env *Envelope) ([]byte, error) {
	plaintext, err := Decrypt(env, m.svc.ClientKey(clientID), "msg_"+clientID)
	if err != nil {
		return nil, err
	}
	var body messageBody
	if err := json.Unmarshal(plaintext, &body); err != nil {
		return nil, secerr.Wrap(secerr.KindDecryptionFailed, err, "message body is malformed")
	}
	if age := m.clock.Now().Sub(time.UnixMilli(body.SentAt)); age > m.maxAge {
		return nil, secerr.Newf(secerr.KindExpired, "message is %s old, max age is %s", age, m.maxAge)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if body.Seq <= m.seen[clientID] {
		return nil, secerr.Newf(secerr.KindReplayed, "sequence %d not above highest seen %d", body.Seq, m.seen[clientID])
	}
	m.seen[clientID] = body.Seq
	return body.Payload, nil
}
