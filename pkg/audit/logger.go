// Package audit records every security-relevant step: an append-only
// structured log, tamper-evident checkpoints of committed game state, and
// threshold-based operation monitoring.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultMaxEntries bounds the in-memory log.
const DefaultMaxEntries = 10000

// Category groups audit events.
type Category string

const (
	CategoryAuth     Category = "auth"
	CategoryCrypto   Category = "crypto"
	CategoryGame     Category = "game"
	CategorySecurity Category = "security"
	CategoryError    Category = "error"
)

// Entry is one audit record.
type Entry struct {
	ID       string            `json:"id"`
	At       time.Time         `json:"at"`
	Category Category          `json:"category"`
	Event    string            `json:"event"`
	ClientID string            `json:"clientId,omitempty"`
	GameID   string            `json:"gameId,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Logger is an append-only, size-bounded audit log. Each entry is also
// mirrored to the zerolog sink so operators see events in the service log
// stream.
type Logger struct {
	mu         sync.Mutex
	clock      time2.Clock
	sink       zerolog.Logger
	maxEntries int
	entries    []Entry
}

// NewLogger creates a logger; maxEntries zero means DefaultMaxEntries.
func NewLogger(clock time2.Clock, sink zerolog.Logger, maxEntries int) *Logger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Logger{clock: clock, sink: sink, maxEntries: maxEntries}
}

// Log appends an entry, evicting the oldest when the bound is reached.
func (l *Logger) Log(category Category, event, clientID, gameID string, fields map[string]string) Entry {
	e := Entry{
		ID:       uuid.NewString(),
		At:       l.clock.Now(),
		Category: category,
		Event:    event,
		ClientID: clientID,
		GameID:   gameID,
		Fields:   fields,
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
	l.mu.Unlock()

	ev := l.sink.Info()
	if category == CategoryError || category == CategorySecurity {
		ev = l.sink.Warn()
	}
	ev = ev.Str("auditCategory", string(category)).Str("event", event)
	if clientID != "" {
		ev = ev.Str("clientId", clientID)
	}
	if gameID != "" {
		ev = ev.Str("gameId", gameID)
	}
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
	return e
}

// Auth records an authentication event.
func (l *Logger) Auth(event, clientID string, fields map[string]string) Entry {
	return l.Log(CategoryAuth, event, clientID, "", fields)
}

// Crypto records a cryptographic operation event.
func (l *Logger) Crypto(event, gameID string, fields map[string]string) Entry {
	return l.Log(CategoryCrypto, event, "", gameID, fields)
}

// Game records a protocol-level game event.
func (l *Logger) Game(event, gameID string, fields map[string]string) Entry {
	return l.Log(CategoryGame, event, "", gameID, fields)
}

// Security records a security violation or suspicion.
func (l *Logger) Security(event, clientID, gameID string, fields map[string]string) Entry {
	return l.Log(CategorySecurity, event, clientID, gameID, fields)
}

// Error records a failure.
func (l *Logger) Error(event string, err error, fields map[string]string) Entry {
	if fields == nil {
		fields = map[string]string{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	return l.Log(CategoryError, event, "", "", fields)
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ExportJSON serializes the retained entries.
func (l *Logger) ExportJSON() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to export audit log")
	}
	return data, nil
}

// ExportText renders the retained entries one per line.
func (l *Logger) ExportText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "%s [%s] %s", e.At.Format(time.RFC3339), e.Category, e.Event)
		if e.ClientID != "" {
			fmt.Fprintf(&b, " client=%s", e.ClientID)
		}
		if e.GameID != "" {
			fmt.Fprintf(&b, " game=%s", e.GameID)
		}
		for k, v := range e.Fields {
			fmt.Fprintf(&b, " %s=%s", k, v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
