// Package config assembles the fairness core's tunables from the
// environment. Every knob has a safe default so a zero-config start works;
// the master key is the only value operators must set for production.
package config

import (
	"os"
	"strconv"
	"time"
)

// Service bundles the configuration of all fairness core components.
type Service struct {
	// MasterKeyHex is the 32-byte AEAD master key as lowercase hex. Empty
	// means an ephemeral key is generated at startup (logged as a
	// production warning).
	MasterKeyHex string `json:"-"`

	RevealDeadline time.Duration `json:"revealDeadline"`
	ProofExpiry    time.Duration `json:"proofExpiry"`
	MessageMaxAge  time.Duration `json:"messageMaxAge"`

	SessionIdleTimeout time.Duration `json:"sessionIdleTimeout"`
	SessionWarnAfter   time.Duration `json:"sessionWarnAfter"`

	AuditMaxEntries int `json:"auditMaxEntries"`

	ProofGenerationPerHour int `json:"proofGenerationPerHour"`
	DeckCommitmentPerHour  int `json:"deckCommitmentPerHour"`
	HiddenCardPerMinute    int `json:"hiddenCardPerMinute"`
}

// DefaultServiceConfigFromEnv returns the service config with environment
// overrides applied.
func DefaultServiceConfigFromEnv() Service {
	return Service{
		MasterKeyHex:           getEnv("FAIRNESS_MASTER_KEY", ""),
		RevealDeadline:         getEnvAsDuration("FAIRNESS_REVEAL_DEADLINE", 30*time.Second),
		ProofExpiry:            getEnvAsDuration("FAIRNESS_PROOF_EXPIRY", time.Hour),
		MessageMaxAge:          getEnvAsDuration("FAIRNESS_MESSAGE_MAX_AGE", 5*time.Minute),
		SessionIdleTimeout:     getEnvAsDuration("FAIRNESS_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionWarnAfter:       getEnvAsDuration("FAIRNESS_SESSION_WARN_AFTER", 25*time.Minute),
		AuditMaxEntries:        getEnvAsInt("FAIRNESS_AUDIT_MAX_ENTRIES", 10000),
		ProofGenerationPerHour: getEnvAsInt("FAIRNESS_PROOF_GENERATION_PER_HOUR", 10),
		DeckCommitmentPerHour:  getEnvAsInt("FAIRNESS_DECK_COMMITMENT_PER_HOUR", 20),
		HiddenCardPerMinute:    getEnvAsInt("FAIRNESS_HIDDEN_CARD_PER_MINUTE", 10),
	}
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
