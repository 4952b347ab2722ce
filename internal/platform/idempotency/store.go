// Package idempotency guards mutating admin endpoints against duplicate
// submission. Clients send an Idempotency-Key header; the first request runs
// and its response is stored, retries with the same key replay that response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL bounds how long a completed record can be replayed.
const DefaultTTL = 24 * time.Hour

// Status tracks a record through its lifecycle.
type Status string

const (
	// StatusPending marks a key claimed by an in-flight request.
	StatusPending Status = "pending"
	// StatusCompleted marks a key whose response is stored and replayable.
	StatusCompleted Status = "completed"
)

// ErrFingerprintMismatch signals that a key was reused for a different
// request shape, which is a client error rather than a retry.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// Outcome says what the store found when a request tried to claim a key.
type Outcome int

const (
	// OutcomeNew means the key is now claimed and the handler should run.
	OutcomeNew Outcome = iota
	// OutcomeReplay means a stored response exists and should be returned.
	OutcomeReplay
	// OutcomeInFlight means another request holds the key right now.
	OutcomeInFlight
)

// Claim is the result of trying to take a key.
type Claim struct {
	Outcome Outcome
	Record  Record
}

// Record is the persisted state for one key.
type Record struct {
	Key             string
	Fingerprint     string
	Status          Status
	ResponseStatus  int
	ResponseHeaders map[string][]string
	ResponseBody    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// StoredResponse carries the handler output to be persisted for replays.
type StoredResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists key claims and their responses.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error)
	Complete(ctx context.Context, key, fingerprint string, resp StoredResponse, now time.Time, ttl time.Duration) error
	Forget(ctx context.Context, key, fingerprint string) error
	PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// docID derives a stable document identifier from the scoped key.
func docID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// storableHeaders copies header values, dropping hop-by-hop and derived
// headers that must not be replayed verbatim.
func storableHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	kept := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if skipHeader(canonical) {
			continue
		}
		kept[canonical] = append([]string(nil), values...)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func skipHeader(name string) bool {
	switch strings.ToLower(name) {
	case "content-length", "date", "connection", "keep-alive", "proxy-authenticate",
		"proxy-authorization", "te", "trailers", "transfer-encoding", "upgrade":
		return true
	}
	return false
}

func headersFromRecord(values map[string][]string) http.Header {
	header := make(http.Header, len(values))
	for name, vals := range values {
		header[name] = append([]string(nil), vals...)
	}
	return header
}
