// Package id provides typed ULID generation.
//
// Synthesized candidate identities need to be unique across query
// generations (the join side-caches key on them) and cheap to mint during a
// recompute; ULIDs give both plus k-sortability for debugging. Prefixes keep
// the ID kinds apart in logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CandidateID identifies a synthesized direct-share candidate.
type CandidateID string

// SessionID identifies a per-profile resolution session.
type SessionID string

// RequestID identifies an API request.
type RequestID string

const (
	CandidatePrefix = "cand"
	SessionPrefix   = "sess"
	RequestPrefix   = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewCandidateID generates a new candidate ID.
func NewCandidateID() CandidateID {
	return CandidateID(Default().GenerateWithPrefix(CandidatePrefix))
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id CandidateID) String() string { return string(id) }
func (id SessionID) String() string   { return string(id) }
func (id RequestID) String() string   { return string(id) }
