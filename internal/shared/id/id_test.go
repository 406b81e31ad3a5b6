package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := g.Generate().String()
		_, dup := seen[s]
		require.False(t, dup, "duplicate ULID %s", s)
		seen[s] = struct{}{}
	}
}

func TestTypedPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewCandidateID().String(), CandidatePrefix+"_"))
	assert.True(t, strings.HasPrefix(NewSessionID().String(), SessionPrefix+"_"))
	assert.True(t, strings.HasPrefix(NewRequestID().String(), RequestPrefix+"_"))
}

func TestDeterministicEntropy(t *testing.T) {
	g := NewGeneratorWithEntropy(strings.NewReader(strings.Repeat("a", 64)))

	first := g.Generate()
	second := g.Generate()
	assert.NotEqual(t, first.String(), second.String(), "entropy must advance")
}
