// Package id provides centralized ID generation for the shell.
//
// Activity ids are prefixed ULIDs: lexicographically sortable, unique
// across the session, and readable in logs (act_*, raw_*). Placeholder
// records synthesized from unresolved windows use the raw_ prefix so
// they are distinguishable from confirmed activity ids.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActivityID identifies a tracked activity instance
type ActivityID string

const (
	// ActivityPrefix marks ids minted for launch intents
	ActivityPrefix = "act"
	// PlaceholderPrefix marks synthesized ids for window-only records
	PlaceholderPrefix = "raw"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand entropy
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewActivityID generates an id for a launch intent
func NewActivityID() ActivityID {
	return ActivityID(Default().GenerateWithPrefix(ActivityPrefix))
}

// NewPlaceholderID generates a synthesized id for a window-only record
func NewPlaceholderID() ActivityID {
	return ActivityID(Default().GenerateWithPrefix(PlaceholderPrefix))
}

func (id ActivityID) String() string { return string(id) }
