package testutil

import (
	"fmt"
	"sync/atomic"
)

// FixedIDGenerator returns the same identifier every time.
//
// Used wherever production code stamps records with UUIDv7 ids, so journal
// rows and update events compare byte-for-byte across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-id-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-id-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns prefix-0001, prefix-0002, ...
//
// Thread-safety: All methods are safe for concurrent use.
type SequentialIDGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequentialIDGenerator creates a generator. An empty prefix means "edit".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "edit"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
