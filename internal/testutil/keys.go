package testutil

import (
	"fmt"
	"sync"
)

// SequenceKeyGenerator returns predictable key values: prefix-1, prefix-2, ...
//
// This enables deterministic test execution and golden plan comparison.
//
// Thread-safety: SequenceKeyGenerator is safe for concurrent use via internal mutex.
type SequenceKeyGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceKeyGenerator creates a generator. If prefix is empty, "key" is used.
func NewSequenceKeyGenerator(prefix string) *SequenceKeyGenerator {
	if prefix == "" {
		prefix = "key"
	}
	return &SequenceKeyGenerator{prefix: prefix}
}

// Generate returns the next key in sequence.
func (g *SequenceKeyGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceKeyGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
