// core/chem/memo.go
package chem

import "sync"

// MemoScorer caches sociability scores by Molecule.Identity so the same
// fragment is never sent to the (expensive) scorer twice. Safe for
// concurrent use; the cache is an optimization, not a correctness
// requirement.
type MemoScorer struct {
	mu    sync.RWMutex
	seen  map[string]float64
	inner SociabilityScorer
}

// NewMemoScorer wraps inner with an identity-keyed memo cache.
func NewMemoScorer(inner SociabilityScorer) *MemoScorer {
	return &MemoScorer{seen: make(map[string]float64), inner: inner}
}

func (m *MemoScorer) Score(frag Molecule) float64 {
	key := frag.Identity()
	m.mu.RLock()
	v, ok := m.seen[key]
	m.mu.RUnlock()
	if ok {
		return v
	}
	v = m.inner.Score(frag)
	m.mu.Lock()
	m.seen[key] = v
	m.mu.Unlock()
	return v
}

// Len reports the number of memoized fragments.
func (m *MemoScorer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
