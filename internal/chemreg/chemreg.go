// internal/chemreg/chemreg.go
// Package chemreg registers named chemistry backends. A backend bundles
// the structure analyzer, synthon decomposer, filter catalogs and
// sociability scorer the higher sieve modes require; the basic mode
// runs with none. Backends register from init() in their own package
// (typically behind a build tag when they need cgo bindings).
package chemreg

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"chemsift-core/chem"
)

// Backend is a complete set of chemistry collaborators.
type Backend struct {
	Analyzer    chem.Analyzer
	Decomposer  chem.Decomposer
	Filters     []chem.FilterCatalog
	Sociability chem.SociabilityScorer
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register makes a backend available under name. Registering the same
// name twice panics: it is a wiring bug, not a runtime condition.
func Register(name string, b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("chemreg: backend %q registered twice", name))
	}
	backends[name] = b
}

// Get looks a backend up by name.
func Get(name string) (Backend, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	if !ok {
		if names := sortedNames(); len(names) > 0 {
			return Backend{}, fmt.Errorf("chemreg: unknown backend %q (registered: %s)", name, strings.Join(names, ", "))
		}
		return Backend{}, fmt.Errorf("chemreg: unknown backend %q (none registered; only basic mode is available)", name)
	}
	return b, nil
}

// Names lists the registered backends, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedNames()
}

func sortedNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
