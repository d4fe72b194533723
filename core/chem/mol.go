// core/chem/mol.go
// Package chem defines the minimal capabilities chemsift needs from a
// structure-analysis backend. Any backend (including fakes in tests) can
// satisfy these; the sieve never depends on a concrete chemistry toolkit.
package chem

// Molecule is one parsed structure. Implementations are expected to be
// cheap to query once parsed; all counts refer to the whole molecule.
type Molecule interface {
	HeavyAtoms() int
	NumRings() int
	RingSizes() []int
	NumSpiroAtoms() int
	NumBridgeheadAtoms() int
	NumAliphaticRings() int
	NumFusedRings() int
	NumHeterocycles() int
	NumAromaticCarbocycles() int

	// MatchCount / HasMatch evaluate a named substructure pattern
	// (SMARTS-like) against the molecule.
	MatchCount(pattern string) int
	HasMatch(pattern string) bool

	// DeprotectionCount is the number of protecting groups removed by a
	// standard deprotection pass.
	DeprotectionCount() int

	// Identity is a canonical identity key (e.g. InChI), stable across
	// equivalent structures. Used for memoization.
	Identity() string
}

// Analyzer parses a structural string. Malformed input yields ok=false,
// never an error.
type Analyzer interface {
	Parse(smiles string) (Molecule, bool)
}

// Decomposer splits a molecule along recognised reaction-relevant bonds
// into synthons.
type Decomposer interface {
	Decompose(m Molecule) []Molecule
}

// FilterCatalog matches a molecule against a fixed catalog of problematic
// compounds (e.g. PAINS). FirstMatch returns the catalog's reported name.
type FilterCatalog interface {
	Name() string
	FirstMatch(m Molecule) (string, bool)
}

// SociabilityScorer scores a fragment against a reference population of
// common fragments. The production implementation is GPU-backed and
// batched; the contract here is synchronous.
type SociabilityScorer interface {
	Score(frag Molecule) float64
}
