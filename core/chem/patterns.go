// core/chem/patterns.go
package chem

// Pattern is one named substructure motif. Catalog order is priority
// order: the first matching pattern is the one reported.
type Pattern struct {
	Name    string
	Pattern string
}

// WeightedPattern is a favorable motif with its contribution weight.
type WeightedPattern struct {
	Name    string
	Pattern string
	Weight  float64
}

// Unwanted lists disallowed motifs in reporting priority order.
func Unwanted() []Pattern {
	return []Pattern{
		{"carbamate", "[N!R]C(=O)O"},
		{"exocyclic ester", "[C!R](=O)[OH0!R]"},
		{"exocyclic imine", "[C!R]=[N!R]"},
		{"alkane", "[CH2!R]-[CH2!R]-[CH2!R]-[CH2!R]"},
		{"hydrazine", "[N,n]-[N!R]"},
	}
}

// Wanted lists reaction-product motifs the synthon score rewards.
// Uncommon couplings are boosted.
func Wanted() []WeightedPattern {
	return []WeightedPattern{
		{"amide", "[N,n]-[C!R](=O)", 1},
		{"sulfonamide", "[N,n]-[S!R](=O)(=O)", 5},
		{"biaryl", "a-a", 5},
		{"secondary amine", "[c,C]-[N!R]-[c,C]", 0.3},
		{"substituted aza", "[NR,n]-[C!R]", 0.3},
	}
}
