// core/score/tier.go
package score

import (
	"fmt"
	"math"
)

// Tier is one score band: a compound belongs to the first tier whose
// Upper bound is >= its combined score (bands are (prev, Upper]).
type Tier struct {
	Name  string
	Upper float64
}

// Tiers is an ordered, exhaustive set of bands: ascending Upper bounds,
// last one +Inf.
type Tiers []Tier

// DefaultTiers spans the empirical distribution of the combined score.
func DefaultTiers() Tiers {
	return Tiers{
		{Name: "Z0-05", Upper: 0.5},
		{Name: "Z05-08", Upper: 0.8},
		{Name: "Z08-1", Upper: 1.0},
		{Name: "Z1", Upper: math.Inf(1)},
	}
}

// Validate rejects empty, unsorted, or non-exhaustive tier sets.
func (ts Tiers) Validate() error {
	if len(ts) == 0 {
		return fmt.Errorf("tiers: empty")
	}
	for i, t := range ts {
		if t.Name == "" {
			return fmt.Errorf("tiers: unnamed tier at %d", i)
		}
		if i > 0 && ts[i-1].Upper >= t.Upper {
			return fmt.Errorf("tiers: bounds not ascending at %q", t.Name)
		}
	}
	if !math.IsInf(ts[len(ts)-1].Upper, 1) {
		return fmt.Errorf("tiers: last bound must be +Inf to be exhaustive")
	}
	return nil
}

// Assign returns the tier name for a score. With a validated tier set it
// is total; a no-match is a configuration error, not a panic.
func (ts Tiers) Assign(score float64) (string, error) {
	for _, t := range ts {
		if score <= t.Upper {
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("tiers: no band for score %g", score)
}
