// core/sieve/cutoff.go
package sieve

import (
	"fmt"
	"math"
	"strings"
)

// Dir is the threshold direction of a cutoff rule.
type Dir uint8

const (
	Min Dir = iota
	Max
)

// Cutoff is a named threshold keyed to a verdict metric. A rule whose
// metric is absent from the verdict is silently skipped, which lets the
// basic mode share a cutoff table with the full modes.
type Cutoff struct {
	Metric string
	Dir    Dir
	Value  float64
}

// Key renders the rule in its config form, e.g. "min_hbonds_per_HAC".
func (c Cutoff) Key() string {
	if c.Dir == Min {
		return "min_" + c.Metric
	}
	return "max_" + c.Metric
}

// ParseKey parses a "min_*"/"max_*" config key into a rule.
func ParseKey(key string, value float64) (Cutoff, error) {
	switch {
	case strings.HasPrefix(key, "min_"):
		return Cutoff{Metric: key[4:], Dir: Min, Value: value}, nil
	case strings.HasPrefix(key, "max_"):
		return Cutoff{Metric: key[4:], Dir: Max, Value: value}, nil
	default:
		return Cutoff{}, fmt.Errorf("cutoff key %q: want min_<metric> or max_<metric>", key)
	}
}

// Cutoffs is an ordered rule table. Order matters: the first violated
// rule is the one reported.
type Cutoffs []Cutoff

// DefaultCutoffs is the stock table. The first four are medchem
// pickiness; the rest trim the worst quartiles of the reference sample.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{
		{Metric: "N_rings", Dir: Min, Value: 1},
		{Metric: "N_methylene", Dir: Max, Value: 6},
		{Metric: "N_protection_groups", Dir: Max, Value: 0},
		{Metric: "largest_ring_size", Dir: Max, Value: 8},
		{Metric: "hbonds_per_HAC", Dir: Min, Value: 1.0 / 5},
		{Metric: "rota_per_HAC", Dir: Max, Value: 1.0 / 5},
		{Metric: "synthon_sociability_per_HAC", Dir: Min, Value: 0.354839},
		{Metric: "synthon_score_per_HAC", Dir: Min, Value: 0.138470},
		{Metric: "boringness", Dir: Max, Value: 0.1},
		{Metric: "combined_Zscore", Dir: Min, Value: 0},
	}
}

// Assess walks the table in order and returns the first violation as a
// *Rejection ("<metric> too low|high"), or nil. Rules whose metric is
// not yet in the verdict do not apply.
func (cs Cutoffs) Assess(v *Verdict) error {
	for _, c := range cs {
		x, ok := v.Get(c.Metric)
		if !ok {
			continue
		}
		if c.Dir == Min && x < c.Value {
			return rejectf("%s too low", c.Metric)
		}
		if c.Dir == Max && x > c.Value {
			return rejectf("%s too high", c.Metric)
		}
	}
	return nil
}

// Relaxed returns the same rules with neutral bounds (min -> -Inf,
// max -> +Inf): every metric is still computed, nothing is rejected.
// Used to calibrate thresholds against score distributions.
func (cs Cutoffs) Relaxed() Cutoffs {
	out := make(Cutoffs, len(cs))
	for i, c := range cs {
		out[i] = c
		if c.Dir == Min {
			out[i].Value = math.Inf(-1)
		} else {
			out[i].Value = math.Inf(1)
		}
	}
	return out
}

// Override replaces the value of the rule named by key, appending a new
// rule when no rule with that metric+direction exists. Order of existing
// rules is preserved.
func (cs Cutoffs) Override(key string, value float64) (Cutoffs, error) {
	nc, err := ParseKey(key, value)
	if err != nil {
		return nil, err
	}
	out := make(Cutoffs, len(cs))
	copy(out, cs)
	for i, c := range out {
		if c.Metric == nc.Metric && c.Dir == nc.Dir {
			out[i].Value = value
			return out, nil
		}
	}
	return append(out, nc), nil
}
