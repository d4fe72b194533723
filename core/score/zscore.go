// core/score/zscore.go
// Package score computes the weighted Z-score composite used for soft
// ranking, and buckets accepted compounds into quality tiers.
package score

import (
	"fmt"
	"strings"
)

// Calibration holds the per-metric weights and the reference population
// statistics the composite score is normalized against. Read-only after
// construction; safe to share across workers.
type Calibration struct {
	Weights map[string]float64
	Means   map[string]float64
	Stds    map[string]float64
}

// DefaultCalibration returns the constants derived offline from a 1M
// random reference sample (no removals).
func DefaultCalibration() Calibration {
	return Calibration{
		Weights: map[string]float64{
			"synthon_score_per_HAC":          1,
			"hbonds_per_HAC":                 1,
			"rota_per_HAC":                   -1,
			"N_synthons_per_HAC":             1,
			"N_spiro_per_HAC":                0.2,
			"N_bridgehead_per_HAC":           0.2,
			"N_alicyclics_per_HAC":           0.2,
			"N_fused_rings_per_HAC":          0.2,
			"N_aromatic_carbocylics_per_HAC": -0.2,
			"N_heterocyclics_per_HAC":        0.1,
			"N_methylene_per_HAC":            -0.05,
		},
		Means: map[string]float64{
			"synthon_score_per_HAC":          0.21526508936919203,
			"hbonds_per_HAC":                 0.24447480230871893,
			"rota_per_HAC":                   0.2317342518844832,
			"N_synthons_per_HAC":             0.12582623253284875,
			"N_spiro_per_HAC":                0.0032131689670107065,
			"N_bridgehead_per_HAC":           0.005046401318307808,
			"N_alicyclics_per_HAC":           0.05905642932651799,
			"N_fused_rings_per_HAC":          0.015589662661026338,
			"N_aromatic_carbocylics_per_HAC": 0.01918927338610745,
			"N_heterocyclics_per_HAC":        0.06979145110309398,
			"N_methylene_per_HAC":            0.08125398462902535,
		},
		Stds: map[string]float64{
			"synthon_score_per_HAC":          0.1137501096872908,
			"hbonds_per_HAC":                 0.06981618332292346,
			"rota_per_HAC":                   0.07809299292460986,
			"N_synthons_per_HAC":             0.03198042716946067,
			"N_spiro_per_HAC":                0.010936756469896591,
			"N_bridgehead_per_HAC":           0.020431219793333164,
			"N_alicyclics_per_HAC":           0.0416689554316131,
			"N_fused_rings_per_HAC":          0.028725197477523886,
			"N_aromatic_carbocylics_per_HAC": 0.02464447282361974,
			"N_heterocyclics_per_HAC":        0.03760917968539562,
			"N_methylene_per_HAC":            0.061085330799282266,
		},
	}
}

// Validate checks that every weighted metric has a mean and a non-zero
// standard deviation.
func (c Calibration) Validate() error {
	for k := range c.Weights {
		if _, ok := c.Means[k]; !ok {
			return fmt.Errorf("calibration: no mean for %q", k)
		}
		sd, ok := c.Stds[k]
		if !ok {
			return fmt.Errorf("calibration: no std for %q", k)
		}
		if sd == 0 {
			return fmt.Errorf("calibration: zero std for %q", k)
		}
	}
	return nil
}

// Metrics is the metric lookup the scorer reads and extends. It matches
// sieve.Verdict's metric map so the two packages stay decoupled.
type Metrics interface {
	Get(name string) (float64, bool)
	Set(name string, value float64)
}

// Combined derives any missing *_per_HAC metrics from their base metric
// divided by HAC, then sums weight*(x-mean)/std over the calibration
// table. A zero or missing HAC is a precondition failure, not a crash.
func (c Calibration) Combined(m Metrics) (float64, error) {
	hac, ok := m.Get("HAC")
	if !ok || hac == 0 {
		return 0, fmt.Errorf("score: heavy atom count is zero or absent")
	}
	for k := range c.Weights {
		if _, ok := m.Get(k); ok {
			continue
		}
		base := strings.TrimSuffix(k, "_per_HAC")
		v, ok := m.Get(base)
		if !ok {
			return 0, fmt.Errorf("score: metric %q absent", base)
		}
		m.Set(k, v/hac)
	}
	var sum float64
	for k, w := range c.Weights {
		v, _ := m.Get(k)
		sum += w * (v - c.Means[k]) / c.Stds[k]
	}
	m.Set("combined_Zscore", sum)
	return sum, nil
}
