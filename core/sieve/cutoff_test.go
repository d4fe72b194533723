package sieve

import (
	"errors"
	"math"
	"testing"
)

func TestAssess_SkipsAbsentMetrics(t *testing.T) {
	cs := Cutoffs{{Metric: "nope", Dir: Min, Value: 5}}
	v := NewVerdict()
	v.Set("other", 1)
	if err := cs.Assess(v); err != nil {
		t.Fatalf("absent metric must be skipped, got %v", err)
	}
}

func TestAssess_FirstViolationWins(t *testing.T) {
	cs := Cutoffs{
		{Metric: "a", Dir: Min, Value: 1},
		{Metric: "b", Dir: Max, Value: 1},
	}
	v := NewVerdict()
	v.Set("a", 0) // violates
	v.Set("b", 2) // also violates, but later in the table
	err := cs.Assess(v)
	var rej *Rejection
	if !errors.As(err, &rej) || rej.Reason != "a too low" {
		t.Fatalf("err = %v", err)
	}
	if rej.Fault {
		t.Fatal("cutoff violation must not be a fault")
	}
}

func TestAssess_BoundaryIsInclusive(t *testing.T) {
	cs := Cutoffs{
		{Metric: "x", Dir: Min, Value: 1},
		{Metric: "y", Dir: Max, Value: 1},
	}
	v := NewVerdict()
	v.Set("x", 1)
	v.Set("y", 1)
	if err := cs.Assess(v); err != nil {
		t.Fatalf("boundary values must pass, got %v", err)
	}
}

func TestRelaxed_NeutralForNegativeMetrics(t *testing.T) {
	// combined_Zscore can be negative; a relaxed min must not reject it.
	cs := Cutoffs{{Metric: "combined_Zscore", Dir: Min, Value: 0}}.Relaxed()
	v := NewVerdict()
	v.Set("combined_Zscore", -7)
	if err := cs.Assess(v); err != nil {
		t.Fatalf("relaxed min rejected: %v", err)
	}
	if !math.IsInf(cs[0].Value, -1) {
		t.Fatalf("relaxed min bound = %v", cs[0].Value)
	}
}

func TestParseKey(t *testing.T) {
	c, err := ParseKey("min_hbonds_per_HAC", 0.25)
	if err != nil || c.Metric != "hbonds_per_HAC" || c.Dir != Min || c.Value != 0.25 {
		t.Fatalf("got %+v, %v", c, err)
	}
	if c.Key() != "min_hbonds_per_HAC" {
		t.Fatalf("key round trip: %q", c.Key())
	}
	if _, err := ParseKey("median_x", 1); err == nil {
		t.Fatal("expected error for bad prefix")
	}
}

func TestOverride(t *testing.T) {
	cs := DefaultCutoffs()
	out, err := cs.Override("max_boringness", 0)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if len(out) != len(cs) {
		t.Fatalf("override appended instead of replacing")
	}
	found := false
	for _, c := range out {
		if c.Metric == "boringness" && c.Dir == Max {
			found = true
			if c.Value != 0 {
				t.Fatalf("value = %v", c.Value)
			}
		}
	}
	if !found {
		t.Fatal("rule lost")
	}

	out2, err := out.Override("min_new_metric", 3)
	if err != nil {
		t.Fatalf("override append: %v", err)
	}
	if len(out2) != len(cs)+1 {
		t.Fatalf("expected append, got %d rules", len(out2))
	}
	// The receiver must be left untouched.
	for _, c := range cs {
		if c.Metric == "boringness" && c.Value != 0.1 {
			t.Fatal("Override mutated its receiver")
		}
	}
}
