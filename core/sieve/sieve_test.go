package sieve

import (
	"reflect"
	"strings"
	"testing"

	"chemsift-core/chem"
	"chemsift-core/record"
	"chemsift-core/score"
)

// ---- fake chemistry backend -------------------------------------------

type fakeMol struct {
	hac       int
	rings     int
	ringSizes []int
	spiro     int
	bridge    int
	ali       int
	fused     int
	hetero    int
	aromaC    int
	deprot    int
	matches   map[string]int
	id        string
}

func (m *fakeMol) HeavyAtoms() int             { return m.hac }
func (m *fakeMol) NumRings() int               { return m.rings }
func (m *fakeMol) RingSizes() []int            { return m.ringSizes }
func (m *fakeMol) NumSpiroAtoms() int          { return m.spiro }
func (m *fakeMol) NumBridgeheadAtoms() int     { return m.bridge }
func (m *fakeMol) NumAliphaticRings() int      { return m.ali }
func (m *fakeMol) NumFusedRings() int          { return m.fused }
func (m *fakeMol) NumHeterocycles() int        { return m.hetero }
func (m *fakeMol) NumAromaticCarbocycles() int { return m.aromaC }
func (m *fakeMol) MatchCount(p string) int     { return m.matches[p] }
func (m *fakeMol) HasMatch(p string) bool      { return m.matches[p] > 0 }
func (m *fakeMol) DeprotectionCount() int      { return m.deprot }
func (m *fakeMol) Identity() string            { return m.id }

type fakeAnalyzer map[string]*fakeMol

func (a fakeAnalyzer) Parse(smiles string) (chem.Molecule, bool) {
	m, ok := a[smiles]
	if !ok {
		return nil, false
	}
	return m, true
}

type fakeDecomposer struct{ frags []*fakeMol }

func (d fakeDecomposer) Decompose(chem.Molecule) []chem.Molecule {
	out := make([]chem.Molecule, len(d.frags))
	for i, f := range d.frags {
		out[i] = f
	}
	return out
}

type fakeCatalog struct{ hit string }

func (c fakeCatalog) Name() string { return "PAINS" }
func (c fakeCatalog) FirstMatch(chem.Molecule) (string, bool) {
	return c.hit, c.hit != ""
}

type countingScorer struct {
	calls int
	value float64
}

func (s *countingScorer) Score(chem.Molecule) float64 {
	s.calls++
	return s.value
}

// ---- helpers ------------------------------------------------------------

// goodRow passes every basic cutoff: hbonds/HAC = 0.3, rota/HAC = 0.1.
func goodRow() record.Record {
	return record.Record{
		SMILES: "good", Identifier: "Z1",
		HBonds: 6, RotatableBonds: 2, MW: 280, HeavyAtoms: 20,
	}
}

// interestingMol passes structural cutoffs and has negative boringness.
func interestingMol() *fakeMol {
	return &fakeMol{
		hac: 20, rings: 2, ringSizes: []int{5, 6},
		ali: 1, hetero: 1,
		matches: map[string]int{methylenePattern: 1, ringAtomPattern: 11},
		id:      "mol-1",
	}
}

// ---- tests --------------------------------------------------------------

func TestBasicMode_Accepts(t *testing.T) {
	s, err := New(Config{Mode: ModeBasic})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := s.Classify(goodRow())
	if !v.Acceptable || v.Issue != "" {
		t.Fatalf("verdict = %+v, want accepted", v)
	}
	for _, k := range []string{"hbonds", "HAC", "hbonds_per_HAC", "rota_per_da", "rota_per_HAC"} {
		if !v.Has(k) {
			t.Errorf("metric %s not computed", k)
		}
	}
}

func TestBasicMode_RejectsWithFirstViolation(t *testing.T) {
	s, _ := New(Config{Mode: ModeBasic})
	rec := goodRow()
	rec.HBonds = 2          // 0.1 < 0.2
	rec.RotatableBonds = 10 // 0.5 > 0.2, also violated
	for i := 0; i < 5; i++ {
		v := s.Classify(rec)
		if v.Acceptable {
			t.Fatal("expected rejection")
		}
		// min_hbonds_per_HAC precedes max_rota_per_HAC in the table, so
		// the reported reason is order-stable across runs.
		if v.Issue != "hbonds_per_HAC too low" {
			t.Fatalf("issue = %q", v.Issue)
		}
	}
}

func TestBasicMode_ZeroHACIsFaultNotCrash(t *testing.T) {
	s, _ := New(Config{Mode: ModeBasic})
	rec := goodRow()
	rec.HeavyAtoms = 0
	v := s.Classify(rec)
	if v.Acceptable {
		t.Fatal("expected fault rejection")
	}
	if !strings.HasPrefix(v.Issue, "uncaught fault:") {
		t.Fatalf("issue = %q, want fault", v.Issue)
	}
}

func TestBasicMode_SkipsStructuralCutoffs(t *testing.T) {
	// The stock table includes min_N_rings etc.; basic mode never
	// computes those metrics, so the rules must not fire.
	s, _ := New(Config{Mode: ModeBasic})
	v := s.Classify(goodRow())
	if !v.Acceptable {
		t.Fatalf("structural cutoff leaked into basic mode: %q", v.Issue)
	}
}

func TestSubstructure_Accepts(t *testing.T) {
	s, err := New(Config{
		Mode:     ModeSubstructure,
		Analyzer: fakeAnalyzer{"good": interestingMol()},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := s.Classify(goodRow())
	if !v.Acceptable {
		t.Fatalf("rejected: %q", v.Issue)
	}
	// boringness = 0 + 1/4 - (0+0+1+0) - 1/2 = -1.25
	if b, _ := v.Get("boringness"); b != -1.25 {
		t.Fatalf("boringness = %g", b)
	}
	if b, _ := v.Get("boringness_per_HAC"); b != -1.25/20 {
		t.Fatalf("boringness_per_HAC = %g", b)
	}
}

func TestSubstructure_UnparsableIsFault(t *testing.T) {
	s, _ := New(Config{Mode: ModeSubstructure, Analyzer: fakeAnalyzer{}})
	v := s.Classify(goodRow())
	if v.Acceptable || !strings.HasPrefix(v.Issue, "uncaught fault:") {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestSubstructure_CutoffOnMolMetrics(t *testing.T) {
	m := interestingMol()
	m.rings = 0
	s, _ := New(Config{Mode: ModeSubstructure, Analyzer: fakeAnalyzer{"good": m}})
	v := s.Classify(goodRow())
	if v.Issue != "N_rings too low" {
		t.Fatalf("issue = %q", v.Issue)
	}
}

func TestPatterns_FirstMatchInCatalogOrderWins(t *testing.T) {
	m := interestingMol()
	m.matches["[N!R]C(=O)O"] = 1 // carbamate
	m.matches["[N,n]-[N!R]"] = 2 // hydrazine, later in the catalog
	s, _ := New(Config{Mode: ModeSubstructure, Analyzer: fakeAnalyzer{"good": m}})
	v := s.Classify(goodRow())
	if v.Issue != "contains carbamate" {
		t.Fatalf("issue = %q", v.Issue)
	}
}

func TestPatterns_FilterCatalog(t *testing.T) {
	s, _ := New(Config{
		Mode:     ModeSubstructure,
		Analyzer: fakeAnalyzer{"good": interestingMol()},
		Filters:  []chem.FilterCatalog{fakeCatalog{hit: "quinone_A(370)"}},
	})
	v := s.Classify(goodRow())
	if v.Issue != "PAINS" {
		t.Fatalf("issue = %q", v.Issue)
	}
}

func TestSynthonV3_CombinedScore(t *testing.T) {
	cal := score.Calibration{
		Weights: map[string]float64{"hbonds_per_HAC": 1},
		Means:   map[string]float64{"hbonds_per_HAC": 0},
		Stds:    map[string]float64{"hbonds_per_HAC": 1},
	}
	cutoffs := Cutoffs{{Metric: "combined_Zscore", Dir: Min, Value: 0}}
	s, err := New(Config{
		Mode:        ModeSynthonV3,
		Analyzer:    fakeAnalyzer{"good": interestingMol()},
		Decomposer:  fakeDecomposer{frags: []*fakeMol{{hac: 5, id: "f1"}, {hac: 2, id: "f2"}}},
		Calibration: cal,
		Cutoffs:     cutoffs,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := s.Classify(goodRow())
	if !v.Acceptable {
		t.Fatalf("rejected: %q", v.Issue)
	}
	// Trivial fragments (<=2 heavy atoms) are discarded.
	if n, _ := v.Get("N_synthons"); n != 1 {
		t.Fatalf("N_synthons = %g", n)
	}
	if z, _ := v.Get("combined_Zscore"); z != 0.3 {
		t.Fatalf("combined_Zscore = %g, want 0.3", z)
	}

	// Below-threshold composite score gates final acceptance.
	cutoffs2, _ := cutoffs.Override("min_combined_Zscore", 0.5)
	s2, _ := New(Config{
		Mode:        ModeSynthonV3,
		Analyzer:    fakeAnalyzer{"good": interestingMol()},
		Decomposer:  fakeDecomposer{},
		Calibration: cal,
		Cutoffs:     cutoffs2,
	})
	if v := s2.Classify(goodRow()); v.Issue != "combined_Zscore too low" {
		t.Fatalf("issue = %q", v.Issue)
	}
}

func TestSynthonV2_SociabilityMemoized(t *testing.T) {
	scorer := &countingScorer{value: 10}
	frag := &fakeMol{hac: 5, id: "same-identity"}
	s, err := New(Config{
		Mode:        ModeSynthonV2,
		Analyzer:    fakeAnalyzer{"good": interestingMol()},
		Decomposer:  fakeDecomposer{frags: []*fakeMol{frag, frag}},
		Sociability: scorer,
		Cutoffs:     Cutoffs{}, // no thresholds, exercise the math
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := s.Classify(goodRow())
	if !v.Acceptable {
		t.Fatalf("rejected: %q", v.Issue)
	}
	if got, _ := v.Get("synthon_sociability"); got != 20 {
		t.Fatalf("synthon_sociability = %g", got)
	}
	if scorer.calls != 1 {
		t.Fatalf("scorer called %d times, memo broken", scorer.calls)
	}
	// Trivial fragments contribute -1 without hitting the scorer.
	s2, _ := New(Config{
		Mode:        ModeSynthonV2,
		Analyzer:    fakeAnalyzer{"good": interestingMol()},
		Decomposer:  fakeDecomposer{frags: []*fakeMol{{hac: 2, id: "tiny"}}},
		Sociability: scorer,
		Cutoffs:     Cutoffs{},
	})
	v2 := s2.Classify(goodRow())
	if got, _ := v2.Get("synthon_sociability"); got != -1 {
		t.Fatalf("trivial fragment sociability = %g", got)
	}
}

func TestAnalysisMode_Monotonic(t *testing.T) {
	mols := fakeAnalyzer{"good": interestingMol(), "dull": {
		hac: 20, rings: 1, ringSizes: []int{6}, aromaC: 2,
		matches: map[string]int{methylenePattern: 8, ringAtomPattern: 6},
		id:      "dull",
	}}
	recs := []record.Record{goodRow(), {SMILES: "dull", Identifier: "Z2", HBonds: 2, RotatableBonds: 9, MW: 300, HeavyAtoms: 20}}

	normal, _ := New(Config{Mode: ModeSubstructure, Analyzer: mols})
	analysis, _ := New(Config{Mode: ModeSubstructure, Analyzer: mols, Analysis: true})

	acceptedNormal, acceptedAnalysis := 0, 0
	for _, rec := range recs {
		nv := normal.Classify(rec)
		av := analysis.Classify(rec)
		if nv.Acceptable {
			acceptedNormal++
			// Thresholds change nothing about what is computed.
			if !reflect.DeepEqual(nv.Metrics, av.Metrics) {
				t.Fatalf("metrics diverge for %s:\n normal   %v\n analysis %v", rec.SMILES, nv.Metrics, av.Metrics)
			}
		}
		if av.Acceptable {
			acceptedAnalysis++
		}
	}
	if acceptedAnalysis < acceptedNormal {
		t.Fatalf("analysis mode accepted %d < normal %d", acceptedAnalysis, acceptedNormal)
	}
	if acceptedAnalysis != len(recs) {
		t.Fatalf("analysis mode rejected a record on a threshold")
	}
}

func TestNew_ModeRequirements(t *testing.T) {
	if _, err := New(Config{Mode: ModeSubstructure}); err == nil {
		t.Error("substructure without analyzer should fail")
	}
	if _, err := New(Config{Mode: ModeSynthonV2, Analyzer: fakeAnalyzer{}}); err == nil {
		t.Error("synthon_v2 without decomposer should fail")
	}
	if _, err := New(Config{Mode: ModeSynthonV2, Analyzer: fakeAnalyzer{}, Decomposer: fakeDecomposer{}}); err == nil {
		t.Error("synthon_v2 without scorer should fail")
	}
	if _, err := New(Config{Mode: Mode(99)}); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestParseMode_RoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeBasic, ModeSubstructure, ModeSynthonV2, ModeSynthonV3} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("expected error for bogus mode")
	}
}
