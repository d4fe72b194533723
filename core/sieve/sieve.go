// core/sieve/sieve.go
// Package sieve classifies compounds one record at a time: a pipeline of
// ordered stages, each able to terminate early with a rejection reason.
// The active mode selects a prefix of the stage list.
package sieve

import (
	"errors"
	"fmt"

	"chemsift-core/chem"
	"chemsift-core/record"
	"chemsift-core/score"
)

// Mode selects how deep the stage pipeline runs. Each mode is a strict
// superset of the previous one.
type Mode int

const (
	ModeBasic        Mode = iota // tabular fields only, no structure parsing
	ModeSubstructure             // + structural metrics, patterns, boringness
	ModeSynthonV2                // + decomposition, sociability (legacy scorer)
	ModeSynthonV3                // + decomposition, synthon score, composite Z-score
)

var modeNames = map[Mode]string{
	ModeBasic:        "basic",
	ModeSubstructure: "substructure",
	ModeSynthonV2:    "synthon_v2",
	ModeSynthonV3:    "synthon_v3",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (want basic|substructure|synthon_v2|synthon_v3)", s)
}

// Rejection is the tagged "not kept" result of a stage. Fault marks
// unexpected computation failures as opposed to cutoff/pattern
// violations; both are contained at the record level.
type Rejection struct {
	Reason string
	Fault  bool
}

func (r *Rejection) Error() string { return r.Reason }

func rejectf(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

func faultf(format string, args ...any) error {
	return &Rejection{Reason: "uncaught fault: " + fmt.Sprintf(format, args...), Fault: true}
}

// Substructure patterns computed directly by the engine.
const (
	methylenePattern = "[CH2X4!R]"
	ringAtomPattern  = "[R]"
)

// Config is the immutable calibration of a Sieve: cutoff table, pattern
// catalogs, reference statistics, and the external chemistry
// collaborators the selected mode needs. Shared read-only by workers.
type Config struct {
	Mode     Mode
	Cutoffs  Cutoffs // nil = DefaultCutoffs
	Analysis bool    // neutralize thresholds, keep computing every metric

	Analyzer    chem.Analyzer          // substructure and above
	Decomposer  chem.Decomposer        // synthon modes
	Filters     []chem.FilterCatalog   // problematic-compound catalogs
	Sociability chem.SociabilityScorer // synthon_v2 only

	Unwanted    []chem.Pattern         // nil = chem.Unwanted()
	Wanted      []chem.WeightedPattern // nil = chem.Wanted()
	Calibration score.Calibration      // zero = score.DefaultCalibration()
}

// Sieve is the classification engine. One verdict per record; no state
// is carried across records except the sociability memo cache.
type Sieve struct {
	cfg         Config
	cutoffs     Cutoffs
	sociability chem.SociabilityScorer
}

// New validates the configuration against the selected mode and builds
// the engine.
func New(cfg Config) (*Sieve, error) {
	if _, ok := modeNames[cfg.Mode]; !ok {
		return nil, fmt.Errorf("sieve: %s", cfg.Mode)
	}
	if cfg.Cutoffs == nil {
		cfg.Cutoffs = DefaultCutoffs()
	}
	if cfg.Unwanted == nil {
		cfg.Unwanted = chem.Unwanted()
	}
	if cfg.Wanted == nil {
		cfg.Wanted = chem.Wanted()
	}
	if cfg.Calibration.Weights == nil {
		cfg.Calibration = score.DefaultCalibration()
	}
	if cfg.Mode >= ModeSubstructure && cfg.Analyzer == nil {
		return nil, fmt.Errorf("sieve: mode %s needs an analyzer", cfg.Mode)
	}
	if cfg.Mode >= ModeSynthonV2 && cfg.Decomposer == nil {
		return nil, fmt.Errorf("sieve: mode %s needs a decomposer", cfg.Mode)
	}
	if cfg.Mode == ModeSynthonV2 && cfg.Sociability == nil {
		return nil, fmt.Errorf("sieve: mode synthon_v2 needs a sociability scorer")
	}
	if cfg.Mode == ModeSynthonV3 {
		if err := cfg.Calibration.Validate(); err != nil {
			return nil, fmt.Errorf("sieve: %w", err)
		}
	}

	s := &Sieve{cfg: cfg, cutoffs: cfg.Cutoffs}
	if cfg.Analysis {
		s.cutoffs = cfg.Cutoffs.Relaxed()
	}
	if cfg.Sociability != nil {
		s.sociability = chem.NewMemoScorer(cfg.Sociability)
	}
	return s, nil
}

// Classify runs the stage pipeline over one record. It never panics and
// never returns an error: rejections and faults end up in the verdict's
// Issue, and Acceptable is true iff every stage passed.
func (s *Sieve) Classify(rec record.Record) *Verdict {
	v := NewVerdict()
	err := s.run(rec, v)
	if err == nil {
		v.Acceptable = true
		return v
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		v.Issue = rej.Reason
	} else {
		v.Issue = "uncaught fault: " + err.Error()
	}
	return v
}

func (s *Sieve) run(rec record.Record, v *Verdict) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faultf("panic: %v", r)
		}
	}()

	// Stage 1: row metrics, cheapest, always run.
	if err := s.rowInfo(rec, v); err != nil {
		return err
	}
	if err := s.cutoffs.Assess(v); err != nil {
		return err
	}
	if s.cfg.Mode == ModeBasic {
		return nil
	}

	// Stage 2: structural metrics.
	mol, ok := s.cfg.Analyzer.Parse(rec.SMILES)
	if !ok {
		return faultf("unparsable structure %q", rec.SMILES)
	}
	s.molInfo(mol, v)
	if err := s.cutoffs.Assess(v); err != nil {
		return err
	}

	// Stage 3: disallowed motifs and filter catalogs.
	if err := s.patterns(mol, v); err != nil {
		return err
	}

	// Stage 4: boringness.
	s.boringness(mol, v)
	if err := s.cutoffs.Assess(v); err != nil {
		return err
	}
	if s.cfg.Mode == ModeSubstructure {
		return nil
	}

	// Stage 5: synthon decomposition and scoring.
	switch s.cfg.Mode {
	case ModeSynthonV2:
		s.roboGroups(mol, v)
		if err := s.cutoffs.Assess(v); err != nil {
			return err
		}
		s.synthonSociability(mol, v)
		if err := s.cutoffs.Assess(v); err != nil {
			return err
		}
	case ModeSynthonV3:
		s.synthonInfo(mol, v)
		if err := s.cutoffs.Assess(v); err != nil {
			return err
		}
		// Stage 6: composite score over per-HAC normalized metrics.
		if _, err := s.cfg.Calibration.Combined(v); err != nil {
			return faultf("%v", err)
		}
		if err := s.cutoffs.Assess(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sieve) rowInfo(rec record.Record, v *Verdict) error {
	if rec.HeavyAtoms <= 0 {
		return faultf("zero heavy atom count")
	}
	if rec.MW <= 0 {
		return faultf("zero molecular weight")
	}
	hac := float64(rec.HeavyAtoms)
	v.Set("hbonds", float64(rec.HBonds))
	v.Set("HAC", hac)
	v.Set("hbonds_per_HAC", float64(rec.HBonds)/hac)
	v.Set("rota_per_da", float64(rec.RotatableBonds)/rec.MW)
	v.Set("rota_per_HAC", float64(rec.RotatableBonds)/hac)
	return nil
}

func (s *Sieve) molInfo(mol chem.Molecule, v *Verdict) {
	v.Set("N_rings", float64(mol.NumRings()))
	v.Set("N_methylene", float64(mol.MatchCount(methylenePattern)))
	v.Set("N_ring_atoms", float64(mol.MatchCount(ringAtomPattern)))
	largest := 0
	for _, n := range mol.RingSizes() {
		if n > largest {
			largest = n
		}
	}
	v.Set("largest_ring_size", float64(largest))
	v.Set("N_protection_groups", float64(mol.DeprotectionCount()))
}

func (s *Sieve) patterns(mol chem.Molecule, v *Verdict) error {
	// First match in catalog order wins so the reported reason is
	// deterministic.
	for _, p := range s.cfg.Unwanted {
		if mol.HasMatch(p.Pattern) {
			return rejectf("contains %s", p.Name)
		}
	}
	for _, f := range s.cfg.Filters {
		if _, ok := f.FirstMatch(mol); ok {
			return rejectf("%s", f.Name())
		}
	}
	return nil
}

// boringness penalizes structurally unremarkable compounds: the top
// sociable compounds tend to be phenyls galore.
func (s *Sieve) boringness(mol chem.Molecule, v *Verdict) {
	spiro := float64(mol.NumSpiroAtoms())
	bridge := float64(mol.NumBridgeheadAtoms())
	// aliphatic rings include heterocycles
	ali := float64(mol.NumAliphaticRings())
	fused := float64(mol.NumFusedRings())
	hetero := float64(mol.NumHeterocycles())
	aromaC := float64(mol.NumAromaticCarbocycles())
	methylene := float64(mol.MatchCount(methylenePattern))

	v.Set("N_spiro", spiro)
	v.Set("N_bridgehead", bridge)
	v.Set("N_alicyclics", ali)
	v.Set("N_fused_rings", fused)
	v.Set("N_heterocyclics", hetero)
	v.Set("N_aromatic_carbocylics", aromaC)
	v.Set("N_methylene", methylene)

	boringness := aromaC + methylene/4 - (spiro + bridge + ali + fused) - hetero/2
	v.Set("boringness", boringness)
	hac, _ := v.Get("HAC")
	v.Set("boringness_per_HAC", boringness/hac)
}

// roboGroups is the legacy v2 desirability score: a weighted tally of
// favorable reaction-product motifs.
func (s *Sieve) roboGroups(mol chem.Molecule, v *Verdict) {
	total := 0.0
	for _, w := range s.cfg.Wanted {
		n := float64(mol.MatchCount(w.Pattern))
		v.Set("N_"+w.Name, n)
		total += n * w.Weight
	}
	v.Set("synthon_score", total)
	hac, _ := v.Get("HAC")
	v.Set("synthon_score_per_HAC", total/hac)
}

func (s *Sieve) synthonSociability(mol chem.Molecule, v *Verdict) {
	synthons := s.cfg.Decomposer.Decompose(mol)
	v.Set("N_synthons", float64(len(synthons)))
	total := 0.0
	for _, frag := range synthons {
		if frag == nil || frag.HeavyAtoms() < 3 {
			total += -1
			continue
		}
		total += s.sociability.Score(frag)
	}
	v.Set("synthon_sociability", total)
	hac, _ := v.Get("HAC")
	v.Set("synthon_sociability_per_HAC", total/hac)
}

func (s *Sieve) synthonInfo(mol chem.Molecule, v *Verdict) {
	kept := 0
	for _, frag := range s.cfg.Decomposer.Decompose(mol) {
		if frag != nil && frag.HeavyAtoms() > 2 {
			kept++
		}
	}
	v.Set("N_synthons", float64(kept))

	total := 0.0
	for _, w := range s.cfg.Wanted {
		total += float64(mol.MatchCount(w.Pattern)) * w.Weight
	}
	v.Set("synthon_score", total)
	hac, _ := v.Get("HAC")
	v.Set("synthon_score_per_HAC", total/hac)
}
