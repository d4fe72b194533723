// internal/config/config.go
// Package config loads and validates the YAML run configuration. Every
// field has a working default so `chemsift run` needs no config file at
// all; the file only overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"chemsift-core/score"
	"chemsift-core/sieve"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "90s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: task_timeout: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// TierSpec is one tier band in the config file.
type TierSpec struct {
	Name  string  `yaml:"name" validate:"required"`
	Upper float64 `yaml:"upper"`
}

// Config is the full run configuration.
type Config struct {
	ChunkSize   int      `yaml:"chunk_size" validate:"min=1"`
	Workers     int      `yaml:"workers" validate:"min=0"`
	TaskTimeout Duration `yaml:"task_timeout"`

	Mode     string `yaml:"mode" validate:"oneof=basic substructure synthon_v2 synthon_v3"`
	Analysis bool   `yaml:"analysis"`
	Tiered   bool   `yaml:"tiered"`
	Backend  string `yaml:"backend"`

	// Cutoffs overrides entries of the default table by key
	// ("min_N_rings", "max_boringness", ...).
	Cutoffs map[string]float64 `yaml:"cutoffs"`

	// Calibration overrides. A metric named here must appear in all
	// three maps or in the default calibration.
	Weights map[string]float64 `yaml:"weights"`
	Means   map[string]float64 `yaml:"means"`
	Stds    map[string]float64 `yaml:"stds"`

	// Tiers replaces the default tier ladder wholesale when non-empty.
	Tiers []TierSpec `yaml:"tiers" validate:"omitempty,dive"`
}

// Default is the zero-file configuration.
func Default() Config {
	return Config{
		ChunkSize: 100000,
		Mode:      sieve.ModeBasic.String(),
	}
}

// Load reads path on top of Default(). Unknown YAML keys are errors so a
// typoed cutoff name cannot silently run with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var structValidator = validator.New()

// Validate checks struct tags plus the cross-field rules the tags cannot
// express: cutoff keys must parse, tier bands must be exhaustive, and
// calibration overrides must stay consistent.
func (c Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for key, val := range c.Cutoffs {
		if _, err := sieve.ParseKey(key, val); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if len(c.Tiers) > 0 {
		if err := c.ScoreTiers().Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, err := c.Calibration(); err != nil {
		return err
	}
	return nil
}

// SieveMode parses the configured mode.
func (c Config) SieveMode() (sieve.Mode, error) {
	return sieve.ParseMode(c.Mode)
}

// SieveCutoffs applies the configured overrides to the default table.
func (c Config) SieveCutoffs() (sieve.Cutoffs, error) {
	cs := sieve.DefaultCutoffs()
	var err error
	for key, val := range c.Cutoffs {
		if cs, err = cs.Override(key, val); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cs, nil
}

// Calibration applies weight/mean/std overrides to the default
// calibration. Overriding a metric absent from the defaults introduces
// it, provided all three constants end up present.
func (c Config) Calibration() (score.Calibration, error) {
	cal := score.DefaultCalibration()
	for m, w := range c.Weights {
		cal.Weights[m] = w
	}
	for m, v := range c.Means {
		cal.Means[m] = v
	}
	for m, v := range c.Stds {
		cal.Stds[m] = v
	}
	if err := cal.Validate(); err != nil {
		return cal, fmt.Errorf("config: %w", err)
	}
	return cal, nil
}

// ScoreTiers is the configured tier ladder, or the default one.
func (c Config) ScoreTiers() score.Tiers {
	if len(c.Tiers) == 0 {
		return score.DefaultTiers()
	}
	ts := make(score.Tiers, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		ts = append(ts, score.Tier{Name: t.Name, Upper: t.Upper})
	}
	return ts
}
