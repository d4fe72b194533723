// internal/app/run.go
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chemsift-core/chunk"
	"chemsift-core/sieve"

	"chemsift/internal/audit"
	"chemsift/internal/chemreg"
	"chemsift/internal/config"
	"chemsift/internal/merge"
	"chemsift/internal/pipeline"
	"chemsift/internal/sievelog"
	"chemsift/internal/task"
	"chemsift/internal/zopen"
)

type runOptions struct {
	configPath  string
	outDir      string
	stagingDir  string
	auditPath   string
	resume      bool
	keepStaging bool
	noMerge     bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	var (
		mode        string
		analysis    bool
		tiered      bool
		backend     string
		chunkSize   int
		workers     int
		taskTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [flags] <input...>",
		Short: "classify catalog files and assemble per-input selections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.configPath != "" {
				var err error
				if cfg, err = config.Load(opts.configPath); err != nil {
					return usagef("%v", err)
				}
			}
			// Explicit flags beat the config file.
			if cmd.Flags().Changed("mode") {
				cfg.Mode = mode
			}
			if cmd.Flags().Changed("analysis") {
				cfg.Analysis = analysis
			}
			if cmd.Flags().Changed("tiered") {
				cfg.Tiered = tiered
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("task-timeout") {
				cfg.TaskTimeout = config.Duration(taskTimeout)
			}
			if err := cfg.Validate(); err != nil {
				return usagef("%v", err)
			}
			if opts.auditPath == "" {
				opts.auditPath = filepath.Join(opts.outDir, "audit.jsonl")
			}
			if opts.stagingDir == "" {
				opts.stagingDir = filepath.Join(opts.outDir, "staging")
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			logger, err := sievelog.New(verbose)
			if err != nil {
				return runtimef("logger: %v", err)
			}
			defer func() { _ = logger.Sync() }()

			accepted, err := runAll(cmd, logger, cfg, opts, args)
			if err != nil {
				return err
			}
			if accepted == 0 {
				return errNoAccepted
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML run configuration")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", ".", "directory for merged selections, audit log and summary")
	cmd.Flags().StringVar(&opts.stagingDir, "staging-dir", "", "staging root for chunk artifacts (default <out-dir>/staging)")
	cmd.Flags().StringVar(&opts.auditPath, "audit", "", "audit log path (default <out-dir>/audit.jsonl)")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "skip chunks already recorded in the audit log")
	cmd.Flags().BoolVar(&opts.keepStaging, "keep-staging", false, "keep per-chunk artifacts after the merge")
	cmd.Flags().BoolVar(&opts.noMerge, "no-merge", false, "stage only; merge later with 'chemsift merge'")

	cmd.Flags().StringVarP(&mode, "mode", "m", "basic", "sieve mode: basic | substructure | synthon_v2 | synthon_v3")
	cmd.Flags().BoolVar(&analysis, "analysis", false, "relax cutoffs to record metrics for the whole input")
	cmd.Flags().BoolVar(&tiered, "tiered", false, "partition accepted records by combined-score tier (synthon_v3)")
	cmd.Flags().StringVar(&backend, "backend", "", "registered chemistry backend for modes above basic")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "records per chunk")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel chunk tasks (0 = CPUs-1)")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "per-chunk deadline (0 = none)")
	return cmd
}

// newSieve assembles the classifier from the validated config.
func newSieve(cfg config.Config) (*sieve.Sieve, sieve.Mode, error) {
	mode, err := cfg.SieveMode()
	if err != nil {
		return nil, 0, err
	}
	cuts, err := cfg.SieveCutoffs()
	if err != nil {
		return nil, 0, err
	}
	scfg := sieve.Config{Mode: mode, Cutoffs: cuts, Analysis: cfg.Analysis}
	if mode != sieve.ModeBasic {
		b, err := chemreg.Get(cfg.Backend)
		if err != nil {
			return nil, 0, err
		}
		scfg.Analyzer = b.Analyzer
		scfg.Decomposer = b.Decomposer
		scfg.Filters = b.Filters
		scfg.Sociability = b.Sociability
	}
	if mode == sieve.ModeSynthonV3 {
		if scfg.Calibration, err = cfg.Calibration(); err != nil {
			return nil, 0, err
		}
	}
	s, err := sieve.New(scfg)
	if err != nil {
		return nil, 0, err
	}
	return s, mode, nil
}

func runAll(cmd *cobra.Command, logger *zap.Logger, cfg config.Config, opts runOptions, inputs []string) (int, error) {
	sv, mode, err := newSieve(cfg)
	if err != nil {
		return 0, usagef("%v", err)
	}
	if cfg.Tiered && mode != sieve.ModeSynthonV3 {
		return 0, usagef("tiered output needs a combined score (mode synthon_v3, got %s)", mode)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return 0, runtimef("%v", err)
	}
	var done map[audit.Key]struct{}
	if opts.resume {
		if done, err = audit.LoadDone(opts.auditPath); err != nil {
			return 0, runtimef("%v", err)
		}
		logger.Info("resuming", zap.Int("chunks already done", len(done)))
	}
	alog, err := audit.Open(opts.auditPath)
	if err != nil {
		return 0, runtimef("%v", err)
	}
	defer func() { _ = alog.Close() }()

	runID := uuid.NewString()
	logger.Info("run starting",
		zap.String("run_id", runID),
		zap.String("mode", mode.String()),
		zap.Bool("analysis", cfg.Analysis),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Strings("inputs", inputs))

	total := 0
	for _, input := range inputs {
		n, err := runOne(cmd, logger, cfg, opts, sv, mode, alog, runID, done, input)
		if err != nil {
			return total, err
		}
		total += n
	}

	if err := writeSummary(opts.auditPath, filepath.Join(opts.outDir, "audit_summary.csv")); err != nil {
		return total, runtimef("%v", err)
	}
	logger.Info("run finished", zap.String("run_id", runID), zap.Int("accepted", total))
	return total, nil
}

func runOne(cmd *cobra.Command, logger *zap.Logger, cfg config.Config, opts runOptions,
	sv *sieve.Sieve, mode sieve.Mode, alog *audit.Log, runID string,
	done map[audit.Key]struct{}, input string) (int, error) {

	stem := inputStem(input)
	staging := filepath.Join(opts.stagingDir, stem)
	runner := &task.Runner{Sieve: sv, Mode: mode, StagingDir: staging, Logger: logger}
	if cfg.Tiered {
		runner.Tiers = cfg.ScoreTiers()
	}

	var appendErr error
	var appendMu sync.Mutex
	record := func(e audit.Entry) {
		if err := alog.Append(e); err != nil {
			appendMu.Lock()
			if appendErr == nil {
				appendErr = err
			}
			appendMu.Unlock()
		}
	}

	chunks := make(chan chunk.Chunk)
	prodErr := make(chan error, 1)
	ctx := cmd.Context()
	go func() {
		defer close(chunks)
		r, err := zopen.Open(input)
		if err != nil {
			prodErr <- err
			return
		}
		defer func() { _ = r.Close() }()
		_, err = chunk.Split(ctx, r, filepath.Base(input), cfg.ChunkSize, func(c chunk.Chunk) error {
			if _, ok := done[audit.Key{Filename: c.SourceFile, ChunkIdx: c.Index}]; ok {
				return nil
			}
			select {
			case chunks <- c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err == io.EOF {
			err = fmt.Errorf("%s: empty input", input)
		}
		prodErr <- err
	}()

	res, err := pipeline.Run(ctx, pipeline.Config{
		Workers:     cfg.Workers,
		TaskTimeout: time.Duration(cfg.TaskTimeout),
		Logger:      logger,
		OnSummary: func(s pipeline.Summary) {
			record(audit.Entry{Filename: s.File, ChunkIdx: s.Index, RunID: runID, Issues: s.Issues})
		},
		OnFailure: func(f pipeline.Failure) {
			record(audit.Entry{Filename: f.File, ChunkIdx: f.Index, RunID: runID,
				Issues: map[string]int{"task_error": 1}})
		},
	}, chunks, runner.Process)
	if err != nil {
		return 0, runtimef("%s: %v", input, err)
	}
	if perr := <-prodErr; perr != nil {
		return 0, runtimef("%v", perr)
	}
	if appendErr != nil {
		return 0, runtimef("audit: %v", appendErr)
	}
	logger.Info("input classified",
		zap.String("input", input),
		zap.Int("chunks", len(res.Summaries)),
		zap.Int("failed chunks", len(res.Failures)),
		zap.Int("accepted", res.Accepted()))

	if opts.noMerge {
		return res.Accepted(), nil
	}
	if err := assemble(logger, staging, opts.outDir, stem, cfg.Tiered); err != nil {
		return res.Accepted(), runtimef("%v", err)
	}
	if !opts.keepStaging {
		if err := merge.Clean(staging); err != nil {
			return res.Accepted(), runtimef("%v", err)
		}
	}
	return res.Accepted(), nil
}

// assemble merges staged artifacts into the final selection file(s).
func assemble(logger *zap.Logger, staging, outDir, stem string, tiered bool) error {
	if !tiered {
		out := filepath.Join(outDir, stem+"_selection.tsv.gz")
		rows, err := merge.Merge(staging, out)
		if err != nil {
			return err
		}
		logger.Info("selection written", zap.String("output", out), zap.Int("rows", rows))
		return nil
	}
	tiers, err := merge.Tiers(staging)
	if err != nil {
		return err
	}
	for _, tier := range tiers {
		out := filepath.Join(outDir, fmt.Sprintf("%s_%s_selection.tsv.gz", stem, tier))
		rows, err := merge.Merge(filepath.Join(staging, tier), out)
		if err != nil {
			return err
		}
		logger.Info("selection written", zap.String("tier", tier), zap.String("output", out), zap.Int("rows", rows))
	}
	return nil
}

func writeSummary(auditPath, csvPath string) error {
	f, err := os.Open(auditPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	entries, err := audit.ReadEntries(f)
	if err != nil {
		return err
	}
	out, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	if err := audit.WriteSummaryCSV(out, entries); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// inputStem strips the compression suffix, then the format suffix:
// "Enamine_REAL.cxsmiles.bz2" -> "Enamine_REAL".
func inputStem(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	switch ext := filepath.Ext(base); ext {
	case ".bz2", ".gz", ".zst":
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
