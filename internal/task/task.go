// internal/task/task.go
// Package task is the work done inside a worker for one chunk: parse
// rows, classify each record, tally issue counts, and stage an artifact
// with the accepted rows' retained columns.
package task

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"chemsift-core/chunk"
	"chemsift-core/record"
	"chemsift-core/score"
	"chemsift-core/sieve"

	"chemsift/internal/pipeline"
	"chemsift/internal/stage"
)

// AcceptedIssue is the pseudo-issue under which kept records are
// counted in chunk summaries and the audit log.
const AcceptedIssue = "accepted"

// badRowIssue buckets rows that fail tabular parsing; the detailed
// parse error varies per row and would explode the issue-count schema.
const badRowIssue = "bad row"

// ScoreColumns is the per-mode set of metric columns retained next to
// the structure and identifier in chunk outputs.
func ScoreColumns(mode sieve.Mode) []string {
	switch mode {
	case sieve.ModeSynthonV2:
		return []string{"N_synthons", "synthon_score", "synthon_sociability"}
	case sieve.ModeSynthonV3:
		return []string{"N_synthons", "synthon_score", "combined_Zscore"}
	default:
		return nil
	}
}

// Runner holds the read-only pieces a chunk task needs. Safe for
// concurrent use by many workers.
type Runner struct {
	Sieve      *sieve.Sieve
	Mode       sieve.Mode
	Tiers      score.Tiers // non-nil routes accepted rows into tier partitions
	StagingDir string      // staging root for this input file
	Logger     *zap.Logger
}

// Process implements pipeline.TaskFunc for one chunk.
func (r *Runner) Process(ctx context.Context, c chunk.Chunk) (pipeline.Summary, error) {
	mapping, err := record.MapHeader(c.Header)
	if err != nil {
		return pipeline.Summary{}, err
	}
	cols := ScoreColumns(r.Mode)

	issues := make(map[string]int)
	kept := make(map[string][]string) // tier ("" = untiered) -> rendered rows
	for i, line := range c.Lines {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return pipeline.Summary{}, err
			}
		}
		rec, err := mapping.ParseRow(line)
		if err != nil {
			issues[badRowIssue]++
			continue
		}
		v := r.Sieve.Classify(rec)
		if !v.Acceptable {
			issues[v.Issue]++
			continue
		}
		issues[AcceptedIssue]++

		tier := ""
		if r.Tiers != nil {
			z, ok := v.Get("combined_Zscore")
			if !ok {
				return pipeline.Summary{}, fmt.Errorf("task: tiering without a combined score (mode %s)", r.Mode)
			}
			if tier, err = r.Tiers.Assign(z); err != nil {
				return pipeline.Summary{}, fmt.Errorf("task: %w", err)
			}
		}
		kept[tier] = append(kept[tier], renderRow(rec, v, cols))
	}

	header := renderHeader(mapping, cols)
	for tier, rows := range kept {
		path := stage.ArtifactPath(r.StagingDir, tier, c.Index)
		if err := stage.WriteArtifact(path, header, rows); err != nil {
			return pipeline.Summary{}, err
		}
	}
	if r.Logger != nil {
		r.Logger.Debug("chunk classified",
			zap.String("file", c.SourceFile),
			zap.Int("chunk", c.Index),
			zap.Int("records", len(c.Lines)),
			zap.Int(AcceptedIssue, issues[AcceptedIssue]))
	}
	return pipeline.Summary{
		File:     c.SourceFile,
		Index:    c.Index,
		Records:  len(c.Lines),
		Accepted: issues[AcceptedIssue],
		Issues:   issues,
	}, nil
}

// renderHeader passes the input's structure and identifier column names
// through unchanged, then the retained score columns.
func renderHeader(m record.Mapping, cols []string) string {
	parts := append([]string{m.SMILESName(), m.IdentifierName()}, cols...)
	return strings.Join(parts, "\t")
}

func renderRow(rec record.Record, v *sieve.Verdict, cols []string) string {
	parts := make([]string, 0, 2+len(cols))
	parts = append(parts, rec.SMILES, rec.Identifier)
	for _, c := range cols {
		x, _ := v.Get(c)
		parts = append(parts, strconv.FormatFloat(x, 'g', -1, 64))
	}
	return strings.Join(parts, "\t")
}
