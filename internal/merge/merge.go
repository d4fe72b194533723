// internal/merge/merge.go
// Package merge is the output assembler: it folds the many small
// per-chunk artifacts of a staging directory into one compressed file,
// header exactly once, data rows in any order.
package merge

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chemsift/internal/zopen"
)

// Artifacts lists the chunk artifacts directly under dir, sorted by name
// for reproducible merges. A missing directory means zero artifacts.
func Artifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("merge: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tsv.gz") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Merge concatenates every artifact in dir into outPath: the first
// artifact's header once, then all data rows. Chunks that produced no
// artifact are simply absent. Returns the merged data-row count; with
// zero artifacts nothing is written and the count is 0.
//
// Merge is a pure function of the staging directory: running it twice
// over unmodified staging produces byte-identical output.
func Merge(dir, outPath string) (int, error) {
	paths, err := Artifacts(dir)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	out, err := zopen.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	bw := bufio.NewWriterSize(out, 256*1024)

	rows := 0
	wroteHeader := false
	for _, p := range paths {
		if err := appendArtifact(bw, p, &wroteHeader, &rows); err != nil {
			_ = out.Close()
			return rows, err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = out.Close()
		return rows, fmt.Errorf("merge: %w", err)
	}
	if err := out.Close(); err != nil {
		return rows, fmt.Errorf("merge: %w", err)
	}
	return rows, nil
}

func appendArtifact(w *bufio.Writer, path string, wroteHeader *bool, rows *int) error {
	r, err := zopen.Open(path)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	defer func() { _ = r.Close() }()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			if *wroteHeader {
				continue // header already emitted once
			}
			*wroteHeader = true
			if _, err := fmt.Fprintln(w, line); err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		*rows++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("merge: %s: %w", path, err)
	}
	return nil
}

// Tiers lists the tier subdirectories of a staging dir (tiered runs
// stage under <dir>/<tier>/).
func Tiers(dir string) ([]string, error) {
	var tiers []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("merge: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			tiers = append(tiers, e.Name())
		}
	}
	sort.Strings(tiers)
	return tiers, nil
}

// Clean removes the staging directory after a successful merge.
func Clean(dir string) error {
	err := os.RemoveAll(dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("merge: clean %s: %w", dir, err)
	}
	return nil
}
