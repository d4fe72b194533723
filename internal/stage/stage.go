// internal/stage/stage.go
// Package stage writes per-chunk output artifacts into a staging area.
// Artifacts are keyed by chunk index (and tier) so concurrent workers
// never collide, and written via tmp+rename so a crashed worker never
// leaves a half artifact visible to the merge step.
package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"chemsift/internal/zopen"
)

// ArtifactPath is where the chunk's artifact lives inside the staging
// directory. tier may be empty (no tiering).
func ArtifactPath(stagingDir, tier string, chunkIdx int) string {
	name := fmt.Sprintf("chunk%06d.tsv.gz", chunkIdx)
	if tier == "" {
		return filepath.Join(stagingDir, name)
	}
	return filepath.Join(stagingDir, tier, name)
}

// WriteArtifact writes header + rows to path atomically. Zero rows is
// the caller's case to handle (no artifact at all); this always writes.
func WriteArtifact(path, header string, rows []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	tmp := path + ".tmp"
	w, err := zopen.CreateAs(tmp, path)
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	write := func() error {
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, row); err != nil {
				return err
			}
		}
		return w.Close()
	}
	if err := write(); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("stage: %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stage: %w", err)
	}
	return nil
}
