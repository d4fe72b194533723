// internal/audit/audit.go
// Package audit keeps the append-only per-chunk outcome log: one flat
// JSON object per chunk, durable as soon as the chunk completes and
// independent of the final merge. The log doubles as the resume index.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Entry is one chunk's outcome. Issues maps issue string to count; the
// implicit "accepted" count lives in the same map. Marshals flat:
// {"filename": f, "chunk_idx": i, "run_id": r, "<issue>": n, ...}.
type Entry struct {
	Filename string
	ChunkIdx int
	RunID    string
	Issues   map[string]int
}

// Key identifies a chunk within a run's inputs.
type Key struct {
	Filename string
	ChunkIdx int
}

func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Issues)+3)
	m["filename"] = e.Filename
	m["chunk_idx"] = e.ChunkIdx
	if e.RunID != "" {
		m["run_id"] = e.RunID
	}
	for k, n := range e.Issues {
		m[k] = n
	}
	return json.Marshal(m)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	e.Issues = make(map[string]int)
	for k, v := range m {
		switch k {
		case "filename":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("audit: filename is %T", v)
			}
			e.Filename = s
		case "run_id":
			if s, ok := v.(string); ok {
				e.RunID = s
			}
		case "chunk_idx":
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("audit: chunk_idx is %T", v)
			}
			e.ChunkIdx = int(f)
		default:
			if f, ok := v.(float64); ok {
				e.Issues[k] = int(f)
			}
		}
	}
	return nil
}

// Log appends entries to a newline-delimited JSON file. Every Append is
// flushed before it returns so a crash never loses completed chunks.
type Log struct {
	mu sync.Mutex
	f  *os.File
}

// Open opens (or creates) the log in append mode.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return &Log{f: f}, nil
}

func (l *Log) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return l.f.Sync()
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// ReadEntries parses a whole NDJSON log. Blank lines are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("audit: line %d: %w", ln, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return out, nil
}

// LoadDone reads the resume index: every chunk already recorded in the
// log. A missing log means a fresh run, not an error.
func LoadDone(path string) (map[Key]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[Key]struct{}{}, nil
		}
		return nil, fmt.Errorf("audit: %w", err)
	}
	defer func() { _ = f.Close() }()
	entries, err := ReadEntries(f)
	if err != nil {
		return nil, err
	}
	done := make(map[Key]struct{}, len(entries))
	for _, e := range entries {
		done[Key{Filename: e.Filename, ChunkIdx: e.ChunkIdx}] = struct{}{}
	}
	return done, nil
}

// IssueColumns returns the sorted union of issue names across entries.
func IssueColumns(entries []Entry) []string {
	set := map[string]struct{}{}
	for _, e := range entries {
		for k := range e.Issues {
			set[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
