// core/chunk/split.go
// Package chunk turns a header + record stream into fixed-size ordered
// chunks. Chunks are the unit of parallel dispatch and of failure
// isolation; the header is carried on every chunk so any chunk's output
// can be reconstructed independently.
package chunk

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Chunk is up to Size consecutive raw records from one source file.
// Index is monotonic from 0 within the file; Lines excludes the header.
type Chunk struct {
	SourceFile string
	Index      int
	Header     string
	Lines      []string
}

// Split consumes the first line of r as the header, then emits chunks of
// up to size records each (the final chunk may be shorter). Only one
// chunk is materialized at a time. A read error is fatal and aborts the
// whole split; an error from emit stops the split and is returned as-is.
func Split(ctx context.Context, r io.Reader, sourceFile string, size int, emit func(Chunk) error) (string, error) {
	if size < 1 {
		return "", fmt.Errorf("chunk: size must be >= 1, got %d", size)
	}

	sc := bufio.NewScanner(r)
	const maxLine = 16 * 1024 * 1024 // CXSMILES rows are short; be generous anyway
	sc.Buffer(make([]byte, 64*1024), maxLine)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("chunk: read header: %w", err)
		}
		return "", io.EOF
	}
	header := sc.Text()

	var (
		idx   int
		lines = make([]string, 0, size)
	)
	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		c := Chunk{SourceFile: sourceFile, Index: idx, Header: header, Lines: lines}
		idx++
		lines = make([]string, 0, size)
		return emit(c)
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return header, ctx.Err()
		default:
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == size {
			if err := flush(); err != nil {
				return header, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return header, fmt.Errorf("chunk: scan %s: %w", sourceFile, err)
	}
	if err := flush(); err != nil {
		return header, err
	}
	return header, nil
}
