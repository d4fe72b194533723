// internal/zopen/zopen.go
// Package zopen opens catalog archives for reading (format sniffed from
// magic bytes) and creates compressed outputs (format picked from the
// file extension).
package zopen

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	bzipMagic = []byte{'B', 'Z', 'h'}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// multiReadCloser closes every underlying closer when Close is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens path for reading, transparently decompressing bz2, gzip and
// zstd by magic number. "-" reads stdin (assumed uncompressed).
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(fh, 64*1024)
	sig, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("zopen: %s: %w", path, err)
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	case bytes.HasPrefix(sig, bzipMagic):
		return &multiReadCloser{Reader: bzip2.NewReader(br), closers: []io.Closer{fh}}, nil
	case bytes.HasPrefix(sig, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("zopen: %s: %w", path, err)
		}
		return &multiReadCloser{Reader: zr.IOReadCloser(), closers: []io.Closer{fh}}, nil
	default:
		return &multiReadCloser{Reader: br, closers: []io.Closer{fh}}, nil
	}
}

// writeCloser flushes the compressor before closing the file.
type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error {
	var err error
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Create creates path for writing, compressing by extension: .gz, .zst,
// anything else plain. Parent directories must already exist.
func Create(path string) (io.WriteCloser, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return wrapWriter(fh, path)
}

// CreateAs creates path but picks the compression from final's
// extension. For tmp-then-rename writers whose scratch name would
// otherwise defeat the extension sniff.
func CreateAs(path, final string) (io.WriteCloser, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return wrapWriter(fh, final)
}

func wrapWriter(fh *os.File, path string) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		gw := gzip.NewWriter(fh)
		return &writeCloser{Writer: gw, closers: []io.Closer{gw, fh}}, nil
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(fh)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("zopen: %s: %w", path, err)
		}
		return &writeCloser{Writer: zw, closers: []io.Closer{zw, fh}}, nil
	default:
		return &writeCloser{Writer: fh, closers: []io.Closer{fh}}, nil
	}
}
