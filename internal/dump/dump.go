// Package dump opens database dumps for streaming into drush sql:cli.
// Plain SQL, gzip, zstd and lz4 frame dumps are supported; the format is
// detected from the leading magic bytes with the file extension as a
// fallback.
package dump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

// Format identifies the compression of a dump file.
type Format string

const (
	FormatPlain Format = "plain"
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
	FormatLZ4   Format = "lz4"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ErrNotFound is returned by Resolve when no candidate path exists.
var ErrNotFound = errors.New("dump file not found")

// FormatFromName guesses the format from a file extension.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip", ".tgz":
		return FormatGzip
	case ".zst", ".zstd":
		return FormatZstd
	case ".lz4":
		return FormatLZ4
	default:
		return FormatPlain
	}
}

// Detect returns the format signalled by the first bytes of a dump.
// ok is false when the header matches no known compression.
func Detect(header []byte) (format Format, ok bool) {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzip, true
	case bytes.HasPrefix(header, zstdMagic):
		return FormatZstd, true
	case bytes.HasPrefix(header, lz4Magic):
		return FormatLZ4, true
	}
	return FormatPlain, false
}

// Resolve finds the dump file. Absolute paths and paths that exist relative
// to the working directory are used as-is; other relative paths are looked
// up in backupsDir.
func Resolve(path, backupsDir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}

	candidates := []string{path}
	if !filepath.IsAbs(path) && backupsDir != "" {
		candidates = append(candidates, filepath.Join(backupsDir, path))
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", candidate)
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", err
		}
		logging.DumpDebug("Resolved dump %s -> %s", path, abs)
		return abs, nil
	}
	return "", fmt.Errorf("%w: %s (also looked in %s)", ErrNotFound, path, backupsDir)
}

// Reader is a decompressing reader over a dump file.
type Reader struct {
	io.Reader
	Format Format
	Path   string

	closers []func() error
}

// Close releases the decoder and the underlying file.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Open opens path and returns a reader yielding the uncompressed SQL.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}

	br := bufio.NewReaderSize(f, 64*1024)
	header, _ := br.Peek(4)

	format, ok := Detect(header)
	if !ok {
		format = FormatFromName(path)
		if format != FormatPlain {
			logging.DumpDebug("No magic bytes in %s, trusting extension (%s)", path, format)
		}
	}

	r := &Reader{Format: format, Path: path, closers: []func() error{f.Close}}
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip dump %s: %w", path, err)
		}
		r.Reader = zr
		r.closers = append(r.closers, zr.Close)
	case FormatZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd dump %s: %w", path, err)
		}
		r.Reader = zr
		r.closers = append(r.closers, func() error { zr.Close(); return nil })
	case FormatLZ4:
		r.Reader = lz4.NewReader(br)
	default:
		r.Reader = br
	}

	logging.Dump("Opened %s dump %s", format, path)
	return r, nil
}

// Opener returns a function opening path, for deferred use by a task.
func Opener(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		r, err := Open(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
