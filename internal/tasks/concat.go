package tasks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

// ConcatTask joins files into a destination file.
type ConcatTask struct {
	files []string
	dst   string
}

// Concat returns a task concatenating files. An entry that does not exist
// as a literal path is expanded as a glob pattern.
func Concat(files ...string) *ConcatTask {
	return &ConcatTask{files: files}
}

// To sets the destination.
func (t *ConcatTask) To(dst string) *ConcatTask {
	t.dst = dst
	return t
}

// Describe returns a cat-style description.
func (t *ConcatTask) Describe() string {
	return fmt.Sprintf("cat %s > %s", strings.Join(t.files, " "), t.dst)
}

// Run writes every matched file followed by a newline into the destination.
// The result is written to a temporary file next to the destination and
// renamed into place, keeping the destination's permission bits.
func (t *ConcatTask) Run(ctx context.Context) error {
	if t.dst == "" {
		return fmt.Errorf("concat: destination not set")
	}

	var buf bytes.Buffer
	for _, pattern := range t.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		matches, err := expandSource(pattern)
		if err != nil {
			return err
		}
		for _, file := range matches {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("concat: %w", err)
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(t.dst); err == nil {
		mode = info.Mode().Perm()
	}

	part := t.dst + ".part"
	if err := os.WriteFile(part, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	if err := os.Chmod(part, mode); err != nil {
		os.Remove(part)
		return fmt.Errorf("concat: %w", err)
	}
	if err := os.Rename(part, t.dst); err != nil {
		os.Remove(part)
		return fmt.Errorf("concat: %w", err)
	}

	logging.Scaffold("Concatenated %d sources into %s (%d bytes)", len(t.files), t.dst, buf.Len())
	return nil
}

func expandSource(pattern string) ([]string, error) {
	if _, err := os.Stat(pattern); err == nil {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("concat: bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("concat: %s: %w", pattern, os.ErrNotExist)
	}
	return matches, nil
}
