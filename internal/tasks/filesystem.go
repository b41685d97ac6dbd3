package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

type fsOpKind string

const (
	fsCopy   fsOpKind = "copy"
	fsChmod  fsOpKind = "chmod"
	fsRemove fsOpKind = "remove"
)

type fsOp struct {
	kind  fsOpKind
	src   string
	dst   string
	mode  os.FileMode
	force bool
}

func (op fsOp) String() string {
	switch op.kind {
	case fsCopy:
		s := fmt.Sprintf("copy %s %s", op.src, op.dst)
		if op.force {
			s += " (force)"
		}
		return s
	case fsChmod:
		return fmt.Sprintf("chmod %04o %s", op.mode.Perm(), op.dst)
	default:
		return fmt.Sprintf("rm -rf %s", op.dst)
	}
}

// FilesystemStack is a sequence of filesystem operations run as one task.
// Operations run in the order they were added and stop at the first error.
type FilesystemStack struct {
	ops []fsOp
}

// Filesystem returns an empty stack.
func Filesystem() *FilesystemStack {
	return &FilesystemStack{}
}

// Copy copies src to dst, creating parent directories. Without force the
// copy is skipped when dst exists and is not older than src.
func (s *FilesystemStack) Copy(src, dst string, force ...bool) *FilesystemStack {
	s.ops = append(s.ops, fsOp{kind: fsCopy, src: src, dst: dst, force: len(force) > 0 && force[0]})
	return s
}

// Chmod sets the permission bits of path.
func (s *FilesystemStack) Chmod(path string, mode os.FileMode) *FilesystemStack {
	s.ops = append(s.ops, fsOp{kind: fsChmod, dst: path, mode: mode})
	return s
}

// Remove deletes paths recursively. Missing paths are not an error.
func (s *FilesystemStack) Remove(paths ...string) *FilesystemStack {
	for _, p := range paths {
		s.ops = append(s.ops, fsOp{kind: fsRemove, dst: p})
	}
	return s
}

// Describe lists the operations.
func (s *FilesystemStack) Describe() string {
	parts := make([]string, len(s.ops))
	for i, op := range s.ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, "; ")
}

// Run applies the operations.
func (s *FilesystemStack) Run(ctx context.Context) error {
	for _, op := range s.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		logging.Scaffold("%s", op)

		var err error
		switch op.kind {
		case fsCopy:
			err = copyFile(op.src, op.dst, op.force)
		case fsChmod:
			err = os.Chmod(op.dst, op.mode)
		case fsRemove:
			err = os.RemoveAll(op.dst)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func copyFile(src, dst string, force bool) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if !force {
		if dstInfo, err := os.Stat(dst); err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			logging.ScaffoldDebug("Skipping copy, %s is up to date", dst)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// carry over execute bits and the source modification time
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if exec := srcInfo.Mode().Perm() & 0111; exec != 0 {
		if err := os.Chmod(dst, dstInfo.Mode().Perm()|exec); err != nil {
			return err
		}
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}
