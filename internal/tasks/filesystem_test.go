package tasks

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFilesystemStack_CopyCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "deep", "dst.txt")
	writeFile(t, src, "hello")

	require.NoError(t, Filesystem().Copy(src, dst).Run(context.Background()))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFilesystemStack_CopySkipsUpToDate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "new")
	writeFile(t, dst, "local edits")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	require.NoError(t, Filesystem().Copy(src, dst).Run(context.Background()))
	data, _ := os.ReadFile(dst)
	assert.Equal(t, "local edits", string(data), "newer destination must not be overwritten")

	require.NoError(t, Filesystem().Copy(src, dst, true).Run(context.Background()))
	data, _ = os.ReadFile(dst)
	assert.Equal(t, "new", string(data), "forced copy overwrites")
}

func TestFilesystemStack_CopyReplacesStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, dst, "stale")
	writeFile(t, src, "fresh")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dst, old, old))

	require.NoError(t, Filesystem().Copy(src, dst).Run(context.Background()))
	data, _ := os.ReadFile(dst)
	assert.Equal(t, "fresh", string(data))
}

func TestFilesystemStack_CopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Filesystem().Copy(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesystemStack_Chmod(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}
	path := filepath.Join(t.TempDir(), "settings.php")
	writeFile(t, path, "<?php")

	require.NoError(t, Filesystem().Chmod(path, 0444).Run(context.Background()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0444), info.Mode().Perm())
}

func TestFilesystemStack_RemoveAndStopOnError(t *testing.T) {
	dir := t.TempDir()
	module := filepath.Join(dir, "modules", "contrib", "hacked")
	kept := filepath.Join(dir, "modules", "contrib", "kept")
	writeFile(t, filepath.Join(module, "hacked.info.yml"), "name: Hacked")
	writeFile(t, filepath.Join(kept, "kept.info.yml"), "name: Kept")

	stack := Filesystem().
		Remove(module, filepath.Join(dir, "modules", "contrib", "absent")).
		Chmod(filepath.Join(dir, "missing"), 0644).
		Remove(kept)

	err := stack.Run(context.Background())
	require.Error(t, err)
	assert.NoDirExists(t, module)
	assert.DirExists(t, kept)
	assert.Contains(t, stack.Describe(), "rm -rf "+module)
}

func TestConcat(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}
	dir := t.TempDir()
	origin := filepath.Join(dir, "origin.settings.php")
	tpl := filepath.Join(dir, "tpl.settings.php")
	dst := filepath.Join(dir, "settings.php")
	writeFile(t, origin, "<?php\n$databases = [];")
	writeFile(t, tpl, "include 'settings.local.php';")
	writeFile(t, dst, "old")
	require.NoError(t, os.Chmod(dst, 0640))

	task := Concat(origin, tpl).To(dst)
	require.NoError(t, task.Run(context.Background()))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "<?php\n$databases = [];\ninclude 'settings.local.php';\n", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	assert.NoFileExists(t, dst+".part")
}

func TestConcat_LiteralPathWithGlobCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site[prod]")
	require.NoError(t, os.MkdirAll(dir, 0755))
	origin := filepath.Join(dir, "origin.settings.php")
	tpl := filepath.Join(dir, "tpl.settings.php")
	dst := filepath.Join(dir, "settings.php")
	writeFile(t, origin, "a")
	writeFile(t, tpl, "b")

	require.NoError(t, Concat(origin, tpl).To(dst).Run(context.Background()))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestConcat_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10.inc"), "ten")
	writeFile(t, filepath.Join(dir, "20.inc"), "twenty")
	dst := filepath.Join(dir, "all.txt")

	require.NoError(t, Concat(filepath.Join(dir, "*.inc")).To(dst).Run(context.Background()))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "ten\ntwenty\n", string(data))
}

func TestConcat_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Concat(filepath.Join(dir, "absent.php")).To(filepath.Join(dir, "out.php")).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(dir, "out.php"))
}
