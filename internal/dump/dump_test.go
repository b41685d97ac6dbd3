package dump

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "DROP TABLE IF EXISTS `node`;\nCREATE TABLE `node` (`nid` int);\nINSERT INTO `node` VALUES (1);\n"

func compress(t *testing.T, format Format, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch format {
	case FormatGzip:
		w = gzip.NewWriter(&buf)
	case FormatZstd:
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = zw
	case FormatLZ4:
		w = lz4.NewWriter(&buf)
	default:
		return data
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpen_RoundTrip(t *testing.T) {
	tests := []struct {
		format Format
		name   string
	}{
		{FormatPlain, "site.sql"},
		{FormatGzip, "site.sql.gz"},
		{FormatZstd, "site.sql.zst"},
		{FormatLZ4, "site.sql.lz4"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, os.WriteFile(path, compress(t, tt.format, []byte(sample)), 0644))

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, tt.format, r.Format)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestOpen_DetectsMagicDespiteExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.sql")
	require.NoError(t, os.WriteFile(path, compress(t, FormatZstd, []byte(sample)), 0644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, FormatZstd, r.Format)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestOpen_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.sql.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip at all"), 0644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.sql"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backups, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(backups, "prod.sql"), []byte(sample), 0644))
	direct := filepath.Join(dir, "direct.sql")
	require.NoError(t, os.WriteFile(direct, []byte(sample), 0644))

	got, err := Resolve(direct, backups)
	require.NoError(t, err)
	assert.Equal(t, direct, got)

	got, err = Resolve("prod.sql", backups)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, "prod.sql"), got)

	_, err = Resolve("missing.sql", backups)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve("", backups)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(backups, "")
	assert.Error(t, err)
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatGzip, FormatFromName("a.sql.GZ"))
	assert.Equal(t, FormatZstd, FormatFromName("a.zst"))
	assert.Equal(t, FormatLZ4, FormatFromName("a.lz4"))
	assert.Equal(t, FormatPlain, FormatFromName("a.sql"))
}
