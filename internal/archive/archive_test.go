package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"sqlporter/internal/archive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackPreservesTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "schema"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "tables.manifest"), []byte("S.dbo.A\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "schema", "tables.sql"), []byte("CREATE TABLE x\nGO\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "dbo.A.dat"), nil, 0o644))

	dest := filepath.Join(t.TempDir(), "out.tar.gz")
	require.NoError(t, archive.Pack(src, dest))

	extracted := t.TempDir()
	require.NoError(t, archive.Unpack(dest, extracted))

	data, err := os.ReadFile(filepath.Join(extracted, "schema", "tables.sql"))
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE x\nGO\n", string(data))

	// Empty payloads survive the round trip as empty files.
	info, err := os.Stat(filepath.Join(extracted, "data", "dbo.A.dat"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestUnpackRejectsNonArchive(t *testing.T) {
	bogus := filepath.Join(t.TempDir(), "not-an-archive")
	require.NoError(t, os.WriteFile(bogus, []byte("plain text"), 0o644))

	err := archive.Unpack(bogus, t.TempDir())
	assert.Error(t, err)
}
