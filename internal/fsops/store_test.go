package fsops_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/theraia/internal/fsops"
	"github.com/petasbytes/theraia/internal/safety"
)

func newStore(t *testing.T) *fsops.Store {
	t.Helper()
	s, err := fsops.NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestWriteThenRead(t *testing.T) {
	s := newStore(t)

	abs, err := s.Write("nested/dir/theraia_record.txt", "record body")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "nested", "dir", "theraia_record.txt"), abs)

	got, err := s.Read("nested/dir/theraia_record.txt")
	require.NoError(t, err)
	assert.Equal(t, "record body", got)
}

func TestWrite_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)

	_, err := s.Write("r.txt", "first")
	require.NoError(t, err)
	_, err = s.Write("r.txt", "second")
	require.NoError(t, err)

	got, err := s.Read("r.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRead_DirectoryIsNotAFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "sub"), 0o755))

	_, err := s.Read("sub")
	var pe *safety.PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, safety.CodeNotAFile, pe.Code)
}

func TestWrite_RejectsNonRecordAndTraversal(t *testing.T) {
	s := newStore(t)

	for _, p := range []string{"notes.md", "../escape.txt", ".theraia/x.txt"} {
		_, err := s.Write(p, "x")
		var pe *safety.PathError
		assert.True(t, errors.As(err, &pe), p)
	}
}

func TestList_OnlyRecordFiles(t *testing.T) {
	s := newStore(t)
	root := s.Root()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.TXT"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.json"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "d.txt"), 0o755))

	names, err := s.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.TXT", "b.txt"}, names)
}

func TestRel(t *testing.T) {
	s := newStore(t)

	rel, err := s.Rel(filepath.Join(s.Root(), "x", "r.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("x", "r.txt"), rel)

	rel, err = s.Rel("./r.txt")
	require.NoError(t, err)
	assert.Equal(t, "r.txt", rel)

	_, err = s.Rel(filepath.Join(filepath.Dir(s.Root()), "other.txt"))
	assert.Error(t, err)
}
