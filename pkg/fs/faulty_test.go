package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarray/pkg/fs"
)

func Test_Faulty_Fails_Matching_Operation_When_Rule_Registered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.FailOn(fs.OpWriteAtomic, "_lookup", syscall.ENOSPC)

	err := faulty.WriteFileAtomic(filepath.Join(dir, "store_lookup"), []byte("x"), 0o644)
	require.Error(t, err)
	assert.True(t, fs.IsInjected(err), "error should be marked as injected")
	assert.True(t, errors.Is(err, syscall.ENOSPC), "injected errno should unwrap")

	_, statErr := os.Stat(filepath.Join(dir, "store_lookup"))
	assert.True(t, os.IsNotExist(statErr), "failed write must not create the file")
}

func Test_Faulty_Passes_Through_When_No_Rule_Matches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.FailOn(fs.OpRemove, "_lookup", nil)

	path := filepath.Join(dir, "storemeta")
	require.NoError(t, faulty.WriteFileAtomic(path, []byte("{}"), 0o644))
	require.NoError(t, faulty.Remove(path))

	assert.Equal(t, 1, faulty.Calls(fs.OpWriteAtomic))
	assert.Equal(t, 1, faulty.Calls(fs.OpRemove))
}

func Test_Faulty_Defaults_To_EIO_When_Error_Is_Nil(t *testing.T) {
	t.Parallel()

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.FailOn(fs.OpExists, "", nil)

	_, err := faulty.Exists(filepath.Join(t.TempDir(), "anything"))
	require.ErrorIs(t, err, syscall.EIO)

	faulty.Reset()

	exists, err := faulty.Exists(filepath.Join(t.TempDir(), "anything"))
	require.NoError(t, err)
	assert.False(t, exists)
}
