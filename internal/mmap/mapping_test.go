package mmap_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotarray/internal/mmap"
)

func newSizedFile(t *testing.T, size int64) *os.File {
	t.Helper()

	f, err := os.OpenFile(filepath.Join(t.TempDir(), "data.bin"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))

	t.Cleanup(func() { _ = f.Close() })

	return f
}

func Test_Map_Persists_Writes_When_ReadWrite_Mapping_Closed(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 64)

	m, err := mmap.Map(f, 64, mmap.ReadWrite)
	require.NoError(t, err)
	assert.Equal(t, 64, m.Len())

	copy(m.Bytes()[10:], "hello")
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got[10:15]))
	assert.Equal(t, byte(0), got[0], "untouched bytes stay zero")
}

func Test_Map_Returns_Nil_Bytes_When_Closed(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 16)

	m, err := mmap.Map(f, 16, mmap.ReadOnly)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "Close must be idempotent")

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Sync(), mmap.ErrClosed)
	assert.ErrorIs(t, m.Advise(mmap.AccessRandom), mmap.ErrClosed)
}

func Test_Map_Rejects_Sync_When_ReadOnly(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 16)

	m, err := mmap.Map(f, 16, mmap.ReadOnly)
	require.NoError(t, err)

	defer m.Close()

	assert.ErrorIs(t, m.Sync(), mmap.ErrReadOnly)
	assert.NoError(t, m.Advise(mmap.AccessSequential))
}

func Test_Map_Returns_Empty_Mapping_When_Size_Zero(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 0)

	m, err := mmap.Map(f, 0, mmap.ReadWrite)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Len())
	assert.NoError(t, m.Sync())
	assert.NoError(t, m.Close())
}

func Test_Map_Rejects_Negative_Size(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 0)

	_, err := mmap.Map(f, -1, mmap.ReadOnly)
	assert.ErrorIs(t, err, mmap.ErrInvalidSize)
}

func Test_Map_Close_Is_Safe_When_Called_Concurrently_With_Accessors(t *testing.T) {
	t.Parallel()

	f := newSizedFile(t, 4096)

	m, err := mmap.Map(f, 4096, mmap.ReadWrite)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				_ = m.Len()
				_ = m.Bytes()
				_ = m.Advise(mmap.AccessSequential)
				_ = m.Sync()
			}
		}()
	}

	for range 3 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, m.Close())
		}()
	}

	wg.Wait()

	assert.Nil(t, m.Bytes())
	assert.Equal(t, 0, m.Len())
}
