//go:build unix

package mmap

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Mode selects the protection of a mapping.
type Mode int

const (
	// ReadOnly maps the file with PROT_READ.
	ReadOnly Mode = iota
	// ReadWrite maps the file with PROT_READ|PROT_WRITE and MAP_SHARED, so
	// writes land in the backing file.
	ReadWrite
)

// String returns "r" or "r+".
func (m Mode) String() string {
	if m == ReadWrite {
		return "r+"
	}

	return "r"
}

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
)

var (
	// ErrClosed is returned when attempting to use a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrReadOnly is returned when syncing a read-only mapping.
	ErrReadOnly = errors.New("mmap: mapping is read-only")
)

// Descriptor is the subset of *os.File a mapping needs.
type Descriptor interface {
	Fd() uintptr
}

// Mapping represents a memory-mapped file region starting at offset 0.
//
// Methods are safe for concurrent use. Close waits for in-flight Sync and
// Advise calls; callers that keep the slice returned by Bytes must order
// their own accesses before Close.
type Mapping struct {
	mu     sync.RWMutex
	data   []byte
	mode   Mode
	closed bool
}

// Map maps the first size bytes of f.
//
// The descriptor may be closed after Map returns; the mapping keeps its own
// reference to the file. A zero size yields an empty, valid mapping.
func Map(f Descriptor, size int, mode Mode) (*Mapping, error) {
	if size < 0 {
		return nil, fmt.Errorf("size %d: %w", size, ErrInvalidSize)
	}

	if size == 0 {
		return &Mapping{mode: mode}, nil
	}

	prot := unix.PROT_READ
	if mode == ReadWrite {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes (%s): %w", size, mode, err)
	}

	return &Mapping{data: data, mode: mode}, nil
}

// Bytes returns the mapped bytes, or nil once the mapping is closed.
func (m *Mapping) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil
	}

	return m.data
}

// Len returns the mapping size in bytes, or 0 once closed.
func (m *Mapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

// Mode returns the protection the mapping was created with.
func (m *Mapping) Mode() Mode {
	return m.mode
}

// Sync flushes dirty pages of a read-write mapping to the backing file and
// waits for completion.
func (m *Mapping) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	if m.mode != ReadWrite {
		return ErrReadOnly
	}

	if len(m.data) == 0 {
		return nil
	}

	err := unix.Msync(m.data, unix.MS_SYNC)
	if err != nil {
		return fmt.Errorf("msync: %w", err)
	}

	return nil
}

// Advise passes an access hint to the kernel. Alignment errors are ignored
// because the hint is advisory.
func (m *Mapping) Advise(pattern AccessPattern) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	if len(m.data) == 0 {
		return nil
	}

	advice := unix.MADV_NORMAL

	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessDefault:
	}

	err := unix.Madvise(m.data, advice)
	if errors.Is(err, unix.EINVAL) {
		return nil
	}

	return err
}

// Close syncs a read-write mapping and unmaps it. It is idempotent.
//
// The unmap is attempted even when the sync fails; both errors are reported.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	if len(m.data) == 0 {
		return nil
	}

	var syncErr error
	if m.mode == ReadWrite {
		syncErr = unix.Msync(m.data, unix.MS_SYNC)
		if syncErr != nil {
			syncErr = fmt.Errorf("msync: %w", syncErr)
		}
	}

	unmapErr := unix.Munmap(m.data)
	if unmapErr != nil {
		unmapErr = fmt.Errorf("munmap: %w", unmapErr)
	}

	m.data = nil

	return errors.Join(syncErr, unmapErr)
}
