package slotarray

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/calvinalkan/slotarray/internal/mmap"
	"github.com/calvinalkan/slotarray/pkg/fs"
)

const (
	dataFilePerm = 0o644
	dirPerm      = 0o755
)

// dataFile is the padded slot file mapped into memory.
//
// Slot i occupies bytes [i*slotBytes, (i+1)*slotBytes). Items are written
// into the leading corner of their slot; the padding is never read back.
type dataFile struct {
	path    string
	schema  schema
	mapping *mmap.Mapping
}

// createDataFile creates (or truncates) the data file at its full size and
// maps it read-write. New files are sparse and zero-filled.
func createDataFile(fsys fs.FS, path string, sc schema) (*dataFile, error) {
	size, err := sc.fileSize()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" {
		err = fsys.MkdirAll(dir, dirPerm)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, dataFilePerm)
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}

	err = f.Truncate(size)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("size data file: %w", err), f.Close())
	}

	return mapDataFile(f, path, sc, size, mmap.ReadWrite)
}

// openDataFile maps an existing data file, which must be exactly the size
// implied by sc.
func openDataFile(fsys fs.FS, path string, sc schema, mode mmap.Mode) (*dataFile, error) {
	size, err := sc.fileSize()
	if err != nil {
		return nil, err
	}

	flag := os.O_RDONLY
	if mode == mmap.ReadWrite {
		flag = os.O_RDWR
	}

	f, err := fsys.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("data file %s: %w", path, ErrMissingFile)
		}

		return nil, fmt.Errorf("open data file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat data file: %w", err), f.Close())
	}

	if info.Size() != size {
		return nil, errors.Join(
			fmt.Errorf("data file %s is %d bytes, store %s wants %d: %w", path, info.Size(), sc, size, ErrCorrupt),
			f.Close())
	}

	return mapDataFile(f, path, sc, size, mode)
}

// mapDataFile maps f and closes it; the mapping stays valid after close.
func mapDataFile(f fs.File, path string, sc schema, size int64, mode mmap.Mode) (*dataFile, error) {
	m, err := mmap.Map(f, int(size), mode)

	closeErr := f.Close()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("map data file: %w", err), closeErr)
	}

	if closeErr != nil {
		return nil, errors.Join(fmt.Errorf("close data file: %w", closeErr), m.Close())
	}

	return &dataFile{path: path, schema: sc, mapping: m}, nil
}

func (d *dataFile) slot(i int) ([]byte, error) {
	// Stores are never empty, so a nil mapping means it was closed.
	buf := d.mapping.Bytes()
	if buf == nil {
		return nil, mmap.ErrClosed
	}

	n := d.schema.slotBytes()

	return buf[i*n : (i+1)*n], nil
}

// writeRegion copies datum into the leading corner of slot i. Padding
// outside the datum's extents is left untouched.
func (d *dataFile) writeRegion(i int, datum *Array) error {
	if d.mapping.Mode() != mmap.ReadWrite {
		return mmap.ErrReadOnly
	}

	dst, err := d.slot(i)
	if err != nil {
		return err
	}

	src := datum.Bytes()

	forEachRun(datum.shape, d.schema.maxShape, d.schema.dtype.Size(), func(packed, padded, n int) {
		copy(dst[padded:padded+n], src[packed:packed+n])
	})

	return nil
}

// readRegion returns a detached copy of slot i cropped to extents.
func (d *dataFile) readRegion(i int, extents Shape) (*Array, error) {
	src, err := d.slot(i)
	if err != nil {
		return nil, err
	}

	out, err := NewArray(d.schema.dtype, extents)
	if err != nil {
		return nil, err
	}

	dst := out.Bytes()

	forEachRun(extents, d.schema.maxShape, d.schema.dtype.Size(), func(packed, padded, n int) {
		copy(dst[packed:packed+n], src[padded:padded+n])
	})

	return out, nil
}

func (d *dataFile) sync() error {
	err := d.mapping.Sync()
	if err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}

	return nil
}

func (d *dataFile) advise(pattern mmap.AccessPattern) error {
	return d.mapping.Advise(pattern)
}

// close flushes (read-write only) and unmaps. Idempotent.
func (d *dataFile) close() error {
	err := d.mapping.Close()
	if err != nil {
		return fmt.Errorf("close data file %s: %w", d.path, err)
	}

	return nil
}
