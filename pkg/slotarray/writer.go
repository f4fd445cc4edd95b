package slotarray

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"

	"github.com/calvinalkan/slotarray/internal/mmap"
	"github.com/calvinalkan/slotarray/pkg/fs"
)

// Options configures opening or creating a store for writing.
type Options struct {
	// Path is the data file. Side-car paths are derived from it, see [Files].
	//
	// Required.
	Path string

	// Capacity is the number of slots.
	//
	// Must be >= 1. Fixed at creation time.
	Capacity int

	// MaxShape bounds every axis of every item. Its rank is the rank of all
	// items.
	//
	// Every axis must be >= 1. Fixed at creation time.
	MaxShape Shape

	// DType is the element type of all items.
	//
	// Required. Fixed at creation time.
	DType DType

	// Scheme selects the side-car layout. Default is [SchemeExtents].
	Scheme Scheme

	// Overwrite discards an existing store at Path instead of resuming it.
	Overwrite bool

	// FS is the filesystem used for all file operations.
	//
	// Default is [fs.NewReal].
	FS fs.FS

	// Logger receives debug events (create, reopen, flush) and warnings.
	//
	// Default discards all output.
	Logger *slog.Logger
}

// Writer appends or places items into a store's slots.
//
// A Writer must be the only writer of its store and is not safe for
// concurrent use. Changes are persisted by [Writer.Sync], [Writer.Flush] or
// [Writer.Close].
type Writer struct {
	fsys   fs.FS
	files  FileSet
	schema schema
	log    *slog.Logger

	data   *dataFile
	lookup *lookupTable
	alloc  *allocator

	// created is true when this writer created the store, which makes it
	// responsible for the descriptor.
	created bool
	closed  bool
}

// OpenWriter opens the store at opts.Path, creating it if the data file does
// not exist (or when opts.Overwrite is set).
//
// An existing store resumes: its occupancy is loaded from the lookup
// side-car and [Writer.Add] continues at the lowest free slot.
//
// Possible errors:
//   - [ErrInvalidInput]: invalid options
//   - [ErrIncompatible]: the existing store has a different capacity,
//     max shape, dtype or scheme
//   - [ErrMissingFile]: the data file exists but a side-car does not
//   - [ErrCorrupt]: a side-car cannot be decoded or the data file has the
//     wrong size
//   - filesystem and mmap errors
func OpenWriter(opts Options) (*Writer, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required: %w", ErrInvalidInput)
	}

	sc, err := newSchema(opts.Capacity, opts.MaxShape, opts.DType, opts.Scheme)
	if err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	w := &Writer{
		fsys:   fsys,
		files:  Files(opts.Path, opts.Scheme),
		schema: sc,
		log:    storeLogger(opts.Logger, opts.Path),
	}

	exists, err := fsys.Exists(w.files.Data)
	if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	if exists && !opts.Overwrite {
		err = w.resume()
	} else {
		if opts.Overwrite {
			w.removeExisting()
		}

		err = w.create()
	}

	if err != nil {
		return nil, err
	}

	return w, nil
}

// WithWriter opens a writer, runs fn, and flushes exactly once however fn
// exits: on success, on error, and on panic.
//
// A flush error is joined with fn's error.
func WithWriter(opts Options, fn func(w *Writer) error) (err error) {
	w, err := OpenWriter(opts)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, w.Close())
	}()

	return fn(w)
}

func (w *Writer) create() error {
	data, err := createDataFile(w.fsys, w.files.Data, w.schema)
	if err != nil {
		return err
	}

	w.data = data
	w.lookup = newLookupTable(w.schema)
	w.alloc = newAllocator(w.schema.capacity)
	w.created = true

	// Persist the empty side-cars right away so an interrupted writer leaves
	// a store that can be resumed.
	err = w.writeSidecars()
	if err != nil {
		return errors.Join(err, data.close())
	}

	w.log.Debug("created store",
		slog.String("schema", w.schema.String()),
		slog.Int("slot_bytes", w.schema.slotBytes()))

	return nil
}

func (w *Writer) resume() error {
	if w.schema.tracksExtents {
		stored, err := readDescriptor(w.fsys, w.files.Descriptor)
		if err != nil {
			return err
		}

		if !stored.equal(w.schema) {
			return fmt.Errorf("store has %s, requested %s: %w", stored, w.schema, ErrIncompatible)
		}
	}

	lookup, err := readLookup(w.fsys, w.files.Lookup, w.schema)
	if err != nil {
		return err
	}

	data, err := openDataFile(w.fsys, w.files.Data, w.schema, mmap.ReadWrite)
	if err != nil {
		return err
	}

	w.data = data
	w.lookup = lookup
	w.alloc = resumeAllocator(lookup)

	w.log.Debug("reopened store",
		slog.Int("pointer", w.alloc.pointer),
		slog.Int("occupied", w.alloc.count()))

	return nil
}

// removeExisting deletes the data file and the side-cars of both schemes,
// so a store recreated under the other scheme leaves no stale side-car.
// Failures are logged; the subsequent create truncates the data file and
// replaces its own side-cars.
func (w *Writer) removeExisting() {
	seen := make(map[string]bool)

	for _, scheme := range []Scheme{SchemeExtents, SchemeOccupancy} {
		for _, path := range Files(w.files.Data, scheme).All() {
			if seen[path] {
				continue
			}

			seen[path] = true

			err := w.fsys.Remove(path)
			if err != nil && !errors.Is(err, iofs.ErrNotExist) {
				w.log.Warn("overwrite: remove failed", slog.String("path", path), slog.Any("error", err))
			}
		}
	}
}

// Add stores datum in the slot at the allocation pointer and returns its
// index.
//
// Possible errors:
//   - [ErrFull]: every slot at or above the pointer is occupied
//   - [ErrShape]: rank, dtype or an axis does not fit the store
//   - [ErrClosed]: the writer was flushed or closed
func (w *Writer) Add(datum *Array) (int, error) {
	if w.closed {
		return noFreeSlot, ErrClosed
	}

	i := w.alloc.pointer
	if i == noFreeSlot {
		return noFreeSlot, fmt.Errorf("add to %s (%d slots): %w", w.files.Data, w.schema.capacity, ErrFull)
	}

	err := w.Insert(i, datum)
	if err != nil {
		return noFreeSlot, err
	}

	return i, nil
}

// Insert stores datum in slot i. The call is validated completely before
// anything is written; on error the store is unchanged.
//
// Possible errors:
//   - [ErrInvalidInput]: datum is nil
//   - [ErrOutOfRange]: i is outside [0, capacity)
//   - [ErrOccupied]: slot i already holds an item
//   - [ErrShape]: rank, dtype or an axis does not fit the store
//   - [ErrClosed]: the writer was flushed or closed
func (w *Writer) Insert(i int, datum *Array) error {
	if w.closed {
		return ErrClosed
	}

	if datum == nil {
		return fmt.Errorf("nil datum: %w", ErrInvalidInput)
	}

	if i < 0 || i >= w.schema.capacity {
		return fmt.Errorf("insert at %d, capacity %d: %w", i, w.schema.capacity, ErrOutOfRange)
	}

	if !w.alloc.isFree(i) {
		return fmt.Errorf("insert at %d: %w", i, ErrOccupied)
	}

	if datum.dtype != w.schema.dtype {
		return fmt.Errorf("insert at %d: dtype %s, store is %s: %w", i, datum.dtype, w.schema.dtype, ErrShape)
	}

	err := datum.shape.fits(w.schema.maxShape)
	if err != nil {
		return fmt.Errorf("insert at %d: %w", i, err)
	}

	row, err := w.lookup.rowFor(datum.shape)
	if err != nil {
		return fmt.Errorf("insert at %d: %w", i, err)
	}

	err = w.data.writeRegion(i, datum)
	if err != nil {
		return fmt.Errorf("insert at %d: %w", i, err)
	}

	w.lookup.record(i, row)
	w.alloc.markOccupied(i)

	return nil
}

// Sync checkpoints the store without closing the writer: the data file is
// flushed and the side-cars are rewritten atomically.
func (w *Writer) Sync() error {
	if w.closed {
		return ErrClosed
	}

	err := w.data.sync()
	if err != nil {
		return err
	}

	err = w.writeSidecars()
	if err != nil {
		return err
	}

	w.log.Debug("synced store", slog.Int("occupied", w.alloc.count()))

	return nil
}

// Flush persists the store and closes the writer.
//
// The data mapping is flushed and released first. Only if that succeeds is
// the lookup side-car replaced (and the descriptor, for a store created by
// this writer), so the side-cars never claim data that did not reach the
// data file. Any later call returns [ErrClosed].
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}

	w.closed = true

	err := w.data.close()
	if err != nil {
		return fmt.Errorf("flush: side-cars not rewritten: %w", err)
	}

	err = w.writeSidecars()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	w.log.Debug("flushed store",
		slog.Int("occupied", w.alloc.count()),
		slog.Int("pointer", w.alloc.pointer))

	return nil
}

// Close flushes the writer if it has not been flushed yet. It is
// idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	return w.Flush()
}

func (w *Writer) writeSidecars() error {
	err := writeLookup(w.fsys, w.files.Lookup, w.lookup)
	if err != nil {
		return err
	}

	if w.created && w.files.Descriptor != "" {
		err = writeDescriptor(w.fsys, w.files.Descriptor, w.schema)
		if err != nil {
			return err
		}
	}

	return nil
}

// Pointer returns the slot the next [Writer.Add] fills, or -1 when full.
func (w *Writer) Pointer() int { return w.alloc.pointer }

// Len returns the number of occupied slots.
func (w *Writer) Len() int { return w.alloc.count() }

// Capacity returns the number of slots.
func (w *Writer) Capacity() int { return w.schema.capacity }

// MaxShape returns a copy of the store's maximum shape.
func (w *Writer) MaxShape() Shape { return w.schema.maxShape.Clone() }

// DType returns the store's element type.
func (w *Writer) DType() DType { return w.schema.dtype }

// Files returns the store's file set.
func (w *Writer) Files() FileSet { return w.files }

// Occupied reports whether slot i holds an item. Out-of-range indices
// report false.
func (w *Writer) Occupied(i int) bool {
	return i >= 0 && i < w.schema.capacity && !w.alloc.isFree(i)
}
