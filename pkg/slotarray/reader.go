package slotarray

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/slotarray/internal/mmap"
	"github.com/calvinalkan/slotarray/pkg/fs"
)

// ReaderOptions configures [OpenReaderWithOptions].
type ReaderOptions struct {
	// FS is the filesystem used to open the store. Default is [fs.NewReal].
	FS fs.FS

	// Logger receives debug events. Default discards all output.
	Logger *slog.Logger

	// Parallelism bounds the goroutines used by batch reads.
	//
	// Default is GOMAXPROCS. Must be <= 256.
	Parallelism int
}

// Reader serves random access to the items of an [SchemeExtents] store.
//
// The descriptor is the only source of the store's shape and dtype; the
// lookup side-car supplies each item's extents. All returned arrays are
// detached copies.
//
// A Reader is safe for concurrent use. Its view is fixed at open time, so
// items written afterwards are not visible. Close waits for in-flight reads.
type Reader struct {
	// mu guards closed and the data mapping: reads hold it shared, Close
	// holds it exclusively while unmapping.
	mu sync.RWMutex

	files       FileSet
	schema      schema
	data        *dataFile
	lookup      *lookupTable
	alloc       *allocator
	parallelism int
	log         *slog.Logger
	closed      bool
}

// Range selects slots Start, Start+Step, ... below Stop.
//
// Step 0 means 1. Stop is clamped to the capacity. Negative values are
// rejected.
type Range struct {
	Start, Stop, Step int
}

// Indices resolves the range to slot indices for a store of the given capacity.
func (rg Range) Indices(capacity int) ([]int, error) {
	step := rg.Step
	if step == 0 {
		step = 1
	}

	if rg.Start < 0 || rg.Stop < 0 || step < 0 {
		return nil, fmt.Errorf("range %+v: negative bound or step: %w", rg, ErrInvalidInput)
	}

	stop := min(rg.Stop, capacity)
	if rg.Start >= stop {
		return []int{}, nil
	}

	out := make([]int, 0, (stop-rg.Start+step-1)/step)
	for i := rg.Start; i < stop; i += step {
		out = append(out, i)
	}

	return out, nil
}

// OpenReader opens the store whose data file is path with default options.
func OpenReader(path string) (*Reader, error) {
	return OpenReaderWithOptions(path, ReaderOptions{})
}

// OpenReaderWithOptions opens the store whose data file is path.
//
// Possible errors:
//   - [ErrInvalidInput]: invalid options
//   - [ErrMissingFile]: the data file, descriptor or lookup is absent
//   - [ErrIncompatible]: the descriptor is from a newer version, or the
//     store does not track per-item extents
//   - [ErrCorrupt]: a file cannot be decoded or has the wrong size
func OpenReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required: %w", ErrInvalidInput)
	}

	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	if parallelism < 1 || parallelism > maxParallelism {
		return nil, fmt.Errorf("parallelism %d must be in [1, %d]: %w", parallelism, maxParallelism, ErrInvalidInput)
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	files := Files(path, SchemeExtents)

	sc, err := readDescriptor(fsys, files.Descriptor)
	if err != nil {
		return nil, err
	}

	if !sc.tracksExtents {
		return nil, fmt.Errorf("store %s does not record item extents: %w", path, ErrIncompatible)
	}

	lookup, err := readLookup(fsys, files.Lookup, sc)
	if err != nil {
		return nil, err
	}

	data, err := openDataFile(fsys, files.Data, sc, mmap.ReadOnly)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		files:       files,
		schema:      sc,
		data:        data,
		lookup:      lookup,
		alloc:       resumeAllocator(lookup),
		parallelism: parallelism,
		log:         storeLogger(opts.Logger, path),
	}

	// Access hint only; a failure does not affect correctness.
	err = data.advise(mmap.AccessRandom)
	if err != nil {
		r.log.Debug("madvise failed", slog.Any("error", err))
	}

	r.log.Debug("opened reader",
		slog.String("schema", sc.String()),
		slog.Int("occupied", r.alloc.count()))

	return r, nil
}

func (r *Reader) checkSlot(i int) error {
	if i < 0 || i >= r.schema.capacity {
		return fmt.Errorf("read at %d, capacity %d: %w", i, r.schema.capacity, ErrOutOfRange)
	}

	if !r.lookup.occupied(i) {
		return fmt.Errorf("read at %d: %w", i, ErrEmptySlot)
	}

	return nil
}

// Get returns the item in slot i, cropped to its recorded extents.
//
// Possible errors:
//   - [ErrOutOfRange]: i is outside [0, capacity)
//   - [ErrEmptySlot]: slot i holds no item
//   - [ErrClosed]: the reader was closed
func (r *Reader) Get(i int) (*Array, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	err := r.checkSlot(i)
	if err != nil {
		return nil, err
	}

	return r.read(i)
}

func (r *Reader) read(i int) (*Array, error) {
	a, err := r.data.readRegion(i, r.lookup.extents(i))
	if err != nil {
		return nil, fmt.Errorf("read at %d: %w", i, err)
	}

	return a, nil
}

// Gather returns the items at indices, in request order. Every index is
// validated before any slot is read; duplicates are allowed.
func (r *Reader) Gather(indices []int) ([]*Array, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	for _, i := range indices {
		err := r.checkSlot(i)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*Array, len(indices))

	var g errgroup.Group

	g.SetLimit(r.parallelism)

	for k, i := range indices {
		g.Go(func() error {
			a, err := r.read(i)
			if err != nil {
				return err
			}

			out[k] = a

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Slice returns the items selected by rg, in ascending order.
func (r *Reader) Slice(rg Range) ([]*Array, error) {
	indices, err := rg.Indices(r.schema.capacity)
	if err != nil {
		return nil, err
	}

	return r.Gather(indices)
}

// Select reads the slots named by index, which may be:
//   - any Go integer type: one item
//   - a slice of a Go integer type: one item per element
//   - [Range] or *[Range]: one item per selected slot
//   - *[Array] with an integer dtype and rank 1: one item per element
//
// Any other value fails with [ErrInvalidInput].
func (r *Reader) Select(index any) ([]*Array, error) {
	switch idx := index.(type) {
	case int:
		return r.Gather([]int{idx})
	case int8:
		return r.Gather([]int{int(idx)})
	case int16:
		return r.Gather([]int{int(idx)})
	case int32:
		return r.Gather([]int{int(idx)})
	case int64:
		return r.Gather([]int{int(idx)})
	case uint:
		return r.Gather([]int{int(idx)})
	case uint8:
		return r.Gather([]int{int(idx)})
	case uint16:
		return r.Gather([]int{int(idx)})
	case uint32:
		return r.Gather([]int{int(idx)})
	case uint64:
		return r.Gather([]int{int(idx)})
	case []int:
		return r.Gather(idx)
	case []int32:
		return r.Gather(toInts(idx))
	case []int64:
		return r.Gather(toInts(idx))
	case []uint32:
		return r.Gather(toInts(idx))
	case []uint64:
		return r.Gather(toInts(idx))
	case Range:
		return r.Slice(idx)
	case *Range:
		if idx == nil {
			break
		}

		return r.Slice(*idx)
	case *Array:
		if idx == nil || idx.shape.Rank() != 1 || !idx.dtype.IsInteger() {
			break
		}

		indices, err := idx.Ints()
		if err != nil {
			return nil, err
		}

		return r.Gather(indices)
	}

	return nil, fmt.Errorf("unsupported index %v (%T): %w", index, index, ErrInvalidInput)
}

func toInts[T int32 | int64 | uint32 | uint64](in []T) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}

	return out
}

// Extents returns the recorded extents of slot i.
func (r *Reader) Extents(i int) (Shape, error) {
	err := r.checkSlot(i)
	if err != nil {
		return nil, err
	}

	return r.lookup.extents(i), nil
}

// Occupied reports whether slot i holds an item. Out-of-range indices
// report false.
func (r *Reader) Occupied(i int) bool {
	return i >= 0 && i < r.schema.capacity && r.lookup.occupied(i)
}

// Indices returns the occupied slots in ascending order.
func (r *Reader) Indices() []int { return r.alloc.indices() }

// Len returns the number of occupied slots.
func (r *Reader) Len() int { return r.alloc.count() }

// Capacity returns the number of slots.
func (r *Reader) Capacity() int { return r.schema.capacity }

// MaxShape returns a copy of the store's maximum shape.
func (r *Reader) MaxShape() Shape { return r.schema.maxShape.Clone() }

// DType returns the store's element type.
func (r *Reader) DType() DType { return r.schema.dtype }

// Files returns the store's file set.
func (r *Reader) Files() FileSet { return r.files }

// Close unmaps the data file. It is idempotent. Arrays already returned stay
// valid.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.data.close()
}
