package slotarray

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scheme selects the side-car layout of a store.
type Scheme int

const (
	// SchemeExtents records each item's extents in "<base>_lookup" and the
	// store's parameters in the "<base>meta" descriptor. Stores in this
	// scheme are self-describing and readable with [OpenReader].
	SchemeExtents Scheme = iota

	// SchemeOccupancy records only which slots are occupied (and their
	// element count) in "<base>_meta". Extents are not preserved, so the
	// store can be written and resumed but not read back with [OpenReader].
	SchemeOccupancy
)

// ParseScheme accepts "extents" or "occupancy" (also "b" and "a").
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extents", "b", "":
		return SchemeExtents, nil
	case "occupancy", "a":
		return SchemeOccupancy, nil
	}

	return 0, fmt.Errorf("unknown scheme %q: %w", s, ErrInvalidInput)
}

func (s Scheme) String() string {
	switch s {
	case SchemeExtents:
		return "extents"
	case SchemeOccupancy:
		return "occupancy"
	}

	return fmt.Sprintf("scheme(%d)", int(s))
}

func (s Scheme) valid() bool {
	return s == SchemeExtents || s == SchemeOccupancy
}

// Data file extensions stripped when deriving the base path.
var recognizedExts = []string{".npy", ".dat", ".bin"}

// BasePath returns path with a recognized extension stripped.
func BasePath(path string) string {
	ext := filepath.Ext(path)
	for _, known := range recognizedExts {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(path, ext)
		}
	}

	return path
}

// FileSet names the files making up one store.
type FileSet struct {
	Scheme Scheme

	// Data is the padded slot file.
	Data string

	// Lookup is the int32 side-car matrix: "<base>_lookup" or "<base>_meta".
	Lookup string

	// Descriptor is "<base>meta", empty for [SchemeOccupancy].
	Descriptor string
}

// Files returns the file set for a store whose data file is path.
func Files(path string, scheme Scheme) FileSet {
	base := BasePath(path)

	if scheme == SchemeOccupancy {
		return FileSet{Scheme: scheme, Data: path, Lookup: base + "_meta"}
	}

	return FileSet{Scheme: scheme, Data: path, Lookup: base + "_lookup", Descriptor: base + "meta"}
}

// All returns every path in the set, data file first.
func (f FileSet) All() []string {
	paths := []string{f.Data, f.Lookup}
	if f.Descriptor != "" {
		paths = append(paths, f.Descriptor)
	}

	return paths
}

// schema holds the immutable parameters of a store. Both side-car schemes
// are driven by the same struct; tracksExtents selects the lookup layout.
type schema struct {
	capacity      int
	maxShape      Shape
	dtype         DType
	tracksExtents bool
}

func newSchema(capacity int, maxShape Shape, dtype DType, scheme Scheme) (schema, error) {
	sc := schema{
		capacity:      capacity,
		maxShape:      maxShape.Clone(),
		dtype:         dtype,
		tracksExtents: scheme == SchemeExtents,
	}

	if !scheme.valid() {
		return schema{}, fmt.Errorf("scheme %s: %w", scheme, ErrInvalidInput)
	}

	err := sc.validate()
	if err != nil {
		return schema{}, err
	}

	return sc, nil
}

func (s schema) validate() error {
	if s.capacity < 1 || s.capacity > maxCapacity {
		return fmt.Errorf("capacity %d must be in [1, %d]: %w", s.capacity, maxCapacity, ErrInvalidInput)
	}

	err := s.maxShape.validateBound()
	if err != nil {
		return err
	}

	if !s.dtype.Valid() {
		return fmt.Errorf("dtype %s: %w", s.dtype, ErrInvalidInput)
	}

	_, err = s.fileSize()

	return err
}

func (s schema) scheme() Scheme {
	if s.tracksExtents {
		return SchemeExtents
	}

	return SchemeOccupancy
}

// lookupWidth is the number of int32 columns per lookup row.
func (s schema) lookupWidth() int {
	if s.tracksExtents {
		return len(s.maxShape)
	}

	return 2
}

// slotBytes is the padded size of one slot.
func (s schema) slotBytes() int {
	return s.maxShape.Elements() * s.dtype.Size()
}

func (s schema) fileSize() (int64, error) {
	slot, err := mulChecked(s.maxShape.Elements(), s.dtype.Size(), maxDataFileSizeBytes)
	if err != nil {
		return 0, fmt.Errorf("slot size: %w", err)
	}

	total, err := mulChecked(s.capacity, slot, maxDataFileSizeBytes)
	if err != nil {
		return 0, fmt.Errorf("data file size: %w", err)
	}

	return int64(total), nil
}

// equal compares the parameters that must match to reopen a store.
func (s schema) equal(o schema) bool {
	return s.capacity == o.capacity &&
		s.maxShape.Equal(o.maxShape) &&
		s.dtype == o.dtype &&
		s.tracksExtents == o.tracksExtents
}

func (s schema) String() string {
	return fmt.Sprintf("n=%d max_shape=%s dtype=%s scheme=%s", s.capacity, s.maxShape, s.dtype, s.scheme())
}
