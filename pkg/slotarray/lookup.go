package slotarray

import (
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/calvinalkan/slotarray/pkg/fs"
)

// freeCell marks a free slot in the lookup matrix.
const freeCell int32 = -1

const sidecarPerm = 0o644

// lookupTable is the in-memory lookup side-car: one row per slot.
//
// With extents tracking a row holds the item's extents (all -1 when free).
// Without it a row is [1, element_count] when occupied and [-1, -1] when free.
type lookupTable struct {
	schema schema
	cells  []int32
}

func newLookupTable(sc schema) *lookupTable {
	cells := make([]int32, sc.capacity*sc.lookupWidth())
	for i := range cells {
		cells[i] = freeCell
	}

	return &lookupTable{schema: sc, cells: cells}
}

func (t *lookupTable) row(i int) []int32 {
	w := t.schema.lookupWidth()

	return t.cells[i*w : (i+1)*w]
}

func (t *lookupTable) occupied(i int) bool {
	return t.row(i)[0] != freeCell
}

// extents returns the recorded extents of slot i, or nil when the table does
// not track extents or the slot is free.
func (t *lookupTable) extents(i int) Shape {
	if !t.schema.tracksExtents || !t.occupied(i) {
		return nil
	}

	row := t.row(i)
	out := make(Shape, len(row))

	for axis, v := range row {
		out[axis] = int(v)
	}

	return out
}

// rowFor returns the lookup row recording an item with the given extents.
func (t *lookupTable) rowFor(extents Shape) ([]int32, error) {
	if !t.schema.tracksExtents {
		n, err := intToInt32Checked(extents.Elements())
		if err != nil {
			return nil, fmt.Errorf("element count: %w", err)
		}

		return []int32{1, n}, nil
	}

	row := make([]int32, len(extents))

	for axis, d := range extents {
		v, err := intToInt32Checked(d)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}

		row[axis] = v
	}

	return row, nil
}

// record marks slot i occupied with a row built by rowFor.
func (t *lookupTable) record(i int, row []int32) {
	copy(t.row(i), row)
}

func (t *lookupTable) encode() ([]byte, error) {
	return encodeInt32Matrix(t.schema.capacity, t.schema.lookupWidth(), t.cells)
}

// decodeLookupTable decodes and validates a lookup side-car against sc.
func decodeLookupTable(data []byte, sc schema) (*lookupTable, error) {
	rows, cols, cells, err := decodeInt32Matrix(data)
	if err != nil {
		return nil, err
	}

	if rows != sc.capacity || cols != sc.lookupWidth() {
		return nil, fmt.Errorf("lookup is %dx%d, store wants %dx%d: %w",
			rows, cols, sc.capacity, sc.lookupWidth(), ErrIncompatible)
	}

	t := &lookupTable{schema: sc, cells: cells}

	for i := range rows {
		err = t.validateRow(i)
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *lookupTable) validateRow(i int) error {
	row := t.row(i)

	if row[0] == freeCell {
		for _, v := range row {
			if v != freeCell {
				return fmt.Errorf("lookup row %d is partially free %v: %w", i, row, ErrCorrupt)
			}
		}

		return nil
	}

	if !t.schema.tracksExtents {
		if row[0] != 1 || row[1] < 0 || int(row[1]) > t.schema.maxShape.Elements() {
			return fmt.Errorf("occupancy row %d is %v: %w", i, row, ErrCorrupt)
		}

		return nil
	}

	err := t.extents(i).fits(t.schema.maxShape)
	if err != nil {
		return fmt.Errorf("lookup row %d: %v: %w", i, err, ErrCorrupt)
	}

	return nil
}

func readLookup(fsys fs.FS, path string, sc schema) (*lookupTable, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("lookup %s: %w", path, ErrMissingFile)
		}

		return nil, fmt.Errorf("read lookup: %w", err)
	}

	t, err := decodeLookupTable(data, sc)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", path, err)
	}

	return t, nil
}

func writeLookup(fsys fs.FS, path string, t *lookupTable) error {
	data, err := t.encode()
	if err != nil {
		return err
	}

	err = fsys.WriteFileAtomic(path, data, sidecarPerm)
	if err != nil {
		return fmt.Errorf("write lookup: %w", err)
	}

	return nil
}
