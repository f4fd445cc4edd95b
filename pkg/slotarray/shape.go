package slotarray

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Shape is the extent of each axis of an array, outermost first.
type Shape []int

// ParseShape parses "4,4,1", "(4, 4, 1)" or "4x4x1".
func ParseShape(s string) (Shape, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	trimmed = strings.ReplaceAll(trimmed, "x", ",")

	fields := strings.Split(trimmed, ",")
	if len(fields) > 0 && strings.TrimSpace(fields[len(fields)-1]) == "" {
		// "(4,)" is a rank-1 tuple.
		fields = fields[:len(fields)-1]
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("empty shape %q: %w", s, ErrInvalidInput)
	}

	shape := make(Shape, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid axis %q in shape %q: %w", f, s, ErrInvalidInput)
		}

		shape = append(shape, v)
	}

	return shape, nil
}

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s) }

// Elements returns the product of all axes. A rank-0 shape has one element.
func (s Shape) Elements() int {
	n := 1
	for _, d := range s {
		n *= d
	}

	return n
}

// Equal reports whether s and o have the same axes.
func (s Shape) Equal(o Shape) bool { return slices.Equal(s, o) }

// Clone returns a copy of s.
func (s Shape) Clone() Shape { return slices.Clone(s) }

// String formats s like a tuple: "(4, 4, 1)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}

	if len(s) == 1 {
		return "(" + parts[0] + ",)"
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// elementsChecked is Elements with overflow and limit checking.
func (s Shape) elementsChecked(limit int64) (int, error) {
	n := 1

	for _, d := range s {
		var err error

		n, err = mulChecked(n, d, limit)
		if err != nil {
			return 0, fmt.Errorf("shape %s: %w", s, err)
		}
	}

	return n, nil
}

// validateBound checks s for use as a store's maximum shape.
func (s Shape) validateBound() error {
	if len(s) == 0 {
		return fmt.Errorf("max shape must have at least one axis: %w", ErrInvalidInput)
	}

	if len(s) > maxRank {
		return fmt.Errorf("max shape rank %d exceeds %d: %w", len(s), maxRank, ErrInvalidInput)
	}

	for axis, d := range s {
		if d <= 0 {
			return fmt.Errorf("max shape %s: axis %d must be > 0: %w", s, axis, ErrInvalidInput)
		}
	}

	_, err := s.elementsChecked(maxSlotElements)

	return err
}

// fits checks that an item with extents s can be stored under bound.
// Zero-length axes are accepted.
func (s Shape) fits(bound Shape) error {
	if len(s) != len(bound) {
		return fmt.Errorf("rank %d, want %d: %w", len(s), len(bound), ErrShape)
	}

	for axis, d := range s {
		if d < 0 || d > bound[axis] {
			return fmt.Errorf("axis %d extent %d exceeds bound %d of %s: %w", axis, d, bound[axis], bound, ErrShape)
		}
	}

	return nil
}

// byteStrides returns row-major strides in bytes for elements of width.
func (s Shape) byteStrides(width int) []int {
	strides := make([]int, len(s))

	stride := width
	for axis := len(s) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= s[axis]
	}

	return strides
}

// forEachRun walks the innermost-axis runs of an item with the given extents
// stored inside a padded region shaped bound. For each run it calls fn with
// the byte offset in the packed item, the byte offset in the padded region
// and the run length in bytes.
func forEachRun(extents, bound Shape, width int, fn func(packed, padded, n int)) {
	rank := len(extents)
	if rank == 0 {
		return
	}

	for _, d := range extents {
		if d == 0 {
			return
		}
	}

	run := extents[rank-1] * width
	padStrides := bound.byteStrides(width)
	idx := make([]int, rank-1)
	packed := 0

	for {
		padded := 0
		for axis, v := range idx {
			padded += v * padStrides[axis]
		}

		fn(packed, padded, run)
		packed += run

		axis := rank - 2
		for ; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < extents[axis] {
				break
			}

			idx[axis] = 0
		}

		if axis < 0 {
			return
		}
	}
}
