package slotarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Array is a dense n-dimensional array: a dtype, a shape and the elements in
// row-major order, little-endian.
//
// Arrays returned by a [Reader] are detached copies and may be modified.
type Array struct {
	dtype DType
	shape Shape
	data  []byte
}

// NewArray returns a zero-filled array.
func NewArray(dtype DType, shape Shape) (*Array, error) {
	size, err := arrayByteSize(dtype, shape)
	if err != nil {
		return nil, err
	}

	return &Array{dtype: dtype, shape: shape.Clone(), data: make([]byte, size)}, nil
}

// FromBytes returns an array over a copy of data, which must hold exactly
// shape.Elements() elements of dtype.
func FromBytes(dtype DType, shape Shape, data []byte) (*Array, error) {
	size, err := arrayByteSize(dtype, shape)
	if err != nil {
		return nil, err
	}

	if len(data) != size {
		return nil, fmt.Errorf("%d bytes for %s %s, want %d: %w", len(data), dtype, shape, size, ErrInvalidInput)
	}

	return &Array{dtype: dtype, shape: shape.Clone(), data: bytes.Clone(data)}, nil
}

// FromInts returns a 1-D array of an integer dtype holding values.
func FromInts(dtype DType, values []int) (*Array, error) {
	if !dtype.IsInteger() {
		return nil, fmt.Errorf("dtype %s is not an integer type: %w", dtype, ErrInvalidInput)
	}

	a, err := NewArray(dtype, Shape{len(values)})
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		err = a.setInt(i, v)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

func arrayByteSize(dtype DType, shape Shape) (int, error) {
	if !dtype.Valid() {
		return 0, fmt.Errorf("dtype %s: %w", dtype, ErrInvalidInput)
	}

	for axis, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("shape %s: axis %d is negative: %w", shape, axis, ErrInvalidInput)
		}
	}

	elems, err := shape.elementsChecked(math.MaxInt32)
	if err != nil {
		return 0, err
	}

	return mulChecked(elems, dtype.Size(), math.MaxInt)
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the shape.
func (a *Array) Shape() Shape { return a.shape.Clone() }

// Len returns the number of elements.
func (a *Array) Len() int { return a.shape.Elements() }

// Bytes returns the underlying element bytes. Modifying them modifies a.
func (a *Array) Bytes() []byte { return a.data }

// Equal reports whether a and b have the same dtype, shape and bytes.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.dtype == b.dtype && a.shape.Equal(b.shape) && bytes.Equal(a.data, b.data)
}

// Fill sets every element to the little-endian encoding in elem, which must
// be exactly one element wide.
func (a *Array) Fill(elem []byte) error {
	width := a.dtype.Size()
	if len(elem) != width {
		return fmt.Errorf("fill value is %d bytes, want %d: %w", len(elem), width, ErrInvalidInput)
	}

	for off := 0; off < len(a.data); off += width {
		copy(a.data[off:off+width], elem)
	}

	return nil
}

// Ints decodes the elements of an integer array in row-major order.
func (a *Array) Ints() ([]int, error) {
	if !a.dtype.IsInteger() {
		return nil, fmt.Errorf("dtype %s is not an integer type: %w", a.dtype, ErrInvalidInput)
	}

	out := make([]int, a.Len())
	width := a.dtype.Size()

	for i := range out {
		b := a.data[i*width : (i+1)*width]

		switch a.dtype {
		case Int8:
			out[i] = int(int8(b[0]))
		case Uint8:
			out[i] = int(b[0])
		case Int16:
			out[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case Uint16:
			out[i] = int(binary.LittleEndian.Uint16(b))
		case Int32:
			out[i] = int(int32(binary.LittleEndian.Uint32(b)))
		case Uint32:
			out[i] = int(binary.LittleEndian.Uint32(b))
		case Int64:
			out[i] = int(int64(binary.LittleEndian.Uint64(b)))
		case Uint64:
			v := binary.LittleEndian.Uint64(b)
			if v > math.MaxInt {
				return nil, fmt.Errorf("element %d (%d) overflows int: %w", i, v, ErrInvalidInput)
			}

			out[i] = int(v)
		case InvalidDType, Bool, Float32, Float64:
		}
	}

	return out, nil
}

func (a *Array) setInt(i, v int) error {
	width := a.dtype.Size()
	b := a.data[i*width : (i+1)*width]

	var lo, hi int

	switch a.dtype {
	case Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case Uint8:
		lo, hi = 0, math.MaxUint8
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case Uint16:
		lo, hi = 0, math.MaxUint16
	case Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case Uint32:
		lo, hi = 0, math.MaxUint32
	case Int64:
		lo, hi = math.MinInt64, math.MaxInt64
	case Uint64:
		lo, hi = 0, math.MaxInt64
	case InvalidDType, Bool, Float32, Float64:
		return fmt.Errorf("dtype %s is not an integer type: %w", a.dtype, ErrInvalidInput)
	}

	if v < lo || v > hi {
		return fmt.Errorf("value %d does not fit %s: %w", v, a.dtype, ErrInvalidInput)
	}

	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}

	return nil
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(%s, shape=%s)", a.dtype, a.shape)
}
