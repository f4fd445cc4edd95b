// On-disk format tests for the side-car files.
//
// The int32 matrices must stay loadable by numpy.load, and the descriptor
// must tolerate hand edits while rejecting anything that does not describe
// a valid store.

package slotarray

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// NPY codec
// =============================================================================

func Test_EncodeInt32Matrix_Writes_Npy_V1_Header_When_Encoding(t *testing.T) {
	t.Parallel()

	data, err := encodeInt32Matrix(3, 2, []int32{-1, -1, 1, 16, -1, -1})
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")))

	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	header := string(data[10 : 10+headerLen])

	if got, want := (10+headerLen)%64, 0; got != want {
		t.Fatalf("data offset %% 64=%d, want=%d", got, want)
	}

	require.True(t, strings.HasPrefix(header, "{'descr': '<i4', 'fortran_order': False, 'shape': (3, 2), }"))
	require.True(t, strings.HasSuffix(header, "\n"))

	if got, want := len(data), 10+headerLen+6*4; got != want {
		t.Fatalf("len=%d, want=%d", got, want)
	}

	if got, want := int32(binary.LittleEndian.Uint32(data[10+headerLen+3*4:])), int32(16); got != want {
		t.Fatalf("cell[1][1]=%d, want=%d", got, want)
	}
}

func Test_DecodeInt32Matrix_Returns_Cells_When_Roundtripped(t *testing.T) {
	t.Parallel()

	cells := []int32{-1, -1, -1, 4, 4, 1, 0, 2, 1}

	data, err := encodeInt32Matrix(3, 3, cells)
	require.NoError(t, err)

	rows, cols, got, err := decodeInt32Matrix(data)
	require.NoError(t, err)

	if rows != 3 || cols != 3 {
		t.Fatalf("dims=%dx%d, want=3x3", rows, cols)
	}

	if diff := cmp.Diff(cells, got); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
}

func Test_DecodeInt32Matrix_Accepts_Version2_Header_When_Written_By_Numpy(t *testing.T) {
	t.Parallel()

	header := "{'descr': '<i4', 'fortran_order': False, 'shape': (1, 2), }\n"

	var buf bytes.Buffer

	buf.WriteString("\x93NUMPY\x02\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(header)))
	buf.WriteString(header)
	_ = binary.Write(&buf, binary.LittleEndian, []int32{7, -1})

	rows, cols, cells, err := decodeInt32Matrix(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, rows)
	require.Equal(t, 2, cols)
	require.Equal(t, []int32{7, -1}, cells)
}

func Test_DecodeInt32Matrix_Returns_ErrCorrupt_When_Input_Is_Malformed(t *testing.T) {
	t.Parallel()

	valid, err := encodeInt32Matrix(2, 2, []int32{1, 2, 3, 4})
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":        nil,
		"bad magic":    append([]byte("\x92"), valid[1:]...),
		"truncated":    valid[:len(valid)-1],
		"wrong dtype":  bytes.Replace(valid, []byte("'<i4'"), []byte("'<f4'"), 1),
		"fortran":      bytes.Replace(valid, []byte("False"), []byte("True "), 1),
		"vector shape": bytes.Replace(valid, []byte("(2, 2)"), []byte("(4,)  "), 1),
		"version 9":    append(append([]byte{}, valid[:6]...), append([]byte{9}, valid[7:]...)...),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, _, err := decodeInt32Matrix(data)
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("err=%v, want ErrCorrupt", err)
			}
		})
	}
}

func Test_DecodeInt32Matrix_Returns_ErrCorrupt_When_Shape_Exceeds_Limits(t *testing.T) {
	t.Parallel()

	for _, shape := range []string{
		"(4611686018427387904, 1)",
		"(1, 4611686018427387904)",
		"(3037000500, 3037000500)",
		"(100000001, 2)",
		"(1, 33)",
	} {
		t.Run(shape, func(t *testing.T) {
			t.Parallel()

			_, _, _, err := decodeInt32Matrix(hugeShapeNpy(shape))
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

// =============================================================================
// Lookup table
// =============================================================================

func Test_LookupTable_Records_Extents_When_Tracking_Extents(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 3, Shape{4, 4, 1}, Uint8, SchemeExtents)
	tbl := newLookupTable(sc)

	mustRecord(t, tbl, 1, Shape{4, 4, 1})
	mustRecord(t, tbl, 2, Shape{0, 2, 1})

	require.False(t, tbl.occupied(0))
	require.Nil(t, tbl.extents(0))
	require.Equal(t, Shape{4, 4, 1}, tbl.extents(1))
	require.Equal(t, Shape{0, 2, 1}, tbl.extents(2))

	if diff := cmp.Diff([]int32{-1, -1, -1, 4, 4, 1, 0, 2, 1}, tbl.cells); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
}

func Test_LookupTable_Records_Element_Count_When_Tracking_Occupancy(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 2, Shape{4, 4, 1}, Uint8, SchemeOccupancy)
	tbl := newLookupTable(sc)

	mustRecord(t, tbl, 0, Shape{2, 3, 1})

	require.Equal(t, []int32{1, 6, -1, -1}, tbl.cells)
	require.Nil(t, tbl.extents(0))
}

func Test_LookupTable_RowFor_Returns_ErrInvalidInput_When_Value_Exceeds_Int32(t *testing.T) {
	t.Parallel()

	tracking := &lookupTable{schema: schema{capacity: 1, maxShape: Shape{1, 1}, tracksExtents: true}}

	_, err := tracking.rowFor(Shape{1, 1 << 31})
	require.ErrorIs(t, err, ErrInvalidInput)

	counting := &lookupTable{schema: schema{capacity: 1, maxShape: Shape{1, 1}}}

	_, err = counting.rowFor(Shape{1 << 16, 1 << 16})
	require.ErrorIs(t, err, ErrInvalidInput)

	row, err := counting.rowFor(Shape{3, 5})
	require.NoError(t, err)
	require.Equal(t, []int32{1, 15}, row)
}

func Test_DecodeLookupTable_Rejects_Rows_When_Invalid(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 2, Shape{4, 4}, Uint8, SchemeExtents)

	cases := map[string]struct {
		rows, cols int
		cells      []int32
		want       error
	}{
		"wrong row count":  {rows: 3, cols: 2, cells: []int32{-1, -1, -1, -1, -1, -1}, want: ErrIncompatible},
		"wrong col count":  {rows: 2, cols: 3, cells: []int32{-1, -1, -1, -1, -1, -1}, want: ErrIncompatible},
		"partially free":   {rows: 2, cols: 2, cells: []int32{-1, 3, -1, -1}, want: ErrCorrupt},
		"exceeds bound":    {rows: 2, cols: 2, cells: []int32{5, 1, -1, -1}, want: ErrCorrupt},
		"negative extent":  {rows: 2, cols: 2, cells: []int32{2, -3, -1, -1}, want: ErrCorrupt},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data, err := encodeInt32Matrix(tc.rows, tc.cols, tc.cells)
			require.NoError(t, err)

			_, err = decodeLookupTable(data, sc)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, KindPrecondition, KindOf(err))
		})
	}
}

// =============================================================================
// Descriptor
// =============================================================================

func Test_Descriptor_Roundtrips_Schema_When_Encoded(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 3, Shape{4, 4, 1}, Uint8, SchemeExtents)

	data, err := encodeDescriptor(sc)
	require.NoError(t, err)
	require.Contains(t, string(data), `"max_shape": [`)
	require.Contains(t, string(data), `"dtype": "uint8"`)
	require.Contains(t, string(data), `"tracks_per_item_extents": true`)

	got, err := decodeDescriptor(data)
	require.NoError(t, err)
	require.True(t, got.equal(sc), "got %s, want %s", got, sc)
}

func Test_DecodeDescriptor_Accepts_Comments_And_Legacy_Fields_When_Hand_Written(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		// written by an older tool: no version, numpy typestr
		"n": 10,
		"max_shape": [32, 32, 3],
		"dtype": "|u1",
	}`)

	got, err := decodeDescriptor(data)
	require.NoError(t, err)

	want := mustSchema(t, 10, Shape{32, 32, 3}, Uint8, SchemeExtents)
	require.True(t, got.equal(want), "got %s, want %s", got, want)
}

func Test_DecodeDescriptor_Returns_Error_When_Descriptor_Is_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		data string
		want error
	}{
		"not json":       {data: `n=3`, want: ErrCorrupt},
		"zero capacity":  {data: `{"n": 0, "max_shape": [4], "dtype": "uint8"}`, want: ErrCorrupt},
		"empty shape":    {data: `{"n": 3, "max_shape": [], "dtype": "uint8"}`, want: ErrCorrupt},
		"zero axis":      {data: `{"n": 3, "max_shape": [4, 0], "dtype": "uint8"}`, want: ErrCorrupt},
		"unknown dtype":  {data: `{"n": 3, "max_shape": [4], "dtype": "complex64"}`, want: ErrCorrupt},
		"future version": {data: `{"version": 2, "n": 3, "max_shape": [4], "dtype": "uint8"}`, want: ErrIncompatible},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := decodeDescriptor([]byte(tc.data))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func mustRecord(tb testing.TB, tbl *lookupTable, i int, extents Shape) {
	tb.Helper()

	row, err := tbl.rowFor(extents)
	if err != nil {
		tb.Fatalf("rowFor(%s): %v", extents, err)
	}

	tbl.record(i, row)
}

func mustSchema(tb testing.TB, capacity int, maxShape Shape, dtype DType, scheme Scheme) schema {
	tb.Helper()

	sc, err := newSchema(capacity, maxShape, dtype, scheme)
	if err != nil {
		tb.Fatalf("newSchema: %v", err)
	}

	return sc
}
