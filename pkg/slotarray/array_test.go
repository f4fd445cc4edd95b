package slotarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseDType_Accepts_Names_And_Numpy_Typestrs(t *testing.T) {
	t.Parallel()

	cases := map[string]DType{
		"uint8":   Uint8,
		"Float32": Float32,
		"<i4":     Int32,
		"|u1":     Uint8,
		"f8":      Float64,
		"bool":    Bool,
	}

	for in, want := range cases {
		got, err := ParseDType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "invalid", ">i4", "complex64"} {
		_, err := ParseDType(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func Test_DType_Size_Matches_Element_Width(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Uint8.Size())
	assert.Equal(t, 2, Int16.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Uint64.Size())
	assert.Equal(t, 0, InvalidDType.Size())
}

func Test_FromBytes_Copies_Input_When_Sizes_Match(t *testing.T) {
	t.Parallel()

	src := []byte{1, 2, 3, 4, 5, 6}

	a, err := FromBytes(Uint16, Shape{3}, src)
	require.NoError(t, err)

	src[0] = 99

	assert.Equal(t, byte(1), a.Bytes()[0])
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, Shape{3}, a.Shape())

	_, err = FromBytes(Uint16, Shape{4}, src)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func Test_NewArray_Rejects_Invalid_Dtype_Or_Negative_Axis(t *testing.T) {
	t.Parallel()

	_, err := NewArray(InvalidDType, Shape{1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewArray(Uint8, Shape{2, -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	a, err := NewArray(Float64, Shape{0, 3})
	require.NoError(t, err)
	assert.Empty(t, a.Bytes())
}

func Test_Fill_Sets_Every_Element_When_Value_Is_One_Element_Wide(t *testing.T) {
	t.Parallel()

	a, err := NewArray(Uint16, Shape{2, 2})
	require.NoError(t, err)

	require.NoError(t, a.Fill([]byte{0x34, 0x12}))
	assert.Equal(t, []byte{0x34, 0x12, 0x34, 0x12, 0x34, 0x12, 0x34, 0x12}, a.Bytes())

	require.ErrorIs(t, a.Fill([]byte{1}), ErrInvalidInput)
}

func Test_FromInts_Roundtrips_Through_Ints_When_Values_Fit(t *testing.T) {
	t.Parallel()

	for _, dtype := range []DType{Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64} {
		a, err := FromInts(dtype, []int{0, 1, 2, 100})
		require.NoError(t, err, dtype)

		got, err := a.Ints()
		require.NoError(t, err, dtype)
		assert.Equal(t, []int{0, 1, 2, 100}, got, dtype)
	}

	neg, err := FromInts(Int16, []int{-3, 7})
	require.NoError(t, err)

	got, err := neg.Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{-3, 7}, got)
}

func Test_FromInts_Rejects_Values_When_They_Overflow_Dtype(t *testing.T) {
	t.Parallel()

	_, err := FromInts(Uint8, []int{256})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = FromInts(Int8, []int{-129})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = FromInts(Float32, []int{1})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func Test_Array_Equal_Compares_Dtype_Shape_And_Bytes(t *testing.T) {
	t.Parallel()

	a, _ := FromBytes(Uint8, Shape{2, 2}, []byte{1, 2, 3, 4})
	b, _ := FromBytes(Uint8, Shape{2, 2}, []byte{1, 2, 3, 4})
	c, _ := FromBytes(Uint8, Shape{4, 1}, []byte{1, 2, 3, 4})
	d, _ := FromBytes(Int8, Shape{2, 2}, []byte{1, 2, 3, 4})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}
