package slotarray

import (
	"fmt"
	"strings"
)

// DType is the element type of a store. All elements are little-endian.
type DType uint8

// Supported element types. The zero value is invalid.
const (
	InvalidDType DType = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var dtypeNames = [...]string{
	InvalidDType: "invalid",
	Bool:         "bool",
	Int8:         "int8",
	Uint8:        "uint8",
	Int16:        "int16",
	Uint16:       "uint16",
	Int32:        "int32",
	Uint32:       "uint32",
	Int64:        "int64",
	Uint64:       "uint64",
	Float32:      "float32",
	Float64:      "float64",
}

// typestr codes as written by NumPy ("<i4", "|u1", ...).
var dtypeCodes = map[string]DType{
	"b1": Bool,
	"i1": Int8,
	"u1": Uint8,
	"i2": Int16,
	"u2": Uint16,
	"i4": Int32,
	"u4": Uint32,
	"i8": Int64,
	"u8": Uint64,
	"f4": Float32,
	"f8": Float64,
}

// ParseDType accepts a dtype name ("uint8", "float32") or a NumPy typestr
// ("<f4", "|u1"). Big-endian typestrs are rejected.
func ParseDType(s string) (DType, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for d, n := range dtypeNames {
		if d != int(InvalidDType) && n == name {
			return DType(d), nil
		}
	}

	code := name
	if code != "" && (code[0] == '<' || code[0] == '|' || code[0] == '=') {
		code = code[1:]
	}

	if d, ok := dtypeCodes[code]; ok {
		return d, nil
	}

	return InvalidDType, fmt.Errorf("unknown dtype %q: %w", s, ErrInvalidInput)
}

// Valid reports whether d is a supported element type.
func (d DType) Valid() bool {
	return d > InvalidDType && int(d) < len(dtypeNames)
}

// Size returns the element width in bytes, or 0 for an invalid dtype.
func (d DType) Size() int {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case InvalidDType:
		return 0
	}

	return 0
}

// IsInteger reports whether d is a signed or unsigned integer type.
func (d DType) IsInteger() bool {
	switch d {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	case InvalidDType, Bool, Float32, Float64:
		return false
	}

	return false
}

func (d DType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}

	return dtypeNames[d]
}

// MarshalText implements [encoding.TextMarshaler].
func (d DType) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("marshal %s: %w", d, ErrInvalidInput)
	}

	return []byte(d.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
