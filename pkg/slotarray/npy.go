package slotarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Int32 matrices are stored in the NumPy .npy format (version 1.0, "<i4",
// C order) so side-cars stay readable with numpy.load.

var npyMagic = []byte("\x93NUMPY")

const (
	npyPreludeLen = 10 // magic + version + uint16 header length
	npyAlign      = 64
)

// encodeInt32Matrix encodes a rows × cols row-major matrix.
func encodeInt32Matrix(rows, cols int, cells []int32) ([]byte, error) {
	if rows < 0 || cols < 0 || len(cells) != rows*cols {
		return nil, fmt.Errorf("matrix %dx%d with %d cells: %w", rows, cols, len(cells), ErrInvalidInput)
	}

	header := fmt.Sprintf("{'descr': '<i4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)

	// Pad with spaces so the data starts on an aligned offset; the header
	// ends with a newline.
	total := npyPreludeLen + len(header) + 1
	if rem := total % npyAlign; rem != 0 {
		header += strings.Repeat(" ", npyAlign-rem)
	}

	header += "\n"

	buf := bytes.NewBuffer(make([]byte, 0, npyPreludeLen+len(header)+4*len(cells)))
	buf.Write(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)

	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	buf.Write(hlen[:])
	buf.WriteString(header)

	var cell [4]byte
	for _, v := range cells {
		binary.LittleEndian.PutUint32(cell[:], uint32(v))
		buf.Write(cell[:])
	}

	return buf.Bytes(), nil
}

// decodeInt32Matrix decodes an .npy file holding a 2-D "<i4" matrix in C
// order. Versions 1.0 through 3.0 are accepted.
func decodeInt32Matrix(data []byte) (rows, cols int, cells []int32, err error) {
	if len(data) < npyPreludeLen || !bytes.Equal(data[:len(npyMagic)], npyMagic) {
		return 0, 0, nil, fmt.Errorf("not an npy file: %w", ErrCorrupt)
	}

	major := data[6]

	var headerLen, offset int

	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return 0, 0, nil, fmt.Errorf("truncated npy prelude: %w", ErrCorrupt)
		}

		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		offset = 12
	default:
		return 0, 0, nil, fmt.Errorf("npy version %d: %w", major, ErrCorrupt)
	}

	if headerLen < 0 || offset+headerLen > len(data) {
		return 0, 0, nil, fmt.Errorf("truncated npy header: %w", ErrCorrupt)
	}

	header := string(data[offset : offset+headerLen])

	descr, err := npyHeaderField(header, "descr")
	if err != nil {
		return 0, 0, nil, err
	}

	descr = strings.Trim(descr, `'"`)
	if descr != "<i4" && descr != "=i4" {
		return 0, 0, nil, fmt.Errorf("npy descr %q, want '<i4': %w", descr, ErrCorrupt)
	}

	order, err := npyHeaderField(header, "fortran_order")
	if err != nil {
		return 0, 0, nil, err
	}

	if order != "False" {
		return 0, 0, nil, fmt.Errorf("npy fortran_order %s: %w", order, ErrCorrupt)
	}

	shapeField, err := npyHeaderField(header, "shape")
	if err != nil {
		return 0, 0, nil, err
	}

	shape, err := ParseShape(shapeField)
	if err != nil || len(shape) != 2 {
		return 0, 0, nil, fmt.Errorf("npy shape %s is not a matrix: %w", shapeField, ErrCorrupt)
	}

	rows, cols = shape[0], shape[1]

	if rows > maxCapacity || cols > maxRank {
		return 0, 0, nil, fmt.Errorf("npy shape %s exceeds (%d, %d): %w", shapeField, maxCapacity, maxRank, ErrCorrupt)
	}

	body := data[offset+headerLen:]
	if len(body) != 4*rows*cols {
		return 0, 0, nil, fmt.Errorf("npy body is %d bytes, want %d: %w", len(body), 4*rows*cols, ErrCorrupt)
	}

	cells = make([]int32, rows*cols)
	for i := range cells {
		cells[i] = int32(binary.LittleEndian.Uint32(body[4*i:]))
	}

	return rows, cols, cells, nil
}

// npyHeaderField extracts the raw value of key from the header dict literal.
// Values are a quoted string, a bare word, or a parenthesized tuple.
func npyHeaderField(header, key string) (string, error) {
	idx := strings.Index(header, "'"+key+"'")
	if idx < 0 {
		return "", fmt.Errorf("npy header has no %q: %w", key, ErrCorrupt)
	}

	rest := header[idx+len(key)+2:]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return "", fmt.Errorf("npy header %q has no value: %w", key, ErrCorrupt)
	}

	rest = strings.TrimLeft(rest[colon+1:], " ")

	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", fmt.Errorf("npy header %q: unterminated tuple: %w", key, ErrCorrupt)
		}

		return rest[:end+1], nil
	}

	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		return "", fmt.Errorf("npy header %q: unterminated value: %w", key, ErrCorrupt)
	}

	return strings.TrimSpace(rest[:end]), nil
}

