package slotarray

import (
	"fmt"
	"math"
)

// Hardcoded implementation limits.
//
// These limits exist to keep arithmetic away from overflow boundaries and to
// keep every value representable in the on-disk int32 lookup cells. All
// limit violations return ErrInvalidInput.
const (
	// Maximum number of slots. Also keeps slot indices inside uint32 for the
	// occupancy bitmap.
	maxCapacity = 100_000_000

	// Maximum rank of MaxShape.
	maxRank = 32

	// Maximum number of elements in one slot. The occupancy scheme stores
	// the element count in an int32 cell.
	maxSlotElements = math.MaxInt32

	// Maximum data file size (bytes).
	//
	// This is a safety guardrail, not a RAM limit: mmap does not load the
	// whole file into memory.
	maxDataFileSizeBytes = int64(1) << 40

	// Maximum parallelism for batch reads.
	maxParallelism = 256
)

// mulChecked multiplies non-negative ints, failing with ErrInvalidInput on
// overflow of limit.
func mulChecked(a, b int, limit int64) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("negative factor %d * %d: %w", a, b, ErrInvalidInput)
	}

	if a == 0 || b == 0 {
		return 0, nil
	}

	if int64(a) > limit/int64(b) {
		return 0, fmt.Errorf("%d * %d exceeds %d: %w", a, b, limit, ErrInvalidInput)
	}

	return a * b, nil
}

// intToInt32Checked converts v for storage in a lookup cell.
func intToInt32Checked(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("int %d does not fit int32: %w", v, ErrInvalidInput)
	}

	return int32(v), nil
}
