package slotarray

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/slotarray/internal/mmap"
)

// Sentinel errors returned by slotarray operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, slotarray.ErrFull) {
//	    // store is complete
//	}
var (
	// ErrFull indicates every slot is occupied.
	//
	// This is the normal terminal state of a fully populated store, not a
	// programming error.
	ErrFull = errors.New("slotarray: capacity exhausted")

	// ErrInvalidInput indicates invalid arguments were provided.
	//
	// Common causes: bad [Options], unsupported index types passed to
	// [Reader.Select], malformed shapes or dtype names.
	ErrInvalidInput = errors.New("slotarray: invalid input")

	// ErrPrecondition is the root of all precondition violations.
	//
	// The call was rejected before anything was mutated. Retrying with the
	// same inputs fails again.
	ErrPrecondition = errors.New("slotarray: precondition violated")

	// ErrOutOfRange indicates a slot index outside [0, capacity).
	ErrOutOfRange = fmt.Errorf("%w: slot index out of range", ErrPrecondition)

	// ErrOccupied indicates an insert into a slot that already holds an item.
	ErrOccupied = fmt.Errorf("%w: slot occupied", ErrPrecondition)

	// ErrShape indicates a datum whose rank or dtype differs from the store's,
	// or with an axis larger than the maximum shape.
	ErrShape = fmt.Errorf("%w: shape mismatch", ErrPrecondition)

	// ErrIncompatible indicates that an existing store was created with a
	// different capacity, maximum shape, dtype or schema than requested.
	//
	// Recovery: reopen with matching options, or set [Options.Overwrite].
	ErrIncompatible = fmt.Errorf("%w: incompatible store", ErrPrecondition)

	// ErrMissingFile indicates that a file of the store's file set is absent.
	ErrMissingFile = fmt.Errorf("%w: missing file", ErrPrecondition)

	// ErrCorrupt indicates a data file or side-car that cannot be decoded or
	// whose size does not match the descriptor.
	ErrCorrupt = fmt.Errorf("%w: corrupt store", ErrPrecondition)

	// ErrEmptySlot indicates a read of a slot that holds no item.
	ErrEmptySlot = fmt.Errorf("%w: slot is empty", ErrPrecondition)

	// ErrClosed indicates the [Writer] or [Reader] has already been closed.
	//
	// A Writer is closed by [Writer.Flush] as well as [Writer.Close].
	ErrClosed = errors.New("slotarray: closed")
)

// Kind is the broad category of an error returned by this package.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindCapacityExhausted is the kind of [ErrFull].
	KindCapacityExhausted
	// KindInvalidArgument is the kind of [ErrInvalidInput].
	KindInvalidArgument
	// KindPrecondition is the kind of [ErrPrecondition] and every error
	// wrapping it.
	KindPrecondition
	// KindClosed is the kind of [ErrClosed].
	KindClosed
	// KindIO covers everything else: filesystem and mapping failures.
	KindIO
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCapacityExhausted:
		return "capacity_exhausted"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindPrecondition:
		return "precondition"
	case KindClosed:
		return "closed"
	case KindIO:
		return "io"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err so callers can branch without matching individual
// sentinels.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrFull):
		return KindCapacityExhausted
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidArgument
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrClosed), errors.Is(err, mmap.ErrClosed):
		return KindClosed
	default:
		return KindIO
	}
}
