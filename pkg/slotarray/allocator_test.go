package slotarray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Allocator_Reaches_Full_Sentinel_When_Every_Slot_Taken(t *testing.T) {
	t.Parallel()

	a := newAllocator(3)

	for want := range 3 {
		if got := a.pointer; got != want {
			t.Fatalf("pointer=%d, want=%d", got, want)
		}

		a.markOccupied(a.pointer)
	}

	if got, want := a.pointer, noFreeSlot; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}

	require.Equal(t, 3, a.count())
}

func Test_Allocator_Skips_Slot_When_Filled_By_Explicit_Insert(t *testing.T) {
	t.Parallel()

	a := newAllocator(5)

	a.markOccupied(1) // not the pointer slot
	a.markOccupied(0) // pointer slot, advances past 1

	if got, want := a.pointer, 2; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}

	a.markOccupied(4)
	a.markOccupied(2)
	a.markOccupied(3)

	if got, want := a.pointer, noFreeSlot; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}
}

func Test_ResumeAllocator_Starts_At_Lowest_Free_When_Holes_Exist(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 4, Shape{2}, Uint8, SchemeExtents)
	tbl := newLookupTable(sc)
	mustRecord(t, tbl, 0, Shape{2})
	mustRecord(t, tbl, 2, Shape{1})

	a := resumeAllocator(tbl)

	if got, want := a.pointer, 1; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}

	require.Equal(t, []int{0, 2}, a.indices())

	a.markOccupied(1)

	if got, want := a.pointer, 3; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}
}

func Test_ResumeAllocator_Reports_Full_When_All_Slots_Occupied(t *testing.T) {
	t.Parallel()

	sc := mustSchema(t, 2, Shape{2}, Uint8, SchemeOccupancy)
	tbl := newLookupTable(sc)
	mustRecord(t, tbl, 0, Shape{2})
	mustRecord(t, tbl, 1, Shape{2})

	a := resumeAllocator(tbl)

	if got, want := a.pointer, noFreeSlot; got != want {
		t.Fatalf("pointer=%d, want=%d", got, want)
	}
}
