package slotarray

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// noFreeSlot is the pointer value of a full store.
const noFreeSlot = -1

// allocator hands out slot indices for [Writer.Add].
//
// The pointer is either noFreeSlot or a free slot. It only ever moves
// forward: holes left below it (after a reopen, or by explicit inserts) are
// not revisited.
type allocator struct {
	capacity int
	pointer  int
	occupied *roaring.Bitmap
}

func newAllocator(capacity int) *allocator {
	return &allocator{capacity: capacity, pointer: 0, occupied: roaring.New()}
}

// resumeAllocator rebuilds occupancy from a lookup table and places the
// pointer at the lowest free slot.
func resumeAllocator(t *lookupTable) *allocator {
	a := &allocator{capacity: t.schema.capacity, occupied: roaring.New()}

	for i := range a.capacity {
		if t.occupied(i) {
			a.occupied.Add(uint32(i))
		}
	}

	free := roaring.Flip(a.occupied, 0, uint64(a.capacity))
	if free.IsEmpty() {
		a.pointer = noFreeSlot
	} else {
		a.pointer = int(free.Minimum())
	}

	return a
}

func (a *allocator) isFree(i int) bool {
	return !a.occupied.Contains(uint32(i))
}

// markOccupied records slot i and moves the pointer past it if it was the
// pointer's slot.
func (a *allocator) markOccupied(i int) {
	a.occupied.Add(uint32(i))

	if i == a.pointer {
		a.advance()
	}
}

// advance moves the pointer to the next free slot above it, or noFreeSlot.
func (a *allocator) advance() {
	for next := a.pointer + 1; next < a.capacity; next++ {
		if !a.occupied.Contains(uint32(next)) {
			a.pointer = next

			return
		}
	}

	a.pointer = noFreeSlot
}

func (a *allocator) count() int {
	return int(a.occupied.GetCardinality())
}

// indices returns the occupied slots in ascending order.
func (a *allocator) indices() []int {
	out := make([]int, 0, a.count())

	it := a.occupied.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}

	return out
}
