// Package model provides a deliberately simple, in-memory state model of
// slotarray's publicly observable behavior.
//
// The model stores items packed, exactly as callers see them, and ignores
// the padded on-disk layout entirely. It is used as an oracle for
// model-vs-real tests.
package model

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/calvinalkan/slotarray/pkg/slotarray"
)

// Item mirrors an array returned to callers.
type Item struct {
	Shape []int
	Data  []byte
}

// ItemOf converts an array to its observable form.
func ItemOf(a *slotarray.Array) Item {
	return Item{Shape: a.Shape(), Data: bytes.Clone(a.Bytes())}
}

// Slot is one slot of the store. Free slots have a zero Item.
type Slot struct {
	Occupied bool
	Item     Item
}

// StoreState is the persisted state that survives writer sessions.
type StoreState struct {
	Capacity int
	MaxShape []int
	DType    slotarray.DType
	Slots    []Slot
}

// WriterModel is an open writer session over a StoreState.
type WriterModel struct {
	Store    *StoreState
	Pointer  int
	IsClosed bool
}

// NewStore validates the store-shaping options and returns an empty store.
func NewStore(opts slotarray.Options) (*StoreState, error) {
	if opts.Capacity < 1 || len(opts.MaxShape) == 0 || !opts.DType.Valid() {
		return nil, slotarray.ErrInvalidInput
	}

	for _, d := range opts.MaxShape {
		if d < 1 {
			return nil, slotarray.ErrInvalidInput
		}
	}

	return &StoreState{
		Capacity: opts.Capacity,
		MaxShape: slices.Clone(opts.MaxShape),
		DType:    opts.DType,
		Slots:    make([]Slot, opts.Capacity),
	}, nil
}

// Clone makes a deep copy.
func (s *StoreState) Clone() *StoreState {
	slots := make([]Slot, len(s.Slots))
	for i, slot := range s.Slots {
		slots[i] = Slot{
			Occupied: slot.Occupied,
			Item:     Item{Shape: slices.Clone(slot.Item.Shape), Data: bytes.Clone(slot.Item.Data)},
		}
	}

	return &StoreState{
		Capacity: s.Capacity,
		MaxShape: slices.Clone(s.MaxShape),
		DType:    s.DType,
		Slots:    slots,
	}
}

// OpenWriter starts a writer session with the pointer at the lowest free
// slot, or -1 when the store is full.
func (s *StoreState) OpenWriter() *WriterModel {
	w := &WriterModel{Store: s, Pointer: -1}

	for i, slot := range s.Slots {
		if !slot.Occupied {
			w.Pointer = i

			break
		}
	}

	return w
}

// Add stores a at the pointer and returns the slot used.
func (w *WriterModel) Add(a *slotarray.Array) (int, error) {
	if w.IsClosed {
		return -1, slotarray.ErrClosed
	}

	if w.Pointer == -1 {
		return -1, slotarray.ErrFull
	}

	i := w.Pointer

	err := w.Insert(i, a)
	if err != nil {
		return -1, err
	}

	return i, nil
}

// Insert stores a in slot i.
func (w *WriterModel) Insert(i int, a *slotarray.Array) error {
	if w.IsClosed {
		return slotarray.ErrClosed
	}

	if a == nil {
		return slotarray.ErrInvalidInput
	}

	s := w.Store

	if i < 0 || i >= s.Capacity {
		return slotarray.ErrOutOfRange
	}

	if s.Slots[i].Occupied {
		return slotarray.ErrOccupied
	}

	shape := a.Shape()
	if a.DType() != s.DType || len(shape) != len(s.MaxShape) {
		return slotarray.ErrShape
	}

	for axis, d := range shape {
		if d > s.MaxShape[axis] {
			return slotarray.ErrShape
		}
	}

	s.Slots[i] = Slot{Occupied: true, Item: ItemOf(a)}

	if i == w.Pointer {
		w.Pointer = -1

		for next := i + 1; next < s.Capacity; next++ {
			if !s.Slots[next].Occupied {
				w.Pointer = next

				break
			}
		}
	}

	return nil
}

// Close ends the session. Writes are already part of the store state.
func (w *WriterModel) Close() {
	w.IsClosed = true
}

// Get returns the item in slot i.
func (s *StoreState) Get(i int) (Item, error) {
	if i < 0 || i >= s.Capacity {
		return Item{}, slotarray.ErrOutOfRange
	}

	if !s.Slots[i].Occupied {
		return Item{}, slotarray.ErrEmptySlot
	}

	return s.Slots[i].Item, nil
}

// Indices returns the occupied slots in ascending order.
func (s *StoreState) Indices() []int {
	out := []int{}

	for i, slot := range s.Slots {
		if slot.Occupied {
			out = append(out, i)
		}
	}

	return out
}

func (s *StoreState) String() string {
	return fmt.Sprintf("model(n=%d, max_shape=%v, dtype=%s, occupied=%d)",
		s.Capacity, s.MaxShape, s.DType, len(s.Indices()))
}
