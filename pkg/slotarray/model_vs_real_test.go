// Model-vs-real tests.
//
// Random operation sequences are applied to both the real store and the
// in-memory model. After every operation the returned errors must agree;
// after every session (and at the end) the persisted state read back through
// a Reader must match the model exactly.
//
// Oracle: pkg/slotarray/model
// Technique: seeded random operation sequences with periodic reopen

package slotarray_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/slotarray/pkg/slotarray"
	"github.com/calvinalkan/slotarray/pkg/slotarray/model"
)

// errClass maps an error to the sentinel it matches, so real and model
// errors compare regardless of wrapping and messages.
func errClass(err error) string {
	for _, sentinel := range []error{
		slotarray.ErrFull,
		slotarray.ErrInvalidInput,
		slotarray.ErrOutOfRange,
		slotarray.ErrOccupied,
		slotarray.ErrShape,
		slotarray.ErrEmptySlot,
		slotarray.ErrClosed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	if err != nil {
		return "other: " + err.Error()
	}

	return "ok"
}

// randomDatum returns an item that usually fits maxShape, and sometimes
// violates rank, bound or dtype.
func randomDatum(tb testing.TB, rng *rand.Rand, maxShape slotarray.Shape, dtype slotarray.DType) *slotarray.Array {
	tb.Helper()

	shape := make(slotarray.Shape, len(maxShape))
	for axis, bound := range maxShape {
		shape[axis] = rng.IntN(bound + 1)
	}

	switch rng.IntN(20) {
	case 0:
		shape = shape[:len(shape)-1]
	case 1:
		shape[rng.IntN(len(shape))] += maxShape[0] + 1
	case 2:
		dtype = slotarray.Float64
	}

	return patterned(tb, dtype, shape, rng.IntN(1000))
}

func compareWithReader(t *testing.T, path string, want *model.StoreState) {
	t.Helper()

	r, err := slotarray.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if diff := cmp.Diff(want.Indices(), r.Indices()); diff != "" {
		t.Fatalf("indices mismatch (-model +real):\n%s", diff)
	}

	for i := range want.Capacity + 1 {
		wantItem, wantErr := want.Get(i)
		got, gotErr := r.Get(i)

		if errClass(wantErr) != errClass(gotErr) {
			t.Fatalf("Get(%d): model err=%v, real err=%v", i, wantErr, gotErr)
		}

		if gotErr != nil {
			continue
		}

		if diff := cmp.Diff(wantItem, model.ItemOf(got)); diff != "" {
			t.Fatalf("Get(%d) mismatch (-model +real):\n%s", i, diff)
		}
	}
}

func Test_Store_Matches_Model_When_Random_Operations_Applied(t *testing.T) {
	t.Parallel()

	configs := []slotarray.Options{
		{Capacity: 1, MaxShape: slotarray.Shape{3}, DType: slotarray.Uint8},
		{Capacity: 9, MaxShape: slotarray.Shape{4, 4, 1}, DType: slotarray.Uint8},
		{Capacity: 16, MaxShape: slotarray.Shape{2, 3, 2}, DType: slotarray.Int32},
		{Capacity: 32, MaxShape: slotarray.Shape{5, 7}, DType: slotarray.Float64},
	}

	for ci, cfg := range configs {
		for seed := range uint64(4) {
			t.Run(fmt.Sprintf("config=%d/seed=%d", ci, seed), func(t *testing.T) {
				t.Parallel()

				runModelVsReal(t, cfg, seed)
			})
		}
	}
}

func runModelVsReal(t *testing.T, cfg slotarray.Options, seed uint64) {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, uint64(cfg.Capacity)))

	cfg.Path = storePath(t, "model.dat")

	state, err := model.NewStore(cfg)
	if err != nil {
		t.Fatalf("model.NewStore: %v", err)
	}

	const sessions = 4

	for session := range sessions {
		w := mustOpenWriter(t, cfg)
		mw := state.OpenWriter()

		if got, want := w.Pointer(), mw.Pointer; got != want {
			t.Fatalf("session %d: resumed pointer=%d, want=%d", session, got, want)
		}

		ops := rng.IntN(cfg.Capacity*2) + 1
		for op := range ops {
			datum := randomDatum(t, rng, cfg.MaxShape, cfg.DType)

			if rng.IntN(3) == 0 {
				i := rng.IntN(cfg.Capacity+2) - 1

				gotErr := w.Insert(i, datum)
				wantErr := mw.Insert(i, datum)

				if errClass(gotErr) != errClass(wantErr) {
					t.Fatalf("session %d op %d Insert(%d, %v): real err=%v, model err=%v",
						session, op, i, datum, gotErr, wantErr)
				}
			} else {
				got, gotErr := w.Add(datum)
				want, wantErr := mw.Add(datum)

				if errClass(gotErr) != errClass(wantErr) || got != want {
					t.Fatalf("session %d op %d Add(%v): real=(%d, %v), model=(%d, %v)",
						session, op, datum, got, gotErr, want, wantErr)
				}
			}

			if got, want := w.Pointer(), mw.Pointer; got != want {
				t.Fatalf("session %d op %d: pointer=%d, want=%d", session, op, got, want)
			}
		}

		mustFlush(t, w)
		mw.Close()

		compareWithReader(t, cfg.Path, state)
	}
}
