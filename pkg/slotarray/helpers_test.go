// helpers_test.go - Shared helpers for slotarray black-box tests.

package slotarray_test

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/slotarray/pkg/slotarray"
)

// patterned returns an array whose bytes are derived from seed, so items
// written to different slots are distinguishable.
func patterned(tb testing.TB, dtype slotarray.DType, shape slotarray.Shape, seed int) *slotarray.Array {
	tb.Helper()

	a, err := slotarray.NewArray(dtype, shape)
	if err != nil {
		tb.Fatalf("NewArray(%s, %s): %v", dtype, shape, err)
	}

	b := a.Bytes()
	for i := range b {
		b[i] = byte(seed*31 + i + 1)
	}

	return a
}

// ones returns a uint8 array of ones.
func ones(tb testing.TB, shape slotarray.Shape) *slotarray.Array {
	tb.Helper()

	a, err := slotarray.NewArray(slotarray.Uint8, shape)
	if err != nil {
		tb.Fatalf("NewArray: %v", err)
	}

	err = a.Fill([]byte{1})
	if err != nil {
		tb.Fatalf("Fill: %v", err)
	}

	return a
}

func storePath(tb testing.TB, name string) string {
	tb.Helper()

	return filepath.Join(tb.TempDir(), name)
}

func mustOpenWriter(tb testing.TB, opts slotarray.Options) *slotarray.Writer {
	tb.Helper()

	w, err := slotarray.OpenWriter(opts)
	if err != nil {
		tb.Fatalf("OpenWriter: %v", err)
	}

	return w
}

func mustFlush(tb testing.TB, w *slotarray.Writer) {
	tb.Helper()

	err := w.Flush()
	if err != nil {
		tb.Fatalf("Flush: %v", err)
	}
}

func mustOpenReader(tb testing.TB, path string) *slotarray.Reader {
	tb.Helper()

	r, err := slotarray.OpenReader(path)
	if err != nil {
		tb.Fatalf("OpenReader: %v", err)
	}

	tb.Cleanup(func() { _ = r.Close() })

	return r
}

// imageOpts is the small store used throughout: three 4x4x1 uint8 slots.
func imageOpts(path string) slotarray.Options {
	return slotarray.Options{
		Path:     path,
		Capacity: 3,
		MaxShape: slotarray.Shape{4, 4, 1},
		DType:    slotarray.Uint8,
	}
}
