// Package slotarray stores variably-sized n-dimensional arrays in fixed-size
// slots of one flat, memory-mapped data file.
//
// Every slot is padded to a common maximum shape. A side-car lookup file
// records which slots are occupied and, in the default [SchemeExtents]
// layout, the actual extents of each item, so reads return exactly the
// array that was written and never the padding.
//
// # Basic Usage
//
//	err := slotarray.WithWriter(slotarray.Options{
//	    Path:     "/data/images.dat",
//	    Capacity: 10000,
//	    MaxShape: slotarray.Shape{512, 512, 3},
//	    DType:    slotarray.Uint8,
//	}, func(w *slotarray.Writer) error {
//	    _, err := w.Add(img)
//	    return err
//	})
//
//	r, err := slotarray.OpenReader("/data/images.dat")
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//
//	img, err := r.Get(0)
//
// # Files
//
// For a data file "<base>.dat" (".dat", ".bin" and ".npy" are stripped to
// form the base):
//
//   - [SchemeExtents]: "<base>meta" (JSON descriptor) and "<base>_lookup"
//     (int32 matrix n × rank, -1 = free).
//   - [SchemeOccupancy]: "<base>_meta" (int32 matrix n × 2, -1 = free).
//
// Int32 matrices use the NumPy .npy v1.0 encoding.
//
// # Durability
//
// Writes go through a shared mapping. The data file and its side-cars are
// consistent only after [Writer.Flush], [Writer.Close] or [Writer.Sync].
// Side-cars are replaced atomically, so a crash leaves either the previous
// or the new version on disk.
//
// # Concurrency
//
// A [Writer] is not safe for concurrent use and must be the only writer of
// its store. A [Reader] is safe for concurrent use once no writer is active.
//
// # Error Handling
//
// Use [errors.Is] with the sentinel errors, or [KindOf] to branch on the
// broad category: capacity exhausted, invalid argument, or precondition
// violation.
package slotarray
