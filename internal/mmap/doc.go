// Package mmap maps fixed-size files into memory for read-only or
// read-write access.
//
// A [Mapping] owns the mapped byte slice. Writes through a read-write
// mapping reach the backing file when the mapping is synced or released:
//
//	m, err := mmap.Map(f, size, mmap.ReadWrite)
//	if err != nil { ... }
//	copy(m.Bytes()[off:], payload)
//	err = m.Close() // msync + munmap
//
// Close is idempotent. Callers must not touch the slice returned by
// [Mapping.Bytes] after Close returns.
package mmap
