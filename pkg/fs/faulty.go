package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"strings"
	"sync"
	"syscall"
)

// Op names a filesystem operation that [Faulty] can fail.
type Op string

// Operations that can be targeted with [Faulty.FailOn].
const (
	OpOpen        Op = "open"
	OpReadFile    Op = "readfile"
	OpWriteAtomic Op = "writeatomic"
	OpMkdirAll    Op = "mkdirall"
	OpExists      Op = "exists"
	OpRemove      Op = "remove"
)

// InjectedError marks an error as intentionally injected by [Faulty].
//
// It wraps the underlying error so errors.Is/As continue to work.
type InjectedError struct {
	Err error
}

// Error returns the underlying error's message.
func (e *InjectedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

type faultRule struct {
	op      Op
	pattern string
	err     error
}

// Faulty wraps an [FS] and fails selected operations deterministically.
//
// Rules match when the operation equals the rule's [Op] and the path
// contains the rule's pattern. The first matching rule wins. Calls that do
// not match any rule pass through to the wrapped filesystem.
//
// Faulty is safe for concurrent use.
type Faulty struct {
	inner FS

	mu    sync.Mutex
	rules []faultRule
	calls map[Op]int
}

// NewFaulty wraps inner. Panics if inner is nil.
func NewFaulty(inner FS) *Faulty {
	if inner == nil {
		panic("inner fs is nil")
	}

	return &Faulty{inner: inner, calls: make(map[Op]int)}
}

// FailOn makes op fail for every path containing pattern.
// If err is nil, EIO is used.
func (f *Faulty) FailOn(op Op, pattern string, err error) {
	if err == nil {
		err = syscall.EIO
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = append(f.rules, faultRule{op: op, pattern: pattern, err: err})
}

// Reset removes all rules and clears the call counters.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = nil
	f.calls = make(map[Op]int)
}

// Calls returns how many times op was invoked, including failed calls.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

func (f *Faulty) check(op Op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++

	for _, rule := range f.rules {
		if rule.op == op && strings.Contains(path, rule.pattern) {
			return &InjectedError{Err: &iofs.PathError{Op: string(op), Path: path, Err: rule.err}}
		}
	}

	return nil
}

func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.check(OpOpen, path); err != nil {
		return nil, err
	}

	return f.inner.OpenFile(path, flag, perm)
}

func (f *Faulty) ReadFile(path string) ([]byte, error) {
	if err := f.check(OpReadFile, path); err != nil {
		return nil, err
	}

	return f.inner.ReadFile(path)
}

func (f *Faulty) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := f.check(OpWriteAtomic, path); err != nil {
		return err
	}

	return f.inner.WriteFileAtomic(path, data, perm)
}

func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}

	return f.inner.MkdirAll(path, perm)
}

func (f *Faulty) Exists(path string) (bool, error) {
	if err := f.check(OpExists, path); err != nil {
		return false, err
	}

	return f.inner.Exists(path)
}

func (f *Faulty) Remove(path string) error {
	if err := f.check(OpRemove, path); err != nil {
		return err
	}

	return f.inner.Remove(path)
}

// Compile-time interface check.
var _ FS = (*Faulty)(nil)
