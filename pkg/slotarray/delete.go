package slotarray

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calvinalkan/slotarray/pkg/fs"
)

// Delete removes every file of the store at path.
//
// All files of the scheme's set must exist; otherwise nothing is removed
// and the error is [ErrMissingFile]. No writer or reader may be open.
func Delete(path string, scheme Scheme) error {
	return DeleteFS(fs.NewReal(), path, scheme)
}

// DeleteFS is [Delete] on fsys.
func DeleteFS(fsys fs.FS, path string, scheme Scheme) error {
	if path == "" {
		return fmt.Errorf("path is required: %w", ErrInvalidInput)
	}

	if !scheme.valid() {
		return fmt.Errorf("scheme %s: %w", scheme, ErrInvalidInput)
	}

	files := Files(path, scheme)

	var missing []string

	for _, p := range files.All() {
		exists, err := fsys.Exists(p)
		if err != nil {
			return fmt.Errorf("delete: stat %s: %w", p, err)
		}

		if !exists {
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("delete: %s: %w", strings.Join(missing, ", "), ErrMissingFile)
	}

	var errs []error

	for _, p := range files.All() {
		err := fsys.Remove(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete: %w", err))
		}
	}

	return errors.Join(errs...)
}
