package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/calvinalkan/slotarray/internal/config"
	"github.com/calvinalkan/slotarray/pkg/fs"
	"github.com/calvinalkan/slotarray/pkg/slotarray"
)

var (
	errStoreRequired = errors.New("store path is required")
	errTooManyArgs   = errors.New("too many arguments")
)

// Env is the state shared by all commands of one invocation.
type Env struct {
	WorkDir string
	Config  config.Config
	Logger  *slog.Logger
	FS      fs.FS
}

// storePath resolves a store argument against the working directory.
func (e *Env) storePath(arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}

	return filepath.Join(e.WorkDir, arg)
}

// storeArg extracts the store path from args and returns the rest.
func (e *Env) storeArg(args []string) (string, []string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", nil, errStoreRequired
	}

	return e.storePath(args[0]), args[1:], nil
}

func (e *Env) openReader(path string) (*slotarray.Reader, error) {
	return slotarray.OpenReaderWithOptions(path, slotarray.ReaderOptions{FS: e.FS, Logger: e.Logger})
}

// describe reads capacity, max shape and dtype from a store's descriptor.
func (e *Env) describe(path string) (slotarray.Options, error) {
	r, err := e.openReader(path)
	if err != nil {
		return slotarray.Options{}, err
	}

	opts := slotarray.Options{
		Path:     path,
		Capacity: r.Capacity(),
		MaxShape: r.MaxShape(),
		DType:    r.DType(),
		Scheme:   slotarray.SchemeExtents,
		FS:       e.FS,
		Logger:   e.Logger,
	}

	return opts, r.Close()
}

// parseSelection parses an index expression for [slotarray.Reader.Select]:
// "3", "0,2,5", or a range "start:stop[:step]" with optional bounds.
func parseSelection(expr string, capacity int) (any, error) {
	expr = strings.TrimSpace(expr)

	if strings.Contains(expr, ":") {
		parts := strings.Split(expr, ":")
		if len(parts) > 3 {
			return nil, fmt.Errorf("invalid range %q", expr)
		}

		rg := slotarray.Range{Stop: capacity}
		fields := []*int{&rg.Start, &rg.Stop, &rg.Step}

		for i, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}

			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", expr, err)
			}

			*fields[i] = v
		}

		return rg, nil
	}

	if strings.Contains(expr, ",") {
		var indices []int

		for _, p := range strings.Split(expr, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid index %q: %w", p, err)
			}

			indices = append(indices, v)
		}

		return indices, nil
	}

	v, err := strconv.Atoi(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid index %q: %w", expr, err)
	}

	return v, nil
}

// selectionSlots lists the slot indices a parsed selection names, in the
// order Select returns their items.
func selectionSlots(sel any, capacity int) ([]int, error) {
	switch v := sel.(type) {
	case int:
		return []int{v}, nil
	case []int:
		return v, nil
	case slotarray.Range:
		return v.Indices(capacity)
	default:
		return nil, fmt.Errorf("unsupported selection %T", sel)
	}
}
