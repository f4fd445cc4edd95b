package slotarray

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/slotarray/pkg/fs"
)

// descriptorVersion is the current descriptor schema version. Descriptors
// without a version field are treated as version 1 with extents tracking.
const descriptorVersion = 1

// descriptor is the on-disk JSON form of "<base>meta".
type descriptor struct {
	Version       int    `json:"version"`
	N             int    `json:"n"`
	MaxShape      []int  `json:"max_shape"`
	DType         string `json:"dtype"`
	TracksExtents *bool  `json:"tracks_per_item_extents,omitempty"`
}

func encodeDescriptor(sc schema) ([]byte, error) {
	tracks := sc.tracksExtents

	d := descriptor{
		Version:       descriptorVersion,
		N:             sc.capacity,
		MaxShape:      sc.maxShape,
		DType:         sc.dtype.String(),
		TracksExtents: &tracks,
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}

	return append(data, '\n'), nil
}

// decodeDescriptor parses a descriptor. Comments and trailing commas are
// tolerated so hand-edited descriptors still load.
func decodeDescriptor(data []byte) (schema, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return schema{}, fmt.Errorf("parse descriptor: %w", errors.Join(ErrCorrupt, err))
	}

	var d descriptor

	err = json.Unmarshal(std, &d)
	if err != nil {
		return schema{}, fmt.Errorf("decode descriptor: %w", errors.Join(ErrCorrupt, err))
	}

	if d.Version < 0 {
		return schema{}, fmt.Errorf("descriptor version %d: %w", d.Version, ErrCorrupt)
	}

	if d.Version == 0 {
		d.Version = 1
	}

	if d.Version > descriptorVersion {
		return schema{}, fmt.Errorf("descriptor version %d, newest supported is %d: %w",
			d.Version, descriptorVersion, ErrIncompatible)
	}

	dtype, err := ParseDType(d.DType)
	if err != nil {
		return schema{}, fmt.Errorf("descriptor dtype %q: %w", d.DType, ErrCorrupt)
	}

	sc := schema{
		capacity:      d.N,
		maxShape:      Shape(d.MaxShape),
		dtype:         dtype,
		tracksExtents: d.TracksExtents == nil || *d.TracksExtents,
	}

	err = sc.validate()
	if err != nil {
		return schema{}, fmt.Errorf("descriptor %s: %v: %w", sc, err, ErrCorrupt)
	}

	return sc, nil
}

func readDescriptor(fsys fs.FS, path string) (schema, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return schema{}, fmt.Errorf("descriptor %s: %w", path, ErrMissingFile)
		}

		return schema{}, fmt.Errorf("read descriptor: %w", err)
	}

	sc, err := decodeDescriptor(data)
	if err != nil {
		return schema{}, fmt.Errorf("descriptor %s: %w", path, err)
	}

	return sc, nil
}

func writeDescriptor(fsys fs.FS, path string, sc schema) error {
	data, err := encodeDescriptor(sc)
	if err != nil {
		return err
	}

	err = fsys.WriteFileAtomic(path, data, sidecarPerm)
	if err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}

	return nil
}
