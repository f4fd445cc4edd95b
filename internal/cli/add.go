package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/calvinalkan/slotarray/pkg/slotarray"

	flag "github.com/spf13/pflag"
)

// AddCmd returns the add command.
func AddCmd(env *Env) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringP("shape", "s", "", "Shape of the item, e.g. 2,2,1 (required)")
	fs.StringP("from", "f", "", "Read raw little-endian item bytes from file (- for stdin)")
	fs.Int("fill", 0, "Fill every byte with this value when --from is not given")
	fs.Int("at", -1, "Insert at this slot instead of the next free one")
	fs.String("scheme", "", "Side-car scheme: extents|occupancy (default from config)")
	fs.IntP("capacity", "n", 0, "Store capacity (occupancy scheme only)")
	fs.String("max-shape", "", "Store maximum shape (occupancy scheme only)")
	fs.StringP("dtype", "d", "", "Store element type (occupancy scheme only)")

	return &Command{
		Flags: fs,
		Usage: "add <store> -s <shape> [flags]",
		Short: "Add an item to a store",
		Long: "Add an item to the next free slot (or --at a given slot) and print its index.\n" +
			"Extents stores are described by their descriptor; occupancy stores need\n" +
			"--capacity, --max-shape and --dtype.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execAdd(o, env, fs, args)
		},
	}
}

func execAdd(o *IO, env *Env, fs *flag.FlagSet, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return errTooManyArgs
	}

	opts, err := writerOptions(env, fs, path)
	if err != nil {
		return err
	}

	if opts.Scheme == slotarray.SchemeExtents {
		opts, err = env.describe(path)
		if err != nil {
			return err
		}
	}

	shapeArg, _ := fs.GetString("shape")
	if shapeArg == "" {
		return errors.New("--shape is required")
	}

	shape, err := slotarray.ParseShape(shapeArg)
	if err != nil {
		return err
	}

	datum, err := readDatum(o, env, fs, opts.DType, shape)
	if err != nil {
		return err
	}

	at, _ := fs.GetInt("at")
	slot := at

	err = slotarray.WithWriter(opts, func(w *slotarray.Writer) error {
		if fs.Changed("at") {
			return w.Insert(at, datum)
		}

		var addErr error

		slot, addErr = w.Add(datum)

		return addErr
	})
	if err != nil {
		return err
	}

	o.Printf("%d\n", slot)

	return nil
}

func readDatum(o *IO, env *Env, fs *flag.FlagSet, dtype slotarray.DType, shape slotarray.Shape) (*slotarray.Array, error) {
	from, _ := fs.GetString("from")
	if from == "" {
		fill, _ := fs.GetInt("fill")
		if fill < 0 || fill > 255 {
			return nil, fmt.Errorf("--fill %d must be a byte value", fill)
		}

		datum, err := slotarray.NewArray(dtype, shape)
		if err != nil {
			return nil, err
		}

		b := datum.Bytes()
		for i := range b {
			b[i] = byte(fill)
		}

		return datum, nil
	}

	var (
		data []byte
		err  error
	)

	if from == "-" {
		data, err = io.ReadAll(o.In())
	} else {
		data, err = os.ReadFile(env.storePath(from))
	}

	if err != nil {
		return nil, fmt.Errorf("read item: %w", err)
	}

	return slotarray.FromBytes(dtype, shape, data)
}
