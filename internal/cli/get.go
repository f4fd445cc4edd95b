package cli

import (
	"context"
	"encoding/hex"
	"errors"

	flag "github.com/spf13/pflag"
)

// GetCmd returns the get command.
func GetCmd(env *Env) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.Bool("raw", false, "Write raw item bytes to stdout instead of a summary")

	return &Command{
		Flags: fs,
		Usage: "get <store> <index> [--raw]",
		Short: "Read items by index, list or range",
		Long: "Read items. <index> is a slot (3), a list (0,2,5) or a range\n" +
			"start:stop[:step] with optional bounds (2:, :10:2).",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execGet(o, env, fs, args)
		},
	}
}

func execGet(o *IO, env *Env, fs *flag.FlagSet, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		return errors.New("index is required")
	}

	if len(rest) > 1 {
		return errTooManyArgs
	}

	r, err := env.openReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	index, err := parseSelection(rest[0], r.Capacity())
	if err != nil {
		return err
	}

	slots, err := selectionSlots(index, r.Capacity())
	if err != nil {
		return err
	}

	items, err := r.Select(index)
	if err != nil {
		return err
	}

	raw, _ := fs.GetBool("raw")

	for k, item := range items {
		if raw {
			_, err = o.Write(item.Bytes())
			if err != nil {
				return err
			}

			continue
		}

		o.Printf("%d\tshape=%s\tdtype=%s\tdata=%s\n", slots[k], item.Shape(), item.DType(), hex.EncodeToString(item.Bytes()))
	}

	return nil
}
