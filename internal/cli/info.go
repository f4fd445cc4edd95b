package cli

import (
	"context"

	"github.com/calvinalkan/slotarray/pkg/slotarray"

	flag "github.com/spf13/pflag"
)

// InfoCmd returns the info command.
func InfoCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("info", flag.ContinueOnError),
		Usage: "info <store>",
		Short: "Show store parameters and occupancy",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execInfo(io, env, args)
		},
	}
}

func execInfo(io *IO, env *Env, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return errTooManyArgs
	}

	r, err := env.openReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	files := r.Files()

	io.Printf("store=%s\n", path)
	io.Printf("capacity=%d\n", r.Capacity())
	io.Printf("max_shape=%s\n", r.MaxShape())
	io.Printf("dtype=%s\n", r.DType())
	io.Printf("occupied=%d\n", r.Len())
	io.Printf("scheme=%s\n", slotarray.SchemeExtents)
	io.Println()
	io.Println("# files")
	io.Println("data=" + files.Data)
	io.Println("lookup=" + files.Lookup)
	io.Println("descriptor=" + files.Descriptor)

	return nil
}
