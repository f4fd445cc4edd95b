package cli

import (
	"context"

	"github.com/calvinalkan/slotarray/pkg/slotarray"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the rm command.
func RmCmd(env *Env) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.String("scheme", "", "Side-car scheme: extents|occupancy (default from config)")

	return &Command{
		Flags: fs,
		Usage: "rm <store> [--scheme S]",
		Short: "Delete a store and its side-cars",
		Long: "Delete the data file and every side-car of a store. Nothing is removed\n" +
			"unless all files of the scheme are present.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execRm(o, env, fs, args)
		},
	}
}

func execRm(o *IO, env *Env, fs *flag.FlagSet, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return errTooManyArgs
	}

	scheme := env.Config.Resolve().Scheme

	if name, _ := fs.GetString("scheme"); name != "" {
		scheme, err = slotarray.ParseScheme(name)
		if err != nil {
			return err
		}
	}

	err = slotarray.DeleteFS(env.FS, path, scheme)
	if err != nil {
		return err
	}

	for _, p := range slotarray.Files(path, scheme).All() {
		o.Println("removed " + p)
	}

	return nil
}
