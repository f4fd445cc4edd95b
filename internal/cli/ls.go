package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

const defaultLimit = 100

// LsCmd returns the ls command.
func LsCmd(env *Env) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.Int("limit", defaultLimit, "Maximum slots to show (0 = all)")
	fs.Int("offset", 0, "Skip first N occupied slots")

	return &Command{
		Flags: fs,
		Usage: "ls <store> [flags]",
		Short: "List occupied slots",
		Long:  "List occupied slots with their extents, in slot order.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execLs(o, env, fs, args)
		},
	}
}

func execLs(o *IO, env *Env, fs *flag.FlagSet, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return errTooManyArgs
	}

	limit, _ := fs.GetInt("limit")
	offset, _ := fs.GetInt("offset")

	if limit < 0 || offset < 0 {
		return errors.New("--limit and --offset must be >= 0")
	}

	r, err := env.openReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	indices := r.Indices()
	total := len(indices)

	indices = indices[min(offset, total):]
	if limit > 0 && len(indices) > limit {
		indices = indices[:limit]

		o.Warn(fmt.Sprintf("showing %d of %d slots", limit, total), "use --offset or --limit 0 to see more")
	}

	for _, i := range indices {
		extents, extErr := r.Extents(i)
		if extErr != nil {
			return extErr
		}

		o.Printf("%d\t%s\n", i, extents)
	}

	return nil
}
