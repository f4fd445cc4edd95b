package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/calvinalkan/slotarray/pkg/slotarray"

	flag "github.com/spf13/pflag"
)

// CreateCmd returns the create command.
func CreateCmd(env *Env) *Command {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.IntP("capacity", "n", 0, "Number of slots (required)")
	fs.StringP("max-shape", "s", "", "Maximum shape, e.g. 512,512,3 (required)")
	fs.StringP("dtype", "d", "", "Element type (default from config)")
	fs.String("scheme", "", "Side-car scheme: extents|occupancy (default from config)")
	fs.Bool("overwrite", false, "Replace an existing store")

	return &Command{
		Flags: fs,
		Usage: "create <store> -n <capacity> -s <shape>",
		Short: "Create an empty store",
		Long: "Create an empty store with fixed capacity, maximum shape and dtype.\n" +
			"An existing store is resumed unchanged unless --overwrite is set.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execCreate(io, env, fs, args)
		},
	}
}

func execCreate(io *IO, env *Env, fs *flag.FlagSet, args []string) error {
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

	if !fs.Changed("capacity") || !fs.Changed("max-shape") {
		return errors.New("--capacity and --max-shape are required")
	}

	opts.Overwrite, _ = fs.GetBool("overwrite")

	w, err := slotarray.OpenWriter(opts)
	if err != nil {
		return err
	}

	occupied := w.Len()

	err = w.Close()
	if err != nil {
		return err
	}

	io.Printf("store=%s\n", path)
	io.Printf("capacity=%d\n", opts.Capacity)
	io.Printf("max_shape=%s\n", opts.MaxShape)
	io.Printf("dtype=%s\n", opts.DType)
	io.Printf("scheme=%s\n", opts.Scheme)

	if occupied > 0 {
		io.Warn("store already existed with "+strconv.Itoa(occupied)+" items", "pass --overwrite to recreate it")
	}

	return nil
}

// writerOptions builds writer options from --capacity, --max-shape, --dtype
// and --scheme, falling back to the config for dtype and scheme.
func writerOptions(env *Env, fs *flag.FlagSet, path string) (slotarray.Options, error) {
	resolved := env.Config.Resolve()

	opts := slotarray.Options{
		Path:   path,
		DType:  resolved.DType,
		Scheme: resolved.Scheme,
		FS:     env.FS,
		Logger: env.Logger,
	}

	opts.Capacity, _ = fs.GetInt("capacity")

	if shape, _ := fs.GetString("max-shape"); shape != "" {
		parsed, err := slotarray.ParseShape(shape)
		if err != nil {
			return slotarray.Options{}, err
		}

		opts.MaxShape = parsed
	}

	if name, _ := fs.GetString("dtype"); name != "" {
		dtype, err := slotarray.ParseDType(name)
		if err != nil {
			return slotarray.Options{}, err
		}

		opts.DType = dtype
	}

	if name, _ := fs.GetString("scheme"); name != "" {
		scheme, err := slotarray.ParseScheme(name)
		if err != nil {
			return slotarray.Options{}, err
		}

		opts.Scheme = scheme
	}

	return opts, nil
}
