package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/calvinalkan/slotarray/internal/config"
	"github.com/calvinalkan/slotarray/pkg/fs"
	"github.com/calvinalkan/slotarray/pkg/slotarray"

	flag "github.com/spf13/pflag"
)

var errNoCommand = errors.New("no command provided")

// commands lists every top-level command in help order.
var commands = []func(*Env) *Command{
	CreateCmd,
	InfoCmd,
	AddCmd,
	GetCmd,
	LsCmd,
	RmCmd,
	ShellCmd,
	PrintConfigCmd,
}

// Run is the main entry point. Returns exit code.
// sigCh may be nil; a signal cancels the running command's context.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("slotarray", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	verbose := globals.BoolP("verbose", "v", false, "Log debug events to stderr")
	logLevel := globals.String("log-level", "", "Log `level`: debug|info|warn|error")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.Args()

	if *help || len(args) == 0 {
		printUsage(out, globals)

		return 0
	}

	if len(rest) == 0 {
		fprintln(errOut, "error:", errNoCommand)
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	if *workDir == "" {
		*workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDir:    *workDir,
		ConfigPath: *configPath,
		Overrides:  config.Config{LogLevel: *logLevel},
		Env:        env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level := cfg.Resolve().LogLevel
	if *verbose {
		level = slog.LevelDebug
	}

	cmdEnv := &Env{
		WorkDir: *workDir,
		Config:  cfg,
		Logger:  slotarray.NewTextLogger(errOut, level),
		FS:      fs.NewReal(),
	}

	cmd := lookupCommand(cmdEnv, rest[0])
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(in, out, errOut)

	code := cmd.Run(ctx, o, rest[1:])
	if code != 0 {
		return code
	}

	return o.Finish()
}

func lookupCommand(env *Env, name string) *Command {
	for _, factory := range commands {
		cmd := factory(env)
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, "slotarray - slot-indexed storage for variably-sized arrays")
	fprintln(w)
	fprintln(w, "Usage: slotarray [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	env := &Env{}
	for _, factory := range commands {
		fprintln(w, factory(env).HelpLine())
	}

	fprintln(w)
	fprintln(w, "Run 'slotarray <command> --help' for command flags.")
}
