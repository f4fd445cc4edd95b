package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"

	flag "github.com/spf13/pflag"
)

const historyFileName = ".slotarray_history"

// shellCommands are the commands available inside the shell. Each takes the
// shell's store as its first argument.
var shellCommands = map[string]func(*Env) *Command{
	"add":  AddCmd,
	"get":  GetCmd,
	"info": InfoCmd,
	"ls":   LsCmd,
}

// prompter reads command lines. *liner.State satisfies it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// scanPrompter reads lines from a non-terminal input.
type scanPrompter struct {
	scanner *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		err := p.scanner.Err()
		if err == nil {
			err = io.EOF
		}

		return "", err
	}

	return p.scanner.Text(), nil
}

func (p *scanPrompter) AppendHistory(string) {}

func (p *scanPrompter) Close() error { return nil }

// ShellCmd returns the interactive shell command.
func ShellCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell <store>",
		Short: "Interactive shell on one store",
		Long: "Open an interactive shell on a store. Shell commands are the regular\n" +
			"commands without the store argument: info, ls, get <index>, add -s <shape>.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShell(ctx, o, env, args)
		},
	}
}

func execShell(ctx context.Context, o *IO, env *Env, args []string) error {
	path, rest, err := env.storeArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return errTooManyArgs
	}

	p, interactive := newPrompter(o)
	defer p.Close()

	if interactive {
		o.Printf("slotarray shell on %s\n", path)
		o.Println("Type 'help' for available commands.")
	}

	for ctx.Err() == nil {
		line, promptErr := p.Prompt("slotarray> ")
		if promptErr != nil {
			if errors.Is(promptErr, liner.ErrPromptAborted) || errors.Is(promptErr, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", promptErr)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.AppendHistory(line)

		fields := strings.Fields(line)
		name := strings.ToLower(fields[0])

		switch name {
		case "exit", "quit", "q":
			saveHistory(p)

			return nil
		case "help", "?":
			printShellHelp(o, env)

			continue
		}

		factory, ok := shellCommands[name]
		if !ok {
			o.ErrPrintln("error: unknown command:", name, "(type 'help' for commands)")

			continue
		}

		factory(env).Run(ctx, o, append([]string{path}, fields[1:]...))
	}

	saveHistory(p)

	return nil
}

// newPrompter uses liner on the process terminal and a line scanner
// otherwise.
func newPrompter(o *IO) (prompter, bool) {
	if f, ok := o.In().(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		state.SetCompleter(completeShell)

		if f, err := os.Open(historyPath()); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}

		return state, true
	}

	return &scanPrompter{scanner: bufio.NewScanner(o.In())}, false
}

func completeShell(line string) []string {
	names := []string{"exit", "help", "quit"}
	for name := range shellCommands {
		names = append(names, name)
	}

	slices.Sort(names)

	var out []string

	lower := strings.ToLower(line)
	for _, name := range names {
		if strings.HasPrefix(name, lower) {
			out = append(out, name)
		}
	}

	return out
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, historyFileName)
}

func saveHistory(p prompter) {
	state, ok := p.(*liner.State)
	if !ok {
		return
	}

	path := historyPath()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = state.WriteHistory(f)
		_ = f.Close()
	}
}

func printShellHelp(o *IO, env *Env) {
	names := make([]string, 0, len(shellCommands))
	for name := range shellCommands {
		names = append(names, name)
	}

	slices.Sort(names)

	o.Println("Commands:")

	for _, name := range names {
		cmd := shellCommands[name](env)
		usage := strings.Replace(cmd.Usage, " <store>", "", 1)
		o.Printf("  %-28s %s\n", usage, cmd.Short)
	}

	o.Printf("  %-28s %s\n", "help", "Show this help")
	o.Printf("  %-28s %s\n", "exit / quit / q", "Exit")
}
