package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for commands revbrief does not know.
var ErrUnknownCommand = errors.New("unknown command")

// commands lists the first-argument names dispatched by runMain.
var commands = []string{"export", "normalize", "serve", "doctor", "config", "version", "help"}

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches the command and maps its error to an exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	cmd, rest := args[1], args[2:]
	if !isCommand(cmd) {
		printUsage(env.Stderr)
		fmt.Fprintf(env.Stderr, "\nerror: %v: %s\n", ErrUnknownCommand, cmd)
		return ExitUsage
	}

	var err error
	switch cmd {
	case "export":
		err = runExport(ctx, rest, env)
	case "normalize":
		err = runNormalize(rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(rest, env)
	case "config":
		err = runConfig(rest, env)
	case "version":
		fmt.Fprintf(env.Stdout, "revbrief %s\n", Version)
	case "help":
		err = runHelp(rest, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		_ = runHelp([]string{cmd}, env)
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	}
	return exitCodeFor(err)
}

// isCommand reports whether name is a known command.
func isCommand(name string) bool {
	return slices.Contains(commands, name)
}

// hasVerboseFlag looks for -v/--verbose before flags are parsed.
func hasVerboseFlag(args []string) bool {
	return slices.Contains(args, "-v") || slices.Contains(args, "--verbose")
}

// newLogger returns a text logger on w at base level. Quiet keeps errors
// only; verbose enables debug records, including export state transitions.
func newLogger(w io.Writer, f commonFlags, base slog.Level) *slog.Logger {
	level := base
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
