// Package cli implements the tnctl subcommands. Each command takes the program name and
// its own arguments, and exits the process on failure.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tnctl/constants"
	"tnctl/state"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	StatusBoldBlue   = color.New(color.Bold, color.FgBlue).PrintlnFunc()
	StatusGood       = color.New(color.Bold, color.FgCyan).PrintlnFunc()
	StatusSuccess    = color.New(color.Bold, color.FgGreen).PrintlnFunc()
	StatusBoldYellow = color.New(color.Bold, color.FgYellow).PrintlnFunc()

	errText     = color.New(color.Bold, color.FgRed).SprintFunc()
	warnText    = color.New(color.FgYellow).SprintFunc()
	changedText = color.New(color.Bold, color.FgYellow).SprintFunc()
	okText      = color.New(color.FgGreen).SprintFunc()
)

var (
	Fatal = func(a ...any) {
		color.New(color.FgRed, color.Bold).PrintlnFunc()(a...)

		if len(a) > 0 {
			if err, ok := a[len(a)-1].(error); ok {
				state.Report(err)
			}
		}

		state.Close()
		os.Exit(1)
	}
)

// Returned by a command that ran fine but wants a non-zero exit status, like lint
// finding problems
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

type commandFlags struct {
	*flag.FlagSet
	config *string
}

func newFlags(progname, name, usage string) *commandFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s %s %s\n\n", progname, name, usage)
		fs.PrintDefaults()
	}

	return &commandFlags{
		FlagSet: fs,
		config:  fs.String("config", constants.DefaultConfigFile, "config file"),
	}
}

// parse parses args and loads the config named by -config
func (f *commandFlags) parse(args []string) {
	f.Parse(args)

	if err := state.Setup(*f.config); err != nil {
		Fatal("Failed to load config:", err)
	}
}

// finish exits with the right status for err
func finish(err error) {
	if code, ok := err.(exitCode); ok {
		state.Close()
		os.Exit(int(code))
	}

	if err != nil {
		Fatal(err)
	}

	state.Close()
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(state.Context, syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
