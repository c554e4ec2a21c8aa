package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"tnctl/middleware"
	"tnctl/modules"
	"tnctl/state"
	"tnctl/tasks"

	"go.uber.org/zap"
)

// Swapped out in tests
var newClient = state.NewMiddleware

// withClient connects to middlewared and runs fn. The client is closed before the
// process exits, so a websocket session ends with a close frame.
func withClient(fn func(ctx context.Context, c middleware.Client) error) {
	ctx, cancel := signalContext()

	c, err := newClient(ctx)

	if err != nil {
		cancel()
		Fatal("Failed to connect to middlewared:", err)
	}

	err = fn(ctx, c)

	if cerr := c.Close(); cerr != nil {
		state.Logger.Warnw("Failed to close middleware client", zap.Error(cerr))
	}

	cancel()
	finish(err)
}

func runCall(ctx context.Context, w io.Writer, c middleware.Client, method string, args []string, job, asString bool) error {
	params, err := parseCallArgs(args)

	if err != nil {
		return err
	}

	switch {
	case asString:
		s, err := c.CallString(ctx, method, params...)

		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, s)
		return err
	case job:
		res, err := c.Job(ctx, method, params...)

		if err != nil {
			return err
		}

		return printJSON(w, res)
	default:
		res, err := c.Call(ctx, method, params...)

		if err != nil {
			return err
		}

		return printJSON(w, res)
	}
}

func Call(progname string, args []string) {
	fs := newFlags(progname, "call", "[-job] [-str] <method> [json-arg...]")
	job := fs.Bool("job", false, "the method is a job, wait for it to finish")
	asString := fs.Bool("str", false, "print the result as a plain string")
	fs.parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	withClient(func(ctx context.Context, c middleware.Client) error {
		return runCall(ctx, os.Stdout, c, fs.Arg(0), fs.Args()[1:], *job, *asString)
	})
}

func runModule(ctx context.Context, w io.Writer, c middleware.Client, name string, args []string, check bool) error {
	params, err := parseParams(args)

	if err != nil {
		return err
	}

	res, err := modules.Run(ctx, &modules.Env{MW: c, CheckMode: check}, name, params)

	if err != nil {
		return err
	}

	return printJSON(w, res)
}

func moduleList(w io.Writer) {
	fmt.Fprintln(w, "Modules:")
	for _, name := range modules.Names() {
		m, _ := modules.Get(name)
		fmt.Fprintln(w, " ", name+":", m.Help)
	}
}

func Module(progname string, args []string) {
	fs := newFlags(progname, "module", "[-check] <name> [key=value...]")
	check := fs.Bool("check", false, "report what would change without changing it")
	fs.parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		fmt.Fprintln(os.Stderr)
		moduleList(os.Stderr)
		os.Exit(2)
	}

	withClient(func(ctx context.Context, c middleware.Client) error {
		return runModule(ctx, os.Stdout, c, fs.Arg(0), fs.Args()[1:], *check)
	})
}

func Facts(progname string, args []string) {
	fs := newFlags(progname, "facts", "")
	fs.parse(args)

	withClient(func(ctx context.Context, c middleware.Client) error {
		return runModule(ctx, os.Stdout, c, "facts", nil, false)
	})
}

func runApply(ctx context.Context, w, progress io.Writer, c middleware.Client, path string, check bool) error {
	list, err := tasks.LoadFile(path)

	if err != nil {
		return err
	}

	outcomes, applyErr := tasks.Apply(ctx, &modules.Env{MW: c, CheckMode: check}, list, progress)

	for _, o := range outcomes {
		switch {
		case o.Error != "":
			fmt.Fprintf(w, "%s %s: %s\n", errText("failed"), o.Title, o.Error)
		case o.Result.Changed:
			fmt.Fprintf(w, "%s %s: %s\n", changedText("changed"), o.Title, o.Result.Msg)
		default:
			fmt.Fprintf(w, "%s %s\n", okText("ok"), o.Title)
		}

		if o.Result != nil {
			for _, warning := range o.Result.Warnings {
				fmt.Fprintf(w, "  %s %s\n", warnText("warning:"), warning)
			}
		}
	}

	summary := fmt.Sprintf("%d task(s), %d changed", len(outcomes), tasks.Changed(outcomes))
	if skipped := len(list) - len(outcomes); skipped > 0 {
		summary += fmt.Sprintf(", %d not run", skipped)
	}
	if check {
		summary += " (check mode)"
	}
	fmt.Fprintln(w, summary)

	return applyErr
}

func Apply(progname string, args []string) {
	fs := newFlags(progname, "apply", "[-check] <tasks.yaml>")
	check := fs.Bool("check", false, "report what would change without changing it")
	fs.parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	withClient(func(ctx context.Context, c middleware.Client) error {
		return runApply(ctx, os.Stdout, os.Stderr, c, fs.Arg(0), *check)
	})
}
