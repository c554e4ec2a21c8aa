// tnctl manages TrueNAS systems through middlewared and maintains the collection changelog.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"sort"

	"tnctl/cli"
)

var GitCommit string

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				GitCommit = setting.Value
			}
		}
	}
}

type command struct {
	Func func(progname string, args []string)
	Help string
}

var cmds = map[string]command{
	"lint": {
		Func: cli.Lint,
		Help: "Check the changelog manifest and its fragments",
	},
	"render": {
		Func: cli.Render,
		Help: "Render the changelog as reStructuredText or Markdown",
	},
	"release": {
		Func: cli.Release,
		Help: "Fold the pending fragments into a new release",
	},
	"fragment": {
		Func: cli.Fragment,
		Help: "Write a new changelog fragment",
	},
	"call": {
		Func: cli.Call,
		Help: "Call a middlewared method and print the result",
	},
	"facts": {
		Func: cli.Facts,
		Help: "Print facts about the NAS",
	},
	"module": {
		Func: cli.Module,
		Help: "Run one module against the NAS",
	},
	"apply": {
		Func: cli.Apply,
		Help: "Run the tasks in a YAML file against the NAS",
	},
	"serve": {
		Func: cli.Serve,
		Help: "Serve the changelog over HTTP",
	},
	"genconfig": {
		Func: cli.GenConfig,
		Help: "Write a sample config file",
	},
}

func cmdList() {
	names := make([]string, 0, len(cmds))
	for k := range cmds {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Println("Commands:")
	for _, k := range names {
		fmt.Println(" ", k+":", cmds[k].Help)
	}
}

func main() {
	progname := os.Args[0]
	args := os.Args[1:]

	if len(args) == 0 {
		fmt.Println("usage:", progname, "<command> [options]")
		fmt.Println("version:", GitCommit)
		cmdList()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		cmdList()
		os.Exit(0)
	}

	cmd, ok := cmds[args[0]]

	if !ok {
		fmt.Println("unknown command:", args[0])
		cmdList()
		os.Exit(1)
	}

	cmd.Func(progname, args[1:])
}
