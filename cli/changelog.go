package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tnctl/changelogs"
	"tnctl/state"
	"tnctl/types"
)

func changelogConfig() (*types.ChangelogConfig, error) {
	return changelogs.LoadConfigOrDefault(state.Config.Changelog.Config)
}

// Fragments live next to the manifest
func fragmentsDir(cfg *types.ChangelogConfig) string {
	return filepath.Join(filepath.Dir(state.Config.Changelog.Path), cfg.FragmentsDir)
}

func runLint(w io.Writer) error {
	cfg, err := changelogConfig()

	if err != nil {
		return err
	}

	problems, err := changelogs.LintFile(state.Config.Changelog.Path, cfg)

	if err != nil {
		return err
	}

	fragProblems, err := changelogs.LintFragments(fragmentsDir(cfg), cfg)

	if err != nil {
		return err
	}

	problems = append(problems, fragProblems...)

	for _, p := range problems {
		fmt.Fprintln(w, errText(p.String()))
	}

	if len(problems) > 0 {
		fmt.Fprintf(w, "%d problem(s) found\n", len(problems))
		return exitCode(1)
	}

	return nil
}

func Lint(progname string, args []string) {
	fs := newFlags(progname, "lint", "")
	fs.parse(args)

	err := runLint(os.Stdout)

	if err == nil {
		StatusSuccess("No problems found")
	}

	finish(err)
}

func runRender(w io.Writer, format string) error {
	switch changelogs.Format(format) {
	case changelogs.FormatRST, changelogs.FormatMarkdown:
	default:
		return fmt.Errorf("unknown format %q, want rst or md", format)
	}

	cfg, err := changelogConfig()

	if err != nil {
		return err
	}

	m, problems, err := changelogs.Load(state.Config.Changelog.Path)

	if err != nil {
		return err
	}

	for _, p := range problems {
		fmt.Fprintln(os.Stderr, warnText(p.String()))
	}

	_, err = io.WriteString(w, changelogs.Render(m, cfg, changelogs.Format(format)))
	return err
}

func Render(progname string, args []string) {
	fs := newFlags(progname, "render", "[-format rst|md] [-o file]")
	format := fs.String("format", string(changelogs.FormatRST), "output format, rst or md")
	out := fs.String("o", "", "write to this file instead of stdout")
	fs.parse(args)

	if *out == "" {
		finish(runRender(os.Stdout, *format))
		return
	}

	f, err := os.Create(*out)

	if err != nil {
		Fatal(err)
	}

	err = runRender(f, *format)

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	finish(err)
}

func runRelease(version, date string, keep bool) (*types.Release, error) {
	cfg, err := changelogConfig()

	if err != nil {
		return nil, err
	}

	path := state.Config.Changelog.Path

	m, problems, err := changelogs.Load(path)

	if err != nil {
		return nil, err
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s has problems, run lint first: %s", path, problems[0])
	}

	dir := fragmentsDir(cfg)

	frags, problems, err := changelogs.LoadFragments(dir)

	if err != nil {
		return nil, err
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("fragment problems, run lint first: %s", problems[0])
	}

	r, err := changelogs.Release(m, cfg, version, date, frags)

	if err != nil {
		return nil, err
	}

	if err := changelogs.Save(path, m); err != nil {
		return nil, err
	}

	state.Logger.Infow("Added release", "version", r.Version, "date", r.ReleaseDate, "fragments", len(frags))

	if keep {
		return r, nil
	}

	return r, changelogs.RemoveFragments(dir, frags)
}

func Release(progname string, args []string) {
	fs := newFlags(progname, "release", "-version X.Y.Z [-date YYYY-MM-DD] [-keep-fragments]")
	version := fs.String("version", "", "version to release")
	date := fs.String("date", "", "release date, today if empty")
	keep := fs.Bool("keep-fragments", false, "do not delete the fragments that went into the release")
	fs.parse(args)

	if *version == "" {
		fs.Usage()
		os.Exit(2)
	}

	r, err := runRelease(*version, *date, *keep)

	if err == nil {
		StatusSuccess("Released " + r.Version + " (" + r.ReleaseDate + ")")
	}

	finish(err)
}

func Fragment(progname string, args []string) {
	fs := newFlags(progname, "fragment", "<name> <category> <text>")
	fs.parse(args)

	if fs.NArg() != 3 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := changelogConfig()

	if err != nil {
		Fatal(err)
	}

	path, err := changelogs.NewFragment(fragmentsDir(cfg), fs.Arg(0), fs.Arg(1), fs.Arg(2), cfg)

	if err != nil {
		Fatal(err)
	}

	StatusGood("Wrote", path)
	finish(nil)
}
