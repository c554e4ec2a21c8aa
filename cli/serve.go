package cli

import (
	"os"

	"tnctl/config"
	"tnctl/server"
	"tnctl/state"
)

func Serve(progname string, args []string) {
	fs := newFlags(progname, "serve", "")
	fs.parse(args)

	ctx, cancel := signalContext()

	state.Logger.Infow("Starting changelog server", "listen", state.Config.Server.Listen, "changelog", state.Config.Changelog.Path)

	err := server.Serve(ctx)
	cancel()
	finish(err)
}

// GenConfig doesn't load a config, it writes a fresh one
func GenConfig(progname string, args []string) {
	fs := newFlags(progname, "genconfig", "[-o file]")
	out := fs.String("o", "", "write to this file instead of stdout")
	fs.Parse(args)

	if *out == "" {
		if err := config.GenConfig(os.Stdout); err != nil {
			Fatal(err)
		}
		return
	}

	f, err := os.OpenFile(*out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)

	if err != nil {
		Fatal(err)
	}

	if err := config.GenConfig(f); err != nil {
		f.Close()
		Fatal(err)
	}

	if err := f.Close(); err != nil {
		Fatal(err)
	}

	StatusGood("Wrote", *out)
}
