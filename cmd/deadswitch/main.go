package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/deadswitch/internal/buildinfo"
	"github.com/dmitrijs2005/deadswitch/internal/server"
	"github.com/dmitrijs2005/deadswitch/internal/server/config"
)

const usage = "Usage: deadswitch [flags] <payload> <sender> <recipient>..."

// stdin is prompted for the sender password when it is a terminal.
var stdin = os.Stdin

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	buildinfo.PrintBuildData(stderr)

	cfg, err := config.LoadConfig(args, os.LookupEnv)
	if err != nil {
		return fail(stderr, err)
	}
	if err := cfg.ResolvePassword(int(stdin.Fd()), stderr); err != nil {
		return fail(stderr, err)
	}

	app, err := server.NewApp(ctx, cfg, config.PositionalArgs(args))
	if err != nil {
		return fail(stderr, err)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "deadswitch: %v\n", err)
		return 1
	}
	return 0
}

func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "deadswitch: %v\n\n%s\n\nFlags:\n", err, usage)
	config.PrintDefaults(w)
	return 1
}
