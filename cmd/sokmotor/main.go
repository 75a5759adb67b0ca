// Command sokmotor is the entry point for the domain-restricted Swedish
// vertical search engine: it wires the serve, crawl, search and health
// subcommands and runs until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/larsson/sokmotor/pkg/cmd"
)

// version and appName are overridden at build time via
// -ldflags "-X main.version=...".
var (
	version = "dev"
	appName = "sokmotor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.InitCommand(cmd.BuildInfo{Version: version, AppName: appName})
	root.Version = version

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err) //nolint:forbidigo // CLI error output is intentional
		os.Exit(1)
	}
}
