// Command sercha-site answers questions about a website from its own content.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-site/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrapper(&app{})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
