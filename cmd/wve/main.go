// Command wve is a versioned knowledge store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/wve/internal/adapters/driven/config/file"
	"github.com/custodia-labs/wve/internal/adapters/driving/cli"
	"github.com/custodia-labs/wve/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore(os.Getenv("WVE_HOME"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return err
	}

	app, err := wire(configStore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("closing store: %v", err)
		}
	}()

	cli.SetVersion(version)
	cli.SetServices(app.Services)
	// cobra reports the error itself.
	return cli.Execute(ctx)
}
