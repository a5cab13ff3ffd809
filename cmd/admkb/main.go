// Command admkb is the college-admissions knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/cli"
	"github.com/custodia-labs/admissions-kb/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal; keys may come from the real environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore(os.Getenv("ADMKB_HOME"))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	cli.SetSettingsService(services.NewSettingsService(configStore))
	cli.SetAIValidator(ai.NewConfigValidator())
	cli.SetBootstrap(wire)

	return cli.Execute(ctx, version)
}
