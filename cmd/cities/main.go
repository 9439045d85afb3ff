// Command cities is a terminal front end for the city API. Every command
// loads the city list first, runs its operation and prints the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/go-worldwise/config"
	"github.com/FACorreiaa/go-worldwise/internal/client"
)

func main() {
	_ = godotenv.Load()

	defaults := rootOptions{BaseURL: client.DefaultBaseURL, Format: formatText}
	if cfg, err := config.InitConfig(); err == nil {
		if cfg.Client.BaseURL != "" {
			defaults.BaseURL = cfg.Client.BaseURL
		}
		defaults.Timeout = cfg.Client.Timeout
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(defaults).ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		cancel()
		os.Exit(1)
	}
}
