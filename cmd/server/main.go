// Package main implements the entry point for the verbdrill server, which
// schedules spaced-repetition reviews of English verb forms and serves
// learner progress over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/phrazzld/verbdrill/internal/config"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("verbdrill server failed", "error", err)
		os.Exit(1)
	}
}

// run parses flags, loads configuration and serves until SIGINT or SIGTERM.
func run(args []string) error {
	flags := pflag.NewFlagSet("verbdrill", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"auth_enabled", cfg.Auth.JWTSecret != "",
		"reminder_enabled", cfg.Reminder.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
