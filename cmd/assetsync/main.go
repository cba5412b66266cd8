// Package main provides the entry point for the assetsync CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ferrumhealth/assetsync/cmd/assetsync/cmd"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// Version information populated by the release build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()
	logging.ConfigureFromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, version, commit, date); err != nil {
		logging.Err(err).Msg("assetsync failed")
		os.Exit(1)
	}
}
