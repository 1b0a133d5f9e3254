// Package main is the entry point for the clipscout service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clipscout/clipscout/internal/app"
	"github.com/clipscout/clipscout/internal/logger"
)

var (
	// version can be set at build time via -ldflags
	version = "dev"
)

const flushTimeout = 30 * time.Second

func main() {
	var configPath string
	var flushSeen bool
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.BoolVar(&flushSeen, "flush-seen", false, "Clear the seen-video dedup marks and exit")
	flag.Parse()

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close application: %v\n", closeErr)
		}
	}()

	if flushSeen {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if flushErr := application.FlushSeen(ctx); flushErr != nil {
			application.Logger().Error("Failed to flush seen-video marks", logger.Error(flushErr))
			os.Exit(1)
		}
		application.Logger().Info("Seen-video marks flushed")
		return
	}

	if runErr := application.Run(context.Background()); runErr != nil {
		application.Logger().Error("Service exited with error", logger.Error(runErr))
		os.Exit(1)
	}
}
