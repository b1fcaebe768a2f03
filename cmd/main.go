package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/nodeq/internal/services"
	"github.com/desertthunder/nodeq/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	ctx := context.Background()
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	gateway := services.NewNodeServiceFromConfig(ctx, config, logger)
	apiService := services.NewAPIService(config.API.BaseURL, services.NewHTTPClient(ctx, config))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Gateway:    gateway,
		API:        apiService,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "nodeq",
		Usage:    "Resolve name collisions and browse media playlists on a cloud drive",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			runner.Close()
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
