package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bidplus-harvester/internal/config"
	"bidplus-harvester/internal/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvest newly published GeM BidPlus bids and their documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "optional YAML config file")
	root.AddCommand(newRunCommand(), newWatchCommand())
	return root
}

// loadConfig resolves configuration for cmd and builds its logger.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(cmd.Flags(), configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	return cfg, log, nil
}

