// Command gqadmin runs maintenance jobs against a GrowthQuest database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShiShiBits1/GrowthQuest/internal/config"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/logging"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gqadmin",
	Short:         "GrowthQuest maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GROWTHQUEST_CONFIG"), "path to a TOML config file")
}

// app is what every subcommand needs: the loaded config, an open database,
// and a logger.
type app struct {
	cfg    config.Config
	db     *sql.DB
	logger *slog.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	db, err := database.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, db: db, logger: logger}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) tracker() (*tracker.Service, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	return tracker.New(store.NewLedger(a.db), streak.NewTracker(loc), a.logger.With("component", "tracker")), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
