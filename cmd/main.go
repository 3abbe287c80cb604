package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vesting-project/access"
	"vesting-project/clock"
	"vesting-project/config"
	"vesting-project/db"
	"vesting-project/engine"
	"vesting-project/ledger"
	"vesting-project/logger"
	"vesting-project/registry"
)

// rootOptions holds flags shared by every command
type rootOptions struct {
	ConfigPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vestingd",
		Short:         "Token vesting accounting service",
		Long:          "Tracks fixed round and private investor vesting schedules and releases vested tokens from custody.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config/config.yaml", "path to the config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newBootstrapCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	return cmd
}

// service bundles everything a command needs against one LevelDB store
type service struct {
	cfg      *config.Config
	store    *db.LevelDB
	registry *registry.Registry
	engine   *engine.Engine
}

// openService loads the config, initializes the logger and opens the store
func openService(opts *rootOptions) (*service, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if cfg.Log.AppLogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.AppLogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := db.NewLevelDB(cfg.LevelDB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb %s: %w", cfg.LevelDB.Path, err)
	}

	guard, err := access.NewGuard(cfg.Owner())
	if err != nil {
		store.Close()
		return nil, err
	}

	clk := clock.System{}
	ledgers := ledger.NewFactory(cfg.Custody())
	return &service{
		cfg:      cfg,
		store:    store,
		registry: registry.NewRegistry(store, guard, clk, ledgers),
		engine:   engine.NewEngine(store, clk, ledgers),
	}, nil
}

func (s *service) Close() {
	if err := s.store.Close(); err != nil {
		logger.Logger.Warn("Failed to close leveldb", zap.Error(err))
	}
	_ = logger.Logger.Sync()
}
