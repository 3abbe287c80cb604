package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vesting-project/handlers"
	"vesting-project/logger"
	"vesting-project/routers"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the vesting HTTP API",
		Long:  "Bootstraps an empty store from the config, then serves the vesting API until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}
}

func serve(opts *rootOptions) error {
	svc, err := openService(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Logger.Info("Starting vesting server...")

	g, err := svc.cfg.Genesis()
	if err != nil {
		return err
	}
	created, err := svc.registry.EnsureBootstrapped(g)
	if err != nil {
		logger.Logger.Error("Stored schedules do not match the config", zap.Error(err))
		return err
	}
	if created {
		logger.Logger.Info("Store bootstrapped from config", zap.String("path", svc.cfg.LevelDB.Path))
	}

	h := handlers.NewHandler(svc.registry, svc.engine)

	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	port := svc.cfg.Server.Port
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-sigCh:
	}

	logger.Logger.Info("Shutdown signal received, exiting...")
	ctx, cancel := context.WithTimeout(context.Background(), svc.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Warn("Graceful shutdown failed", zap.Error(err))
		return srv.Close()
	}
	return nil
}
