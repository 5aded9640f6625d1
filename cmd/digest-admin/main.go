package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/di"
	"github.com/mikey/inbox-digest/internal/server"
	"go.uber.org/zap"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Admin server error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, ledger core.Ledger, logger *zap.Logger) error {
	defer logger.Sync()
	defer ledger.Close()

	admin := server.NewAdmin(cfg.GetString("admin.listen_address"), ledger, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- admin.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
