package handlers

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/autokube/provisioner/internal/orchestration"
	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/server"
)

// shutdownTimeout bounds how long in-flight runs get to clean up.
const shutdownTimeout = 30 * time.Second

// Serve runs the HTTP run server until ctx is cancelled.
func Serve(ctx context.Context, configPath, addr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	logger := newLogger(cfg.Log, os.Stderr)
	observer := provisioning.NewLogrusObserver(logger)

	orch, err := newOrchestrator(ctx, cfg, orchestration.Options{
		Observer:      observer,
		EnableMetrics: true,
	})
	if err != nil {
		return err
	}

	srv := server.New(orch, observer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	observer.Printf("Shutting down, waiting up to %s for runs to finish", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if listenErr := <-errCh; listenErr != nil {
		err = errors.Join(err, listenErr)
	}
	return err
}
