package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/container"
	"remindbot/internal/logger"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load(".env.local")

	logger.Init(config.GetEnv("LOG_LEVEL", "info"))
	log := logger.Get()

	if envErr != nil {
		log.Info("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.WithError(err).Fatal("Bot stopped with an error")
	}
	log.Info("successfully shut down")
}

func run(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("HTTP server listening on port %s", cfg.Port)
	serverErrs := serve(server)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Ingestion.Run(ctx, c.Inbound)
	}()
	go func() {
		defer wg.Done()
		c.Delivery.Run(ctx)
	}()

	if c.Poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Poller.Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErrs:
		log.WithError(err).Error("HTTP server stopped, shutting down")
		runErr = fmt.Errorf("http server failed: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	wg.Wait()
	return runErr
}

// serve starts the HTTP server and reports any failure other than a
// requested shutdown.
func serve(server *http.Server) <-chan error {
	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	return errs
}
