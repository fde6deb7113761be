package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/stream/internal/config"
	"github.com/openframe-oss/openframe-stream/stream/internal/dispatch"
	"github.com/openframe-oss/openframe-stream/stream/internal/dlq"
	"github.com/openframe-oss/openframe-stream/stream/internal/listener"
	"github.com/openframe-oss/openframe-stream/stream/internal/server"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume CDC events and deliver them to the configured destinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := g.logger(cfg, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	logger.InfoContext(ctx, "Starting stream service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats_url", cfg.NATS.URL,
		"registry", cfg.Registry.Backend,
		"enrichment_cache", cfg.Enrichment.Cache,
	)

	var cleanup closers
	defer cleanup.run()

	health := server.NewHealthHandler()

	js, err := connectJetStream(cfg)
	if err != nil {
		return err
	}
	cleanup.add(func() {
		if err := js.Drain(); err != nil {
			logger.WarnContext(context.Background(), "NATS drain failed", logging.Error(err))
		}
	})
	health.AddCheck("nats", func(ctx context.Context) error {
		if status := messaging.CheckClientHealth(ctx, js); !status.Healthy() {
			return errors.New(status.Error)
		}
		return nil
	})

	res, err := newResolver(cfg)
	if err != nil {
		return err
	}

	cache, err := buildCache(cfg, health, &cleanup)
	if err != nil {
		return err
	}
	client, err := buildEnricher(ctx, cfg, cache, health, &cleanup, logger)
	if err != nil {
		return err
	}

	sinks, err := buildSinks(ctx, cfg, js, health, &cleanup, logger)
	if err != nil {
		return err
	}
	enricher := buildInventory(ctx, cfg, cache, js, &sinks, client, logger)
	routes := BuildRoutes(sinks, nil)

	var deadLetters dlq.Writer = dlq.Noop{}
	if cfg.DLQ.Enabled {
		q, err := dlq.NewJetStreamQueue(ctx, js, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize DLQ: %w", err)
		}
		health.AddStats("dlq", q.Stats)
		deadLetters = q
	} else {
		logger.InfoContext(ctx, "Dead Letter Queue disabled")
	}

	dispatcher := dispatch.New(res, routes, enricher,
		dispatch.WithSequential(cfg.Dispatch.Sequential),
		dispatch.WithPushTimeout(cfg.Dispatch.PushTimeout),
		dispatch.WithLogger(logger),
	)

	l := listener.New(js, dispatcher, deadLetters, listenerConfig(cfg.Listener), logger)
	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	// Registered last so consumers stop before any sink or connection closes.
	cleanup.add(l.Stop)

	for _, mt := range routes.MessageTypes() {
		names := make([]string, 0, 3)
		for _, r := range routes.Routes(mt) {
			names = append(names, r.Name())
		}
		logger.InfoContext(ctx, "routes registered", logging.MessageType(string(mt)), "routes", names)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.NewRouter(health),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Stream service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.InfoContext(context.Background(), "Shutting down stream service...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	l.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Server forced to shutdown", logging.Error(err))
	}

	logger.InfoContext(shutdownCtx, "Stream service stopped")
	return nil
}
