package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternisai/notification-bridge/internal/backend"
	"github.com/eternisai/notification-bridge/internal/bridge"
	"github.com/eternisai/notification-bridge/internal/config"
	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/eternisai/notification-bridge/internal/notifications"
	"github.com/eternisai/notification-bridge/internal/shell"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	log.Info("setting gin mode", slog.String("mode", cfg.GinMode))
	gin.SetMode(cfg.GinMode)

	// Notification stack. The token store is shared by the gateway, which
	// writes it once, and the relay, which reads it.
	device := notifications.NewDeviceHost(cfg.Device)
	tokens := notifications.NewTokenStore()
	relay := backend.NewRelay(cfg.BackendURL, cfg.DeviceName, tokens, &http.Client{Timeout: cfg.BackendTimeout()}, log)
	gateway := notifications.NewGateway(device, tokens, relay, cfg.ProjectID, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := bridge.NewMetrics(registry)

	shellServer, err := shell.NewServer(cfg, shell.Dependencies{
		Gateway:  gateway,
		Relay:    relay,
		Device:   device,
		Metrics:  metrics,
		Gatherer: registry,
	}, log)
	if err != nil {
		log.Error("failed to initialize shell", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("notification-bridge"))
		if err != nil {
			log.Error("failed to connect to NATS", slog.String("url", cfg.NatsURL), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer nc.Drain()

		transport := bridge.NewNATSTransport(nc, cfg.NatsSubjectPrefix, log)
		natsBridge := bridge.New(transport, gateway, relay, log,
			bridge.WithMetrics(metrics),
			bridge.WithConnectionID("nats"))
		natsBridge.Start()
		defer natsBridge.Close()

		if err := transport.Start(ctx, natsBridge); err != nil {
			log.Error("failed to start NATS bridge", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer transport.Stop()
	}

	// Content asks for the token on its own, but registering up front lets
	// the readiness handshake deliver it unprompted.
	go gateway.Register(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: shellServer.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("content_url", cfg.ContentURL),
			slog.String("backend_url", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		if err := shellServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("bridge connections did not close in time", slog.String("error", err.Error()))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		gateway.Wait()
		os.Exit(1)
	}

	gateway.Wait()
	log.Info("server exited")
}
