// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/mqttsub/config"
	mqtls "github.com/absmach/mqttsub/pkg/tls"
	"github.com/absmach/mqttsub/telemetry"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Starting MQTT subscriber", "version", cfg.Telemetry.ServiceVersion)
	slog.Info("Configuration loaded",
		"client_id", cfg.Client.ClientID,
		"transport", cfg.Transport.Type,
		"subscriptions", len(cfg.Subscriptions),
		"max_subscriptions", cfg.Client.MaxSubscriptions)

	tlsCfg, err := mqtls.LoadClientConfig(cfg.Transport.TLS)
	if err != nil {
		slog.Error("Failed to load TLS configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Transport security", "status", mqtls.SecurityStatus(tlsCfg))

	otelShutdown, err := telemetry.InitProvider(context.Background(), cfg.Telemetry, cfg.Client.ClientID)
	if err != nil {
		slog.Error("Failed to initialize OpenTelemetry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	a := newApp(cfg, logger, tlsCfg)
	code := 0
	if err := a.connect(ctx); err != nil {
		slog.Error("Failed to connect", "error", err)
		code = 1
	} else if err := a.subscribeAll(ctx); err != nil {
		slog.Error("Failed to subscribe", "error", err)
		code = 1
	} else if err := a.run(ctx, hup); err != nil {
		slog.Error("Session ended", "error", err)
		code = 1
	}
	stop()

	if err := a.shutdown(); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := otelShutdown(otelCtx); err != nil {
		slog.Error("Failed to shutdown OpenTelemetry", "error", err)
	}
	otelCancel()

	slog.Info("Subscriber stopped")
	os.Exit(code)
}
