package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/docqa-client/internal/adapters/terminal"
	"github.com/kirillkom/docqa-client/internal/bootstrap"
	"github.com/kirillkom/docqa-client/internal/config"
	"github.com/kirillkom/docqa-client/internal/core/state"
	"github.com/kirillkom/docqa-client/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config error", err)
	}
	slog.SetDefault(logging.NewJSONLogger("docqa-client", cfg.LogLevel, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, os.Stdout)
	if err != nil {
		fatal("bootstrap error", err)
	}
	defer app.Close()

	if cfg.MetricsAddr != "" {
		server := startMetricsServer(cfg.MetricsAddr, app.Metrics.Handler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics_shutdown_failed", "error", err)
			}
		}()
	}

	ctx = app.Context(ctx)
	shell := terminal.NewShell(app.Console, app.Upload, app.Chat, app.Preview, state.MustFromContext(ctx), app.Progress)
	if err := shell.Run(ctx, os.Stdin); err != nil {
		slog.Error("shell_stopped", "error", err)
	}
}

func startMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics_listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	return server
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
