package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/docqa-client/internal/adapters/terminal"
	"github.com/kirillkom/docqa-client/internal/bootstrap"
	"github.com/kirillkom/docqa-client/internal/config"
	"github.com/kirillkom/docqa-client/internal/core/state"
	"github.com/kirillkom/docqa-client/internal/core/usecase"
	natsbus "github.com/kirillkom/docqa-client/internal/infrastructure/events/nats"
	"github.com/kirillkom/docqa-client/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa-client/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa-client/internal/observability/logging"
	"github.com/kirillkom/docqa-client/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config error", err)
	}
	slog.SetDefault(logging.NewJSONLogger("docqa-preview", cfg.LogLevel, os.Stderr))
	if cfg.NATSURL == "" {
		fatal("config error", errors.New("NATS_URL is required for the preview companion"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientMetrics := metrics.NewClientMetrics("docqa-preview")
	breaker := resilience.NewBreaker(bootstrap.BreakerConfig(cfg))
	backend := bootstrap.NewBackendClient(cfg, breaker, clientMetrics)
	files, err := localfs.New("")
	if err != nil {
		fatal("bootstrap error", err)
	}

	// The companion mirrors the client's current document into its own state.
	docState := state.NewDocumentState()
	preview := usecase.NewPreviewService(backend, files, docState, clientMetrics)
	console := terminal.NewConsole(os.Stdout)

	bus, err := natsbus.New(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{Name: "docqa-preview", Breaker: breaker})
	if err != nil {
		fatal("bootstrap error", err)
	}
	defer bus.Close()

	console.Println(terminal.PreviewPlaceholder)
	err = bus.SubscribeDocumentChanged(ctx, func(handlerCtx context.Context, event natsbus.DocumentEvent) error {
		if event.Type == natsbus.EventDocumentCleared || event.Document == nil {
			docState.Clear()
			console.Println(terminal.PreviewPlaceholder)
			return nil
		}
		docState.Set(*event.Document)
		doc, info, err := preview.Current(handlerCtx)
		if err != nil {
			console.Println(terminal.Hint("Preview unavailable: " + err.Error()))
			return err
		}
		console.Println(terminal.DocumentPreview(doc, info))
		return nil
	})
	if err != nil {
		fatal("subscribe error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
