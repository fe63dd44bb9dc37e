package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docqa-client/internal/adapters/terminal"
	"github.com/kirillkom/docqa-client/internal/config"
	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/state"
	"github.com/kirillkom/docqa-client/internal/core/usecase"
	"github.com/kirillkom/docqa-client/internal/infrastructure/backend/httpclient"
	natsbus "github.com/kirillkom/docqa-client/internal/infrastructure/events/nats"
	"github.com/kirillkom/docqa-client/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa-client/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa-client/internal/observability/metrics"
)

const (
	serviceName         = "docqa-client"
	eventPublishTimeout = 2 * time.Second
)

type App struct {
	Config config.Config

	State    *state.DocumentState
	Upload   *usecase.UploadFlow
	Chat     *usecase.ChatFlow
	Preview  *usecase.PreviewService
	Backend  *httpclient.Client
	Metrics  *metrics.ClientMetrics
	Console  *terminal.Console
	Progress *terminal.ProgressBar
	Events   *natsbus.Bus

	closeFn func()
}

// New wires the interactive client. Terminal output goes to out.
func New(_ context.Context, cfg config.Config, out io.Writer) (*App, error) {
	color.NoColor = color.NoColor || cfg.NoColor

	clientMetrics := metrics.NewClientMetrics(serviceName)
	breaker := resilience.NewBreaker(BreakerConfig(cfg))
	backend := NewBackendClient(cfg, breaker, clientMetrics)

	files, err := localfs.New("")
	if err != nil {
		return nil, fmt.Errorf("init file source: %w", err)
	}

	console := terminal.NewConsole(out)
	notifier := terminal.NewNotifier(console)
	progress := terminal.NewProgressBar(console)
	docState := state.NewDocumentState()

	upload := usecase.NewUploadFlow(backend, files, docState, notifier, usecase.UploadOptions{
		DocumentURLTemplate: cfg.DocumentURLTemplate,
		AcceptExtensions:    cfg.AcceptExtensions,
		ProgressInterval:    cfg.ProgressInterval(),
		ProgressStep:        cfg.ProgressStep,
		ProgressCeiling:     cfg.ProgressCeiling,
		ProgressResetDelay:  cfg.ProgressResetDelay(),
		OnProgress:          progress.Update,
		Observer:            clientMetrics,
	})
	chat := usecase.NewChatFlow(backend, docState, notifier, clientMetrics)
	preview := usecase.NewPreviewService(backend, files, docState, clientMetrics)

	app := &App{
		Config:   cfg,
		State:    docState,
		Upload:   upload,
		Chat:     chat,
		Preview:  preview,
		Backend:  backend,
		Metrics:  clientMetrics,
		Console:  console,
		Progress: progress,
	}

	if cfg.NATSURL == "" {
		app.closeFn = func() {
			upload.Close()
			chat.Close()
		}
		return app, nil
	}

	bus, err := natsbus.New(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{
		Name:    serviceName,
		Breaker: breaker,
	})
	if err != nil {
		return nil, fmt.Errorf("init document events: %w", err)
	}
	unsubscribe := docState.Subscribe(func(doc *domain.DocumentDescriptor) {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := bus.PublishDocumentChanged(ctx, doc); err != nil {
			slog.Warn("document_event_publish_failed", "subject", cfg.NATSSubject, "error", err)
		}
	})
	app.Events = bus
	app.closeFn = func() {
		upload.Close()
		chat.Close()
		unsubscribe()
		bus.Close()
	}
	return app, nil
}

// Context installs the shared document state for components below the page root.
func (a *App) Context(parent context.Context) context.Context {
	return state.WithDocumentState(parent, a.State)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func BreakerConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		Enabled:          cfg.BreakerEnabled,
		MinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		FailureRatio:     cfg.BreakerFailureRatio,
		OpenTimeout:      cfg.BreakerOpenTimeout(),
		HalfOpenMaxCalls: 1,
	}
}

// NewBackendClient builds the backend adapter shared by the client and the preview companion.
func NewBackendClient(cfg config.Config, breaker *resilience.Breaker, clientMetrics *metrics.ClientMetrics) *httpclient.Client {
	var limiter *rate.Limiter
	if cfg.BackendRateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BackendRateLimitRPS), max(cfg.BackendRateLimitBurst, 1))
	}
	var transport http.RoundTripper = http.DefaultTransport
	opts := httpclient.Options{
		RequestTimeout: cfg.RequestTimeout(),
		UploadTimeout:  cfg.UploadTimeout(),
		Breaker:        breaker,
		Limiter:        limiter,
	}
	if clientMetrics != nil {
		transport = clientMetrics.InstrumentTransport(transport)
		opts.Observer = clientMetrics
	}
	opts.Transport = transport
	return httpclient.New(cfg.BackendURL, opts)
}
