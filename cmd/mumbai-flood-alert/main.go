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

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/mumbai-flood-alert/internal/api/http"
	"github.com/i474232898/mumbai-flood-alert/internal/config"
	"github.com/i474232898/mumbai-flood-alert/internal/flood"
	"github.com/i474232898/mumbai-flood-alert/internal/observability"
	"github.com/i474232898/mumbai-flood-alert/internal/scheduler"
	"github.com/i474232898/mumbai-flood-alert/internal/store"
	"github.com/i474232898/mumbai-flood-alert/internal/weather"
	"github.com/i474232898/mumbai-flood-alert/internal/weather/providers"
)

const serviceName = "mumbai-flood-alert"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := observability.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// Shared HTTP client for outbound provider calls; Timeout bounds each attempt.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Provider with resilience (backoff + circuit breaker).
	provider, err := providers.New(cfg.Provider, httpClient, providers.Options{
		BaseURL: cfg.ProviderBaseURL,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: providers.DefaultBackoff.InitialInterval,
			MaxInterval:     providers.DefaultBackoff.MaxInterval,
		},
	})
	if err != nil {
		return err
	}

	service := weather.NewService(provider, cfg.Location, log, weather.WithRecorder(metrics))

	sessions := store.NewSessionStore(cfg.SessionTTL, cfg.SessionMax, nil)

	// Housekeeping only: drops expired sessions.
	sched := scheduler.New(sessions, cfg.SessionPurgeInterval, metrics, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	defaultLang, err := flood.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          fetchBudget(cfg) + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  serviceName,
			"provider": cfg.Provider,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	templates, err := httpapi.RegisterRoutes(app, service, sessions, httpapi.Options{
		DefaultAPIKey:   cfg.DefaultAPIKey(),
		DefaultLanguage: defaultLang,
		KeyRequired:     cfg.KeyRequired(),
		CookieSecure:    cfg.CookieSecure,
		SessionTTL:      cfg.SessionTTL,
		FetchTimeout:    fetchBudget(cfg),
		TemplatesDir:    cfg.TemplatesDir,
		Recorder:        metrics,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}
	defer templates.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr(), "provider", cfg.Provider, "location", cfg.Location.Key())
		errCh <- app.Listen(cfg.Addr())
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("fiber server stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("stopped")
	return nil
}

// fetchBudget bounds one dashboard fetch: every attempt plus the backoff between them.
func fetchBudget(cfg *config.AppConfig) time.Duration {
	attempts := time.Duration(cfg.FetchMaxRetries + 1)
	return attempts*cfg.HTTPTimeout + time.Duration(cfg.FetchMaxRetries)*providers.DefaultBackoff.MaxInterval
}
