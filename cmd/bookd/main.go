// Bookd is the book production daemon.
//
// It drives the gated pipeline from outline generation through chapter
// generation to final compilation, exposing the workflow over HTTP.
//
// Usage:
//
//	# Start with defaults
//	bookd
//
//	# Point at a config file
//	bookd -config /etc/bookd/config.yaml
//
//	# Configure via environment
//	BOOKD_SERVER_PORT=9000 BOOKD_API_KEY=sk-... bookd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/config"
	"github.com/fyrsmithlabs/bookd/internal/contextchain"
	"github.com/fyrsmithlabs/bookd/internal/export"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/httpapi"
	"github.com/fyrsmithlabs/bookd/internal/logging"
	"github.com/fyrsmithlabs/bookd/internal/notify"
	"github.com/fyrsmithlabs/bookd/internal/outline"
	"github.com/fyrsmithlabs/bookd/internal/store"
	"github.com/fyrsmithlabs/bookd/internal/workflow"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  bookd           Start the bookd daemon\n")
			fmt.Fprintf(os.Stderr, "  bookd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("bookd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the bookd server and blocks until context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting bookd",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path),
		zap.String("model", cfg.Generation.Model),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	client, err := genai.NewOpenAIClient(&cfg.Generation, logger)
	if err != nil {
		return fmt.Errorf("failed to create generation client: %w", err)
	}

	chain, err := contextchain.NewService(st, client, logger)
	if err != nil {
		return fmt.Errorf("failed to create context chain: %w", err)
	}

	parser, err := outline.NewParser(logger)
	if err != nil {
		return fmt.Errorf("failed to create outline parser: %w", err)
	}

	exporter, err := export.NewService(&cfg.Export, logger)
	if err != nil {
		return fmt.Errorf("failed to create export service: %w", err)
	}

	notifier, closeNotify, err := initNotifier(&cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}
	defer closeNotify()

	wf, err := workflow.NewService(st, client, chain, parser, exporter, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create workflow service: %w", err)
	}

	srv, err := httpapi.NewServer(wf, st, logger, &httpapi.Config{
		Host: "0.0.0.0",
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initNotifier builds the notification fan-out from the configured sinks.
// No sinks configured means a no-op notifier.
func initNotifier(cfg *config.NotifyConfig, logger *zap.Logger) (notify.Notifier, func(), error) {
	var notifiers []notify.Notifier
	closeFn := func() {}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
		}
		logger.Info("Connected to NATS", zap.String("url", cfg.NATSURL))

		natsNotifier, err := notify.NewNATSNotifier(nc, cfg.SubjectPrefix, logger)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		notifiers = append(notifiers, natsNotifier)
		closeFn = nc.Close
	}

	if cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.WebhookURL, logger)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		notifiers = append(notifiers, webhook)
		logger.Info("Webhook notifications enabled", zap.String("url", cfg.WebhookURL))
	}

	if len(notifiers) == 0 {
		return notify.Noop{}, closeFn, nil
	}
	return notify.NewMulti(notifiers...), closeFn, nil
}
