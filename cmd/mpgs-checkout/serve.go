package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/config"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/metrics"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/processing"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/server"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the checkout and webhook HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.NewLogger(cfg.Log.Path)
	defer func() { _ = logger.Sync() }()

	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.Register(prometheus.DefaultRegisterer)

	opts := []processing.Option{processing.WithMetrics(m)}
	if cfg.Gateway.RateLimit > 0 {
		opts = append(opts, processing.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Gateway.RateLimit), 1)))
	}
	client := processing.New(
		&http.Client{Timeout: cfg.Gateway.Timeout},
		cfg.SessionURL(),
		processing.Merchant{
			ID:          cfg.Merchant.ID,
			APIPassword: cfg.Merchant.APIPassword,
			Name:        cfg.Merchant.Name,
			Address:     cfg.Merchant.Address,
		},
		cfg.Checkout.OrderDescription,
		logger,
		opts...,
	)
	orchestrator := processing.NewOrchestrator(client, ledger, processing.Pages{
		RedirectURL:       cfg.Checkout.RedirectURL,
		CheckoutScriptURL: cfg.CheckoutScriptURL(),
		ThankYouURL:       cfg.ThankYouURL,
	}, logger)
	receiver := webhook.NewReceiver(cfg.Webhook.Secret, webhook.NewReconciler(ledger, notifier, logger), m, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(orchestrator, receiver, m, prometheus.DefaultGatherer, logger),
		ReadTimeout:  10 * time.Second,
		// Session creation may take up to the gateway timeout.
		WriteTimeout: cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting HTTP server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			return fmt.Errorf("httpServer.ListenAndServe: %w", err)
		}
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpServer.Shutdown: %w", err)
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}
