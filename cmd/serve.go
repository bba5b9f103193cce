package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/auth"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/database"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/export"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/handler"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			// ── 1. Schema ─────────────────────────────────────────────────────
			if err := database.Migrate(a.cfg.DatabaseURL); err != nil {
				return err
			}
			a.logger.Info("migrations applied")

			// ── 2. Wire up layers ─────────────────────────────────────────────
			regSvc, err := a.registrationService()
			if err != nil {
				return err
			}

			var directory service.UserDirectory
			if a.cfg.AdminAPIEnabled() {
				directory = auth.NewAdminClient(a.cfg.SupabaseURL, a.cfg.SupabaseServiceRoleKey, a.cfg.AdminRole, a.cfg.GatewayTimeout)
			} else {
				a.logger.Info("user administration disabled (SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set)")
			}

			var exporter handler.Exporter
			if a.cfg.ExportS3Bucket != "" {
				dest, err := export.NewS3Destination(ctx, a.cfg.ExportS3Bucket, a.cfg.ExportS3Region, a.cfg.ExportS3Endpoint)
				if err != nil {
					a.logger.Error("failed to create S3 export destination", "err", err)
				} else {
					exporter = export.NewExporter(a.registrations, dest, a.cfg.ExportS3Prefix)
					a.logger.Info("registration export enabled", "bucket", a.cfg.ExportS3Bucket)
				}
			}

			var webhooks handler.WebhookParser
			if a.cfg.StripeWebhookSecret != "" {
				webhooks = payment.NewWebhookVerifier(a.cfg.StripeWebhookSecret)
			} else {
				a.logger.Warn("stripe webhooks disabled (STRIPE_WEBHOOK_SECRET not set)")
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics.Register(registry)

			// ── 3. Build the router ───────────────────────────────────────────
			router := handler.NewRouter(handler.Deps{
				Events:        a.eventService(),
				Registrations: regSvc,
				Users:         service.NewUserService(directory, a.logger),
				Exporter:      exporter,
				Webhooks:      webhooks,
				Verifier:      auth.NewVerifier(a.cfg.AuthJWTSecret, a.cfg.AdminRole),
				Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
				CORSOrigins:   a.cfg.CORSOrigins,
				Logger:        a.logger,
			})

			// ── 4. Start server with graceful shutdown ────────────────────────
			srv := &http.Server{
				Addr:         a.cfg.HTTPAddr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", a.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Block until SIGINT or SIGTERM.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-quit:
				a.logger.Info("received signal, shutting down", "signal", sig)
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("graceful shutdown failed", "err", err)
				return err
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
}
