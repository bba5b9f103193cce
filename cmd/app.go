package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/config"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/database"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/events"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/notify"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	publisher events.Publisher

	events        *repository.EventRepository
	registrations *repository.RegistrationRepository
	notifications *repository.NotificationRepository
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// setup loads configuration, connects to PostgreSQL and opens the event
// publisher. Callers must call close.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres")

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		publisher = pub
		logger.Info("events enabled", "nats_url", cfg.NATSURL)
	} else {
		publisher = &events.NoopPublisher{}
		logger.Info("events disabled (NATS_URL not set)")
	}

	return &app{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		publisher:     publisher,
		events:        repository.NewEventRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
	}, nil
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close publisher", "err", err)
	}
	a.pool.Close()
}

func (a *app) sender() notify.Sender {
	if !a.cfg.SMTPEnabled() {
		a.logger.Warn("smtp not configured, confirmation emails are logged only")
		return &notify.LogSender{Logger: a.logger}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUsername,
		Password: a.cfg.SMTPPassword,
		From:     a.cfg.SMTPFrom,
		Timeout:  a.cfg.NotifyTimeout,
	})
}

func (a *app) eventService() *service.EventService {
	return service.NewEventService(a.events, a.publisher, a.cfg.Currency, a.logger)
}

func (a *app) registrationService() (*service.RegistrationService, error) {
	if a.cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	gateway := payment.NewStripeGateway(a.cfg.StripeSecretKey, a.cfg.GatewayTimeout)
	return service.NewRegistrationService(
		a.events, a.registrations, a.notifications,
		gateway, a.sender(), a.publisher, a.logger,
		service.Options{
			EnforceCapacity: a.cfg.EnforceCapacity,
			Currency:        a.cfg.Currency,
			PublishableKey:  a.cfg.StripePublishableKey,
			NotifyTimeout:   a.cfg.NotifyTimeout,
		},
	), nil
}
