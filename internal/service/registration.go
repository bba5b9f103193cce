package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/events"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/idgen"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/notify"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/repository"
)

// Options tunes the registration workflow.
type Options struct {
	// EnforceCapacity rejects registrations once pending+paid rows reach
	// the event capacity.
	EnforceCapacity bool
	// Currency is used for events stored without one.
	Currency string
	// PublishableKey is handed to the browser payment element.
	PublishableKey string
	// NotifyTimeout bounds a single confirmation send.
	NotifyTimeout time.Duration
}

// PublicConfig is what the browser needs before talking to the gateway.
type PublicConfig struct {
	PublishableKey string `json:"publishable_key"`
	Currency       string `json:"currency"`
}

// SweepResult summarises an ExpireStalePending run.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Confirmed int `json:"confirmed"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// RegistrationService drives a registration from pending to paid, and gives
// administrators the operations that move it anywhere else.
type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	notifications NotificationLog
	gateway       payment.Gateway
	sender        notify.Sender
	publisher     events.Publisher
	logger        *slog.Logger
	opts          Options
	now           func() time.Time
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(
	eventStore EventStore,
	registrations RegistrationStore,
	notifications NotificationLog,
	gateway payment.Gateway,
	sender notify.Sender,
	publisher events.Publisher,
	logger *slog.Logger,
	opts Options,
) *RegistrationService {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = nopLogger()
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	opts.Currency = strings.ToLower(opts.Currency)
	return &RegistrationService{
		events:        eventStore,
		registrations: registrations,
		notifications: notifications,
		gateway:       gateway,
		sender:        sender,
		publisher:     publisher,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// PublicConfig returns the browser-facing payment settings.
func (s *RegistrationService) PublicConfig() PublicConfig {
	return PublicConfig{PublishableKey: s.opts.PublishableKey, Currency: s.opts.Currency}
}

// InitiateRegistration creates a pending registration for the caller. Name
// and email default to the caller's profile. Repeated calls create distinct
// registrations.
func (s *RegistrationService) InitiateRegistration(ctx context.Context, caller *model.Identity, req model.RegisterRequest) (*model.Registration, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	rawName := req.Name
	if strings.TrimSpace(rawName) == "" {
		rawName = caller.Name
	}
	name, err := normalizeName(rawName)
	if err != nil {
		return nil, err
	}
	rawEmail := req.Email
	if strings.TrimSpace(rawEmail) == "" {
		rawEmail = caller.Email
	}
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	event, err := s.liveEvent(ctx, strings.TrimSpace(req.EventID))
	if err != nil {
		return nil, err
	}
	// The insert re-checks under a row lock; this only skips the transaction.
	if s.opts.EnforceCapacity && event.IsFull() {
		return nil, ErrEventFull
	}

	reg, err := s.create(ctx, &model.Registration{
		EventID:     event.ID,
		UserID:      caller.UserID,
		Name:        name,
		Email:       email,
		AmountCents: event.PriceCents,
		Currency:    s.currencyOf(event),
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID, "reference", reg.Reference, "event_id", reg.EventID, "user_id", reg.UserID)
	s.publish(ctx, events.TopicRegistrationCreated, events.RegistrationChanged{Registration: reg})
	return reg, nil
}

// PreparePayment creates (or reuses) a payment intent for the caller's
// pending registration and binds it to the row.
func (s *RegistrationService) PreparePayment(ctx context.Context, caller *model.Identity, registrationID string) (*model.PaymentIntentResponse, error) {
	reg, err := s.owned(ctx, caller, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, reg.Status)
	}

	event, err := s.liveEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if event.IsFree() {
		return nil, &ValidationError{Message: "no payment required for a free event"}
	}
	amount, currency := event.PriceCents, s.currencyOf(event)

	if reg.PaymentIntentID != "" {
		existing, err := s.gateway.GetIntent(ctx, reg.PaymentIntentID)
		if err != nil {
			return nil, s.gatewayError(ctx, "get intent", reg, err)
		}
		switch {
		case existing.Status == payment.IntentSucceeded:
			return nil, fmt.Errorf("%w: payment already completed, confirm it instead", ErrStateConflict)
		case existing.Status == payment.IntentPending && existing.AmountCents == amount && existing.Currency == currency:
			return s.intentResponse(existing), nil
		case existing.Status == payment.IntentPending:
			s.cancelIntent(ctx, reg, existing.ID)
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, currency, map[string]string{
		payment.MetaRegistrationID: reg.ID,
		payment.MetaEventID:        reg.EventID,
		payment.MetaReference:      reg.Reference,
	})
	if err != nil {
		return nil, s.gatewayError(ctx, "create intent", reg, err)
	}
	metrics.PaymentIntentsCreated.Inc()

	updated, err := s.registrations.SetPaymentIntent(ctx, reg.ID, intent.ID, amount, currency)
	if err != nil {
		s.cancelIntent(ctx, reg, intent.ID)
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, fmt.Errorf("%w: registration is no longer pending", ErrStateConflict)
		}
		return nil, fmt.Errorf("store payment intent: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		"registration_id", reg.ID, "payment_intent_id", intent.ID, "amount_cents", amount, "currency", currency)
	s.publish(ctx, events.TopicRegistrationPrepared, events.RegistrationChanged{Registration: updated})
	return s.intentResponse(intent), nil
}

// ConfirmPayment verifies the asserted intent with the gateway and, when the
// gateway reports success, marks the registration paid and sends the
// confirmation. Confirming an already paid registration with the same intent
// returns it unchanged and sends nothing.
func (s *RegistrationService) ConfirmPayment(ctx context.Context, caller *model.Identity, req model.ConfirmPaymentRequest) (*model.Registration, error) {
	reg, err := s.owned(ctx, caller, req.RegistrationID)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, reg, strings.TrimSpace(req.PaymentIntentID))
}

// ConfirmFromWebhook applies a verified gateway notification. Registrations
// that cannot be matched, or that already moved on, are acknowledged without
// error so the gateway stops redelivering.
func (s *RegistrationService) ConfirmFromWebhook(ctx context.Context, evt *payment.WebhookEvent) error {
	if evt == nil || evt.Intent == nil {
		return nil
	}
	intent := evt.Intent

	reg, err := s.registrations.GetByPaymentIntent(ctx, intent.ID)
	if errors.Is(err, repository.ErrNotFound) {
		if id := intent.Metadata[payment.MetaRegistrationID]; validID(id) {
			reg, err = s.registrations.GetByID(ctx, id)
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if evt.Type == payment.WebhookIntentSucceeded {
				s.reportUnmatched(ctx, evt, nil, "no registration for payment intent")
				return nil
			}
			s.logger.WarnContext(ctx, "webhook for unknown payment intent", "event_id", evt.ID, "payment_intent_id", intent.ID)
			return nil
		}
		return fmt.Errorf("find registration for intent: %w", err)
	}

	switch evt.Type {
	case payment.WebhookIntentSucceeded, payment.WebhookIntentCanceled:
		_, err = s.confirm(ctx, reg, intent.ID)
	case payment.WebhookIntentFailed:
		s.logger.InfoContext(ctx, "payment attempt failed",
			"registration_id", reg.ID, "payment_intent_id", intent.ID, "reason", intent.LastError)
		return nil
	default:
		return nil
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStateConflict) && evt.Type == payment.WebhookIntentSucceeded:
		// Money was captured but cannot be applied to the registration.
		s.reportUnmatched(ctx, evt, reg, err.Error())
		return nil
	case errors.Is(err, ErrStateConflict),
		errors.Is(err, ErrPaymentNotSucceeded),
		IsValidation(err):
		s.logger.InfoContext(ctx, "webhook left registration unchanged",
			"registration_id", reg.ID, "type", evt.Type, "reason", err)
		return nil
	default:
		return err
	}
}

// reportUnmatched raises a captured payment that no pending registration
// accepted, so an operator can refund or reinstate it.
func (s *RegistrationService) reportUnmatched(ctx context.Context, evt *payment.WebhookEvent, reg *model.Registration, reason string) {
	p := events.PaymentUnmatched{
		PaymentIntentID: evt.Intent.ID,
		AmountCents:     evt.Intent.AmountCents,
		Currency:        evt.Intent.Currency,
		Reason:          reason,
	}
	if reg != nil {
		p.RegistrationID = reg.ID
		p.Status = reg.Status
	}
	metrics.UnmatchedPayments.Inc()
	s.logger.ErrorContext(ctx, "captured payment not applied to a registration",
		"event_id", evt.ID, "payment_intent_id", p.PaymentIntentID, "registration_id", p.RegistrationID,
		"status", p.Status, "amount_cents", p.AmountCents, "reason", reason)
	s.publish(ctx, events.TopicPaymentUnmatched, p)
}

// confirm runs the verification path shared by browser and webhook callers.
func (s *RegistrationService) confirm(ctx context.Context, reg *model.Registration, intentID string) (*model.Registration, error) {
	if reg.PaymentIntentID != "" && intentID != "" && reg.PaymentIntentID != intentID {
		return nil, fmt.Errorf("%w: payment intent does not belong to this registration", ErrStateConflict)
	}

	switch reg.Status {
	case model.StatusPending:
	case model.StatusPaid:
		if intentID == reg.PaymentIntentID {
			return reg, nil
		}
		return nil, fmt.Errorf("%w: registration is already paid", ErrStateConflict)
	default:
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, reg.Status)
	}

	event, err := s.eventOf(ctx, reg)
	if err != nil {
		return nil, err
	}

	if intentID == "" {
		if reg.PaymentIntentID != "" || !event.IsFree() {
			return nil, invalid("paymentIntentId", "is required")
		}
		return s.markPaid(ctx, reg, event, "")
	}

	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, s.gatewayError(ctx, "get intent", reg, err)
	}
	return s.settle(ctx, reg, event, intent)
}

// settle applies a gateway-verified intent to a pending registration.
func (s *RegistrationService) settle(ctx context.Context, reg *model.Registration, event *model.Event, intent *payment.Intent) (*model.Registration, error) {
	if intent.Metadata[payment.MetaRegistrationID] != reg.ID {
		return nil, fmt.Errorf("%w: payment intent was issued for another registration", ErrStateConflict)
	}
	wantAmount, wantCurrency := reg.AmountCents, reg.Currency
	if reg.PaymentIntentID == "" {
		wantAmount, wantCurrency = event.PriceCents, s.currencyOf(event)
	}
	if intent.AmountCents != wantAmount || !strings.EqualFold(intent.Currency, wantCurrency) {
		s.logger.WarnContext(ctx, "payment intent amount mismatch",
			"registration_id", reg.ID, "payment_intent_id", intent.ID,
			"want_cents", wantAmount, "got_cents", intent.AmountCents)
		return nil, fmt.Errorf("%w: payment amount does not match the registration", ErrStateConflict)
	}

	switch intent.Status {
	case payment.IntentSucceeded:
		return s.markPaid(ctx, reg, event, intent.ID)
	case payment.IntentFailed:
		failed, err := s.transition(ctx, reg, model.StatusPending, model.StatusFailed, "")
		if err != nil && !errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		if failed != nil {
			s.logger.InfoContext(ctx, "payment failed", "registration_id", reg.ID, "payment_intent_id", intent.ID)
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotSucceeded, reasonOr(intent.LastError, "payment was cancelled"))
	default:
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotSucceeded, reasonOr(intent.LastError, "payment has not completed yet"))
	}
}

// markPaid performs the pending to paid compare-and-set. Only the caller
// whose update wins sends the confirmation.
func (s *RegistrationService) markPaid(ctx context.Context, reg *model.Registration, event *model.Event, intentID string) (*model.Registration, error) {
	paid, err := s.registrations.MarkPaid(ctx, reg.ID, intentID)
	if err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			return nil, fmt.Errorf("mark registration paid: %w", err)
		}
		current, gerr := s.registrations.GetByID(ctx, reg.ID)
		if gerr != nil {
			return nil, fmt.Errorf("reload registration: %w", gerr)
		}
		if current.Status == model.StatusPaid && current.PaymentIntentID == intentID {
			return current, nil
		}
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, current.Status)
	}

	metrics.RegistrationTransitions.WithLabelValues(string(model.StatusPaid)).Inc()
	s.logger.InfoContext(ctx, "registration paid",
		"registration_id", paid.ID, "reference", paid.Reference, "payment_intent_id", intentID)
	s.publish(ctx, events.TopicRegistrationPaid, events.RegistrationChanged{Registration: paid})

	// The registration stays paid whatever happens to the email.
	_, _ = s.sendConfirmation(ctx, paid, event)
	return paid, nil
}

// CancelRegistration cancels a pending or paid registration. A paid one is
// refunded at the gateway first and stays paid if the refund fails.
func (s *RegistrationService) CancelRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}

	switch reg.Status {
	case model.StatusPending:
		if reg.PaymentIntentID != "" {
			s.cancelIntent(ctx, reg, reg.PaymentIntentID)
		}
	case model.StatusPaid:
		if err := s.refund(ctx, reg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, reg.Status)
	}
	return s.transition(ctx, reg, reg.Status, model.StatusCancelled, actorOf(admin))
}

// RefundRegistration refunds a paid registration at the gateway and marks it
// refunded.
func (s *RegistrationService) RefundRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.StatusPaid {
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, reg.Status)
	}
	if reg.PaymentIntentID == "" {
		return nil, &ValidationError{Message: "registration has no payment to refund"}
	}
	if err := s.refund(ctx, reg); err != nil {
		return nil, err
	}
	return s.transition(ctx, reg, model.StatusPaid, model.StatusRefunded, actorOf(admin))
}

// ExpireStalePending settles pending registrations older than olderThan.
// Those whose intent already succeeded are confirmed; the rest have their
// intent cancelled and are marked failed.
func (s *RegistrationService) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (*SweepResult, error) {
	if limit <= 0 {
		limit = 500
	}
	stale, err := s.registrations.ListStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale registrations: %w", err)
	}

	res := &SweepResult{Scanned: len(stale)}
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch s.sweepOne(ctx, &stale[i]) {
		case sweepConfirmed:
			res.Confirmed++
		case sweepExpired:
			res.Expired++
		case sweepSkipped:
			res.Skipped++
		default:
			res.Errors++
		}
	}

	s.logger.InfoContext(ctx, "stale registrations swept",
		"scanned", res.Scanned, "confirmed", res.Confirmed, "expired", res.Expired,
		"skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

type sweepOutcome int

const (
	sweepError sweepOutcome = iota
	sweepConfirmed
	sweepExpired
	sweepSkipped
)

// sweepOne settles or expires one stale pending registration. A registration
// whose intent cannot be cancelled stays pending: the gateway may still
// capture the payment.
func (s *RegistrationService) sweepOne(ctx context.Context, reg *model.Registration) sweepOutcome {
	log := s.logger.With("registration_id", reg.ID, "reference", reg.Reference)

	if reg.PaymentIntentID != "" {
		intent, err := s.gateway.GetIntent(ctx, reg.PaymentIntentID)
		if err != nil {
			log.WarnContext(ctx, "sweep: gateway lookup failed", "err", err)
			return sweepError
		}
		if intent.Status == payment.IntentPending {
			if err := s.gateway.CancelIntent(ctx, intent.ID); err != nil {
				log.WarnContext(ctx, "sweep: cancel intent failed", "payment_intent_id", intent.ID, "err", err)
				if intent, err = s.gateway.GetIntent(ctx, intent.ID); err != nil {
					log.WarnContext(ctx, "sweep: gateway lookup failed", "err", err)
					return sweepError
				}
				if intent.Status != payment.IntentSucceeded {
					return sweepError
				}
			}
		}
		if intent.Status == payment.IntentSucceeded {
			event, err := s.eventOf(ctx, reg)
			if err == nil {
				_, err = s.settle(ctx, reg, event, intent)
			}
			if err != nil {
				log.ErrorContext(ctx, "sweep: confirm failed", "payment_intent_id", intent.ID, "err", err)
				return sweepError
			}
			return sweepConfirmed
		}
	}

	if _, err := s.transition(ctx, reg, model.StatusPending, model.StatusFailed, "sweep"); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return sweepSkipped
		}
		log.WarnContext(ctx, "sweep: expire failed", "err", err)
		return sweepError
	}
	return sweepExpired
}

// ResendConfirmation sends the confirmation for a paid registration again.
func (s *RegistrationService) ResendConfirmation(ctx context.Context, admin *model.Identity, id string) (*model.Notification, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.StatusPaid {
		return nil, fmt.Errorf("%w: registration is %s", ErrStateConflict, reg.Status)
	}
	event, err := s.eventOf(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "resending confirmation", "registration_id", reg.ID, "actor", actorOf(admin))
	return s.sendConfirmation(ctx, reg, event)
}

// ListMyRegistrations returns the caller's registrations.
func (s *RegistrationService) ListMyRegistrations(ctx context.Context, caller *model.Identity) ([]model.Registration, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	return s.ListRegistrations(ctx, model.RegistrationFilter{UserID: caller.UserID})
}

// ValidateFilter checks an admin registration filter before it reaches
// storage.
func ValidateFilter(f model.RegistrationFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "must be one of pending, paid, failed, cancelled, refunded")
	}
	if f.EventID != "" && !validID(f.EventID) {
		return invalid("event_id", "must be a UUID")
	}
	return nil
}

// ListRegistrations returns registrations matching the filter.
func (s *RegistrationService) ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	if err := ValidateFilter(f); err != nil {
		return nil, err
	}
	regs, err := s.registrations.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return regs, nil
}

// GetRegistration returns any registration by ID.
func (s *RegistrationService) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// CreateRegistration lets an administrator register someone by hand. Free
// events and complimentary seats are created paid without a gateway
// round-trip; everything else starts pending.
func (s *RegistrationService) CreateRegistration(ctx context.Context, admin *model.Identity, req model.AdminRegistrationRequest) (*model.Registration, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	event, err := s.liveEvent(ctx, strings.TrimSpace(req.EventID))
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{
		EventID:     event.ID,
		UserID:      strings.TrimSpace(req.UserID),
		Name:        name,
		Email:       email,
		Status:      model.StatusPending,
		AmountCents: event.PriceCents,
		Currency:    s.currencyOf(event),
	}
	if event.IsFree() || req.Comp {
		reg.Status = model.StatusPaid
		reg.AmountCents = 0
	}
	// Pending rows are paid through the owner's checkout session.
	if reg.Status == model.StatusPending && reg.UserID == "" {
		return nil, invalid("user_id", "is required unless the registration is comped or the event is free")
	}

	created, err := s.create(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration created by admin",
		"registration_id", created.ID, "status", created.Status, "actor", actorOf(admin))
	s.publish(ctx, events.TopicRegistrationCreated, events.RegistrationChanged{Registration: created, Actor: actorOf(admin)})

	if created.Status == model.StatusPaid {
		metrics.RegistrationTransitions.WithLabelValues(string(model.StatusPaid)).Inc()
		_, _ = s.sendConfirmation(ctx, created, event)
	}
	return created, nil
}

// UpdateRegistration edits the registrant's name and email.
func (s *RegistrationService) UpdateRegistration(ctx context.Context, admin *model.Identity, id string, patch model.RegistrationPatch) (*model.Registration, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	name, email := reg.Name, reg.Email
	if patch.Name != nil {
		if name, err = normalizeName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if email, err = normalizeEmail(*patch.Email); err != nil {
			return nil, err
		}
	}

	updated, err := s.registrations.UpdateDetails(ctx, reg.ID, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update registration: %w", err)
	}
	s.logger.InfoContext(ctx, "registration updated", "registration_id", reg.ID, "actor", actorOf(admin))
	return updated, nil
}

// DeleteRegistration removes a registration and its notification history.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, admin *model.Identity, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := s.registrations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	s.logger.InfoContext(ctx, "registration deleted", "registration_id", id, "actor", actorOf(admin))
	s.publish(ctx, events.TopicRegistrationDeleted, events.RegistrationDeleted{RegistrationID: id, Actor: actorOf(admin)})
	return nil
}

// ListNotifications returns the notification log, optionally by status.
func (s *RegistrationService) ListNotifications(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	switch status {
	case "", model.NotificationSent, model.NotificationFailed:
	default:
		return nil, invalid("status", "must be sent or failed")
	}
	list, err := s.notifications.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

func (s *RegistrationService) create(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	ref, err := idgen.Reference()
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}
	reg.Reference = ref

	created, err := s.registrations.Create(ctx, reg, s.opts.EnforceCapacity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrEventNotFound
		case errors.Is(err, repository.ErrEventFull):
			return nil, ErrEventFull
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}
	metrics.RegistrationsCreated.Inc()
	return created, nil
}

// owned loads a registration on behalf of its registrant. Registrations of
// other users are reported as missing.
func (s *RegistrationService) owned(ctx context.Context, caller *model.Identity, id string) (*model.Registration, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	reg, err := s.GetRegistration(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if reg.UserID != caller.UserID {
		return nil, ErrNotFound
	}
	return reg, nil
}

func (s *RegistrationService) liveEvent(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, ErrEventNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.IsArchived() {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// eventOf loads the event of an existing registration, archived or not.
func (s *RegistrationService) eventOf(ctx context.Context, reg *model.Registration) (*model.Event, error) {
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *RegistrationService) transition(ctx context.Context, reg *model.Registration, from, to model.PaymentStatus, actor string) (*model.Registration, error) {
	updated, err := s.registrations.Transition(ctx, reg.ID, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, fmt.Errorf("%w: registration is no longer %s", ErrStateConflict, from)
		}
		return nil, fmt.Errorf("update registration status: %w", err)
	}

	metrics.RegistrationTransitions.WithLabelValues(string(to)).Inc()
	s.logger.InfoContext(ctx, "registration status changed",
		"registration_id", reg.ID, "from", from, "to", to, "actor", actor)

	topic := map[model.PaymentStatus]string{
		model.StatusFailed:    events.TopicRegistrationFailed,
		model.StatusCancelled: events.TopicRegistrationCancelled,
		model.StatusRefunded:  events.TopicRegistrationRefunded,
	}[to]
	if topic != "" {
		s.publish(ctx, topic, events.RegistrationChanged{Registration: updated, Actor: actor})
	}
	return updated, nil
}

func (s *RegistrationService) refund(ctx context.Context, reg *model.Registration) error {
	if reg.PaymentIntentID == "" || reg.AmountCents == 0 {
		return nil
	}
	if err := s.gateway.Refund(ctx, reg.PaymentIntentID); err != nil {
		return s.gatewayError(ctx, "refund", reg, err)
	}
	s.logger.InfoContext(ctx, "payment refunded",
		"registration_id", reg.ID, "payment_intent_id", reg.PaymentIntentID, "amount_cents", reg.AmountCents)
	return nil
}

func (s *RegistrationService) cancelIntent(ctx context.Context, reg *model.Registration, intentID string) {
	if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
		s.logger.WarnContext(ctx, "cancel payment intent failed",
			"registration_id", reg.ID, "payment_intent_id", intentID, "err", err)
	}
}

// sendConfirmation delivers the confirmation email and records the outcome.
// Delivery continues after the request context is cancelled.
func (s *RegistrationService) sendConfirmation(ctx context.Context, reg *model.Registration, event *model.Event) (*model.Notification, error) {
	ctx = context.WithoutCancel(ctx)
	sendCtx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()

	sendErr := s.sender.SendConfirmation(sendCtx, notify.Confirmation{
		To:          reg.Email,
		Name:        reg.Name,
		Reference:   reg.Reference,
		EventName:   event.Name,
		StartsAt:    event.StartsAt,
		EndsAt:      event.EndsAt,
		Location:    event.Location,
		AmountCents: reg.AmountCents,
		Currency:    reg.Currency,
	})

	n := &model.Notification{
		RegistrationID: reg.ID,
		Kind:           model.NotificationKindConfirmation,
		Recipient:      reg.Email,
		Status:         model.NotificationSent,
	}
	if sendErr != nil {
		n.Status = model.NotificationFailed
		n.Error = sendErr.Error()
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Status)).Inc()

	if recorded, err := s.notifications.Record(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "record notification failed", "registration_id", reg.ID, "err", err)
	} else {
		n = recorded
	}

	if sendErr != nil {
		s.logger.ErrorContext(ctx, "confirmation email failed",
			"registration_id", reg.ID, "reference", reg.Reference, "to", reg.Email, "err", sendErr)
		s.publish(ctx, events.TopicNotificationFailed, events.NotificationFailed{Notification: n})
		return n, fmt.Errorf("%w: %v", ErrNotificationFailed, sendErr)
	}
	s.logger.InfoContext(ctx, "confirmation email sent", "registration_id", reg.ID, "to", reg.Email)
	return n, nil
}

func (s *RegistrationService) gatewayError(ctx context.Context, op string, reg *model.Registration, err error) error {
	s.logger.ErrorContext(ctx, "payment gateway call failed", "op", op, "registration_id", reg.ID, "err", err)
	return fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, op, err)
}

func (s *RegistrationService) intentResponse(intent *payment.Intent) *model.PaymentIntentResponse {
	return &model.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
		PublishableKey:  s.opts.PublishableKey,
	}
}

func (s *RegistrationService) currencyOf(event *model.Event) string {
	if event.Currency != "" {
		return strings.ToLower(event.Currency)
	}
	return s.opts.Currency
}

func (s *RegistrationService) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed", "topic", topic, "err", err)
	}
}

func actorOf(id *model.Identity) string {
	if id == nil {
		return ""
	}
	return id.UserID
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
