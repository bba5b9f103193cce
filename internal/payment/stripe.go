package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/metrics"
)

// StripeGateway implements Gateway on top of the Stripe PaymentIntents API.
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
}

// Compile-time check that StripeGateway implements Gateway.
var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway builds a client with network retries disabled and every
// call bounded by timeout.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return &StripeGateway{api: api, timeout: timeout}
}

// CreateIntent creates a PaymentIntent with automatic payment methods and
// the given metadata attached.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	pi, err := g.api.PaymentIntents.New(params)
	observe("create_intent", start, err)
	if err != nil {
		return nil, wrapStripeError("create_intent", err)
	}
	return fromStripe(pi), nil
}

// GetIntent fetches the current state of a PaymentIntent.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	start := time.Now()
	pi, err := g.api.PaymentIntents.Get(id, params)
	observe("get_intent", start, err)
	if err != nil {
		return nil, wrapStripeError("get_intent", err)
	}
	return fromStripe(pi), nil
}

// CancelIntent cancels a PaymentIntent that has not been captured.
func (g *StripeGateway) CancelIntent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	start := time.Now()
	_, err := g.api.PaymentIntents.Cancel(id, params)
	observe("cancel_intent", start, err)
	if err != nil {
		return wrapStripeError("cancel_intent", err)
	}
	return nil
}

// Refund refunds the full captured amount of a PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx

	start := time.Now()
	_, err := g.api.Refunds.New(params)
	observe("refund", start, err)
	if err != nil {
		return wrapStripeError("refund", err)
	}
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(op).Inc()
	}
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		in.LastError = pi.LastPaymentError.Msg
	}
	return in
}

// mapStatus folds Stripe's intent states into three outcomes. Only an
// explicitly cancelled intent is terminal; requires_payment_method after a
// decline can still be retried with another card.
func mapStatus(s stripe.PaymentIntentStatus) IntentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return IntentFailed
	default:
		return IntentPending
	}
}

func wrapStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{
			Op:          op,
			Code:        string(se.Code),
			DeclineCode: string(se.DeclineCode),
			Message:     se.Msg,
			Err:         err,
		}
	}
	return &Error{Op: op, Err: err}
}

// WebhookEvent is a verified gateway notification about a payment intent.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *Intent
}

// Webhook event types this service reacts to.
const (
	WebhookIntentSucceeded = "payment_intent.succeeded"
	WebhookIntentFailed    = "payment_intent.payment_failed"
	WebhookIntentCanceled  = "payment_intent.canceled"
)

// WebhookVerifier checks Stripe-Signature headers against the endpoint secret.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier constructs a WebhookVerifier for the endpoint secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse verifies the signature and decodes payment intent events. Events of
// other types are returned with a nil Intent.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (*WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	out := &WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	switch out.Type {
	case WebhookIntentSucceeded, WebhookIntentFailed, WebhookIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.Intent = fromStripe(&pi)
	}
	return out, nil
}
