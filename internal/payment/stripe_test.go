package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"
)

func TestMapStatus(t *testing.T) {
	for _, tc := range []struct {
		in   stripe.PaymentIntentStatus
		want IntentStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, IntentSucceeded},
		{stripe.PaymentIntentStatusCanceled, IntentFailed},
		{stripe.PaymentIntentStatusProcessing, IntentPending},
		{stripe.PaymentIntentStatusRequiresAction, IntentPending},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, IntentPending},
		{stripe.PaymentIntentStatusRequiresConfirmation, IntentPending},
		{stripe.PaymentIntentStatusRequiresCapture, IntentPending},
	} {
		if got := mapStatus(tc.in); got != tc.want {
			t.Errorf("mapStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFromStripe(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret_abc",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       19900,
		Currency:     stripe.CurrencyUSD,
		Metadata:     map[string]string{MetaRegistrationID: "reg-1"},
		LastPaymentError: &stripe.Error{
			Msg: "Your card was declined.",
		},
	}
	in := fromStripe(pi)
	if in.ID != "pi_123" || in.ClientSecret != "pi_123_secret_abc" {
		t.Errorf("ids not copied: %+v", in)
	}
	if in.Status != IntentPending || in.AmountCents != 19900 || in.Currency != "usd" {
		t.Errorf("unexpected intent %+v", in)
	}
	if in.Metadata[MetaRegistrationID] != "reg-1" {
		t.Errorf("metadata not copied: %v", in.Metadata)
	}
	if in.LastError != "Your card was declined." {
		t.Errorf("LastError = %q", in.LastError)
	}
}

func TestWrapStripeError(t *testing.T) {
	se := &stripe.Error{Code: stripe.ErrorCodeCardDeclined, DeclineCode: "insufficient_funds", Msg: "declined"}
	err := wrapStripeError("create_intent", se)

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Code != "card_declined" || pe.DeclineCode != "insufficient_funds" || pe.Message != "declined" {
		t.Errorf("unexpected fields %+v", pe)
	}
	if !strings.Contains(err.Error(), "create_intent") {
		t.Errorf("error %q lacks op", err)
	}

	plain := wrapStripeError("get_intent", errors.New("dial tcp: timeout"))
	if !errors.As(plain, &pe) || pe.Message != "" {
		t.Errorf("plain error wrapped as %+v", pe)
	}
	if !strings.Contains(plain.Error(), "dial tcp") {
		t.Errorf("error %q lost cause", plain)
	}
}

func sign(t *testing.T, secret string, payload []byte, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const succeededPayload = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2020-08-27",
  "type": "payment_intent.succeeded",
  "data": {
    "object": {
      "id": "pi_1",
      "object": "payment_intent",
      "amount": 19900,
      "currency": "usd",
      "status": "succeeded",
      "metadata": {"registration_id": "reg-1"}
    }
  }
}`

func TestWebhookVerifier_Parse(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	payload := []byte(succeededPayload)

	evt, err := v.Parse(payload, sign(t, "whsec_test", payload, time.Now()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if evt.Type != WebhookIntentSucceeded || evt.Intent == nil {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Intent.ID != "pi_1" || evt.Intent.Status != IntentSucceeded || evt.Intent.AmountCents != 19900 {
		t.Errorf("unexpected intent %+v", evt.Intent)
	}
	if evt.Intent.Metadata[MetaRegistrationID] != "reg-1" {
		t.Errorf("metadata = %v", evt.Intent.Metadata)
	}
}

func TestWebhookVerifier_RejectsBadSignature(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	payload := []byte(succeededPayload)

	if _, err := v.Parse(payload, sign(t, "whsec_other", payload, time.Now())); err == nil {
		t.Error("expected error for wrong secret")
	}
	if _, err := v.Parse(payload, ""); err == nil {
		t.Error("expected error for missing header")
	}
	if _, err := v.Parse(payload, sign(t, "whsec_test", payload, time.Now().Add(-time.Hour))); err == nil {
		t.Error("expected error for stale timestamp")
	}
}

func TestWebhookVerifier_IgnoresOtherTypes(t *testing.T) {
	v := NewWebhookVerifier("whsec_test")
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	evt, err := v.Parse(payload, sign(t, "whsec_test", payload, time.Now()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if evt.Intent != nil {
		t.Errorf("expected nil intent for %s", evt.Type)
	}
}
