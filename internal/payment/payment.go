// Package payment adapts the third-party payment processor behind a small
// gateway contract. Amounts are integer minor currency units throughout.
package payment

import (
	"context"
	"fmt"
)

// IntentStatus is the gateway-agnostic state of a payment intent.
type IntentStatus string

const (
	IntentSucceeded IntentStatus = "succeeded"
	IntentPending   IntentStatus = "pending"
	IntentFailed    IntentStatus = "failed"
)

// Metadata keys attached to every intent this service creates.
const (
	MetaRegistrationID = "registration_id"
	MetaEventID        = "event_id"
	MetaReference      = "reference"
)

// Intent is a payment intent as seen by the workflow.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountCents  int64
	Currency     string
	Metadata     map[string]string
	// LastError is the processor's explanation of the most recent failed
	// attempt (e.g. a card decline), if any.
	LastError string
}

// Gateway is the payment processor contract. Implementations do not retry;
// callers decide the retry policy.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
	Refund(ctx context.Context, intentID string) error
}

// Error is returned by gateway implementations for any failed call.
type Error struct {
	Op          string
	Code        string
	DeclineCode string
	Message     string
	Err         error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("payment %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
