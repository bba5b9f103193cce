// Package events publishes registration lifecycle events for downstream
// consumers (CRM sync, analytics, ops alerts).
package events

import (
	"context"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// Event topic constants
const (
	TopicEventCreated  = "bootcamp.event.created"
	TopicEventUpdated  = "bootcamp.event.updated"
	TopicEventArchived = "bootcamp.event.archived"

	TopicRegistrationCreated   = "bootcamp.registration.created"
	TopicRegistrationPrepared  = "bootcamp.registration.payment_prepared"
	TopicRegistrationPaid      = "bootcamp.registration.paid"
	TopicRegistrationFailed    = "bootcamp.registration.failed"
	TopicRegistrationCancelled = "bootcamp.registration.cancelled"
	TopicRegistrationRefunded  = "bootcamp.registration.refunded"
	TopicRegistrationDeleted   = "bootcamp.registration.deleted"

	TopicNotificationFailed = "bootcamp.notification.failed"
	TopicPaymentUnmatched   = "bootcamp.payment.unmatched"
)

type EventChanged struct {
	Event *model.Event `json:"event"`
}

type RegistrationChanged struct {
	Registration *model.Registration `json:"registration"`
	Actor        string              `json:"actor,omitempty"` // user id of an admin, empty for the registrant
}

type RegistrationDeleted struct {
	RegistrationID string `json:"registration_id"`
	Actor          string `json:"actor,omitempty"`
}

type NotificationFailed struct {
	Notification *model.Notification `json:"notification"`
}

// PaymentUnmatched reports a captured payment that could not be applied to a
// pending registration. RegistrationID is empty when no registration matched.
type PaymentUnmatched struct {
	PaymentIntentID string              `json:"payment_intent_id"`
	RegistrationID  string              `json:"registration_id,omitempty"`
	Status          model.PaymentStatus `json:"status,omitempty"`
	AmountCents     int64               `json:"amount_cents"`
	Currency        string              `json:"currency"`
	Reason          string              `json:"reason"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
