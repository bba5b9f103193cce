// Package model defines the core domain types for the bootcamp checkout service.
package model

import "time"

// Event represents a bootcamp session that attendees register and pay for.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Capacity    int        `json:"capacity"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Location    string     `json:"location"`
	Agenda      string     `json:"agenda,omitempty"`
	Contact     string     `json:"contact,omitempty"`
	Inclusions  string     `json:"inclusions,omitempty"`
	SeatsTaken  int        `json:"seats_taken"`
	SeatsLeft   int        `json:"seats_remaining"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	if n := e.Capacity - e.SeatsTaken; n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.SeatsTaken >= e.Capacity
}

// SetSeatsTaken records the live seat count and the derived availability.
func (e *Event) SetSeatsTaken(n int) {
	e.SeatsTaken = n
	e.SeatsLeft = e.Remaining()
}

// IsArchived reports whether the event was soft-deleted by an administrator.
func (e *Event) IsArchived() bool {
	return e.ArchivedAt != nil
}

// IsFree reports whether the event needs no payment.
func (e *Event) IsFree() bool {
	return e.PriceCents == 0
}

// PaymentStatus is the payment state of a registration.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPaid      PaymentStatus = "paid"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Registration records a person's intent to attend an event and its payment state.
type Registration struct {
	ID              string        `json:"id"`
	Reference       string        `json:"reference"`
	EventID         string        `json:"event_id"`
	UserID          string        `json:"user_id,omitempty"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Status          PaymentStatus `json:"status"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	AmountCents     int64         `json:"amount_cents"`
	Currency        string        `json:"currency"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
}

// RegistrationFilter narrows admin registration listings.
type RegistrationFilter struct {
	EventID string        `json:"event_id,omitempty"`
	UserID  string        `json:"user_id,omitempty"`
	Status  PaymentStatus `json:"status,omitempty"`
}

// NotificationStatus is the delivery outcome of a notification.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationKindConfirmation is the payment confirmation email.
const NotificationKindConfirmation = "payment_confirmation"

// Notification records the last delivery attempt of a message tied to a registration.
type Notification struct {
	ID             string             `json:"id"`
	RegistrationID string             `json:"registration_id"`
	Kind           string             `json:"kind"`
	Recipient      string             `json:"recipient"`
	Status         NotificationStatus `json:"status"`
	Error          string             `json:"error,omitempty"`
	Attempts       int                `json:"attempts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Identity is the authenticated caller as asserted by the auth provider.
type Identity struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// User is an account as reported by the auth provider's admin API.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

// EventInput is the admin payload for creating or patching an event.
// Nil fields are left unchanged on update.
type EventInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity"`
	PriceCents  *int64     `json:"price_cents"`
	Price       *string    `json:"price"`
	Currency    *string    `json:"currency"`
	Location    *string    `json:"location"`
	Agenda      *string    `json:"agenda"`
	Contact     *string    `json:"contact"`
	Inclusions  *string    `json:"inclusions"`
}

// RegisterRequest is the payload for POST /api/register-event.
type RegisterRequest struct {
	EventID string `json:"eventId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

// PaymentIntentRequest is the payload for POST /api/create-payment-intent.
type PaymentIntentRequest struct {
	RegistrationID string `json:"registrationId"`
}

// PaymentIntentResponse carries what the browser payment element needs.
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
	PublishableKey  string `json:"publishableKey,omitempty"`
}

// ConfirmPaymentRequest is the payload for POST /api/confirm-payment.
type ConfirmPaymentRequest struct {
	RegistrationID  string `json:"registrationId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// AdminRegistrationRequest is the admin payload for creating a registration by hand.
type AdminRegistrationRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Comp    bool   `json:"comp"`
}

// RegistrationPatch is the admin payload for editing registrant details.
type RegistrationPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
