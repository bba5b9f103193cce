// Package service implements business logic, validation, and orchestration
// between HTTP handlers, the repository layer and external providers.
package service

import (
	"context"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// EventStore is the persistence contract for events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) (*model.Event, error)
	List(ctx context.Context, includeArchived bool) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) (*model.Event, error)
	Archive(ctx context.Context, id string) (*model.Event, error)
}

// RegistrationStore is the persistence contract for registrations. Status
// changes are conditional updates that fail with repository.ErrStateConflict
// when the row is no longer in the expected state.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration, enforceCapacity bool) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*model.Registration, error)
	List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Registration, error)
	SetPaymentIntent(ctx context.Context, id, intentID string, amountCents int64, currency string) (*model.Registration, error)
	MarkPaid(ctx context.Context, id, intentID string) (*model.Registration, error)
	Transition(ctx context.Context, id string, from, to model.PaymentStatus) (*model.Registration, error)
	UpdateDetails(ctx context.Context, id, name, email string) (*model.Registration, error)
	Delete(ctx context.Context, id string) error
}

// NotificationLog records notification delivery outcomes.
type NotificationLog interface {
	Record(ctx context.Context, n *model.Notification) (*model.Notification, error)
	List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error)
}

const maxNameLen = 200

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// validID reports whether id can name a stored row. Malformed ids are
// treated as missing rather than passed to the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len([]rune(name)) > maxNameLen {
		return "", invalid("name", "must be at most %d characters", maxNameLen)
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid email address")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") {
		return "", invalid("email", "is not a valid email address")
	}
	return email, nil
}
