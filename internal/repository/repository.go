// Package repository implements all database queries for the bootcamp checkout service.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrStateConflict is returned when a conditional status update matched no row
// because the registration is no longer in the expected state.
var ErrStateConflict = errors.New("registration state changed")

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `e.id, e.name, e.description, e.starts_at, e.ends_at, e.capacity,
	e.price_cents, e.currency, e.location, e.agenda, e.contact, e.inclusions,
	e.created_at, e.updated_at, e.archived_at,
	(SELECT COUNT(*) FROM registrations r
	  WHERE r.event_id = e.id AND r.status IN ('pending', 'paid')) AS seats_taken`

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e     model.Event
		taken int
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt, &e.Capacity,
		&e.PriceCents, &e.Currency, &e.Location, &e.Agenda, &e.Contact, &e.Inclusions,
		&e.CreatedAt, &e.UpdatedAt, &e.ArchivedAt, &taken,
	)
	if err != nil {
		return nil, err
	}
	e.SetSeatsTaken(taken)
	return &e, nil
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	now := time.Now().UTC()
	e.ID = uuid.New().String()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, description, starts_at, ends_at, capacity,
		                     price_cents, currency, location, agenda, contact, inclusions,
		                     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.Capacity,
		e.PriceCents, e.Currency, e.Location, e.Agenda, e.Contact, e.Inclusions,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

// List returns events ordered by start time ascending. Archived events are
// included only when includeArchived is set.
func (r *EventRepository) List(ctx context.Context, includeArchived bool) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 WHERE $1 OR e.archived_at IS NULL
		 ORDER BY e.starts_at ASC`,
		includeArchived,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event (archived or not) or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update overwrites the mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) (*model.Event, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET name = $2, description = $3, starts_at = $4, ends_at = $5, capacity = $6,
		     price_cents = $7, currency = $8, location = $9, agenda = $10,
		     contact = $11, inclusions = $12, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.Capacity,
		e.PriceCents, e.Currency, e.Location, e.Agenda, e.Contact, e.Inclusions,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, e.ID)
}

// Archive soft-deletes an event. Registrations are left untouched.
// Archiving an already archived event keeps the original timestamp.
func (r *EventRepository) Archive(ctx context.Context, id string) (*model.Event, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET archived_at = COALESCE(archived_at, now()), updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("archive event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
