package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/events"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/money"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/repository"
)

const maxCapacity = 100_000

// EventService orchestrates event-related business operations.
type EventService struct {
	store     EventStore
	publisher events.Publisher
	currency  string
	logger    *slog.Logger
}

// NewEventService constructs an EventService. currency is applied to events
// created without one.
func NewEventService(store EventStore, publisher events.Publisher, currency string, logger *slog.Logger) *EventService {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = nopLogger()
	}
	return &EventService{
		store:     store,
		publisher: publisher,
		currency:  strings.ToLower(currency),
		logger:    logger,
	}
}

// CreateEvent validates the input and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	if in.Name == nil {
		return nil, invalid("name", "is required")
	}
	if in.StartsAt == nil || in.EndsAt == nil {
		return nil, invalid("starts_at", "and ends_at are required")
	}
	if in.Capacity == nil {
		return nil, invalid("capacity", "is required")
	}

	e := &model.Event{Currency: s.currency}
	if err := applyEventInput(e, in); err != nil {
		return nil, err
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.InfoContext(ctx, "event created", "event_id", created.ID, "name", created.Name)
	s.publish(ctx, events.TopicEventCreated, created)
	return created, nil
}

// UpdateEvent applies a partial update. The merged event must satisfy the
// same invariants as a new one.
func (s *EventService) UpdateEvent(ctx context.Context, id string, in model.EventInput) (*model.Event, error) {
	current, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if err := applyEventInput(&merged, in); err != nil {
		return nil, err
	}
	if err := validateEvent(&merged); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, &merged)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.logger.InfoContext(ctx, "event updated", "event_id", updated.ID)
	s.publish(ctx, events.TopicEventUpdated, updated)
	return updated, nil
}

// ArchiveEvent hides an event from the public catalogue. Existing
// registrations are kept.
func (s *EventService) ArchiveEvent(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, ErrEventNotFound
	}
	archived, err := s.store.Archive(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("archive event: %w", err)
	}
	s.logger.InfoContext(ctx, "event archived", "event_id", id)
	s.publish(ctx, events.TopicEventArchived, archived)
	return archived, nil
}

// ListEvents returns live events for the public catalogue.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	list, err := s.store.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}

// ListAllEvents returns every event, archived ones included.
func (s *EventService) ListAllEvents(ctx context.Context) ([]model.Event, error) {
	list, err := s.store.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list, nil
}

// GetEvent returns a live event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsArchived() {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (s *EventService) lookup(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, ErrEventNotFound
	}
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventService) publish(ctx context.Context, topic string, e *model.Event) {
	if err := s.publisher.Publish(ctx, topic, events.EventChanged{Event: e}); err != nil {
		s.logger.WarnContext(ctx, "publish event change failed", "topic", topic, "err", err)
	}
}

func applyEventInput(e *model.Event, in model.EventInput) error {
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.StartsAt != nil {
		e.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		e.EndsAt = in.EndsAt.UTC()
	}
	if in.Capacity != nil {
		e.Capacity = *in.Capacity
	}

	switch {
	case in.Price != nil:
		cents, err := money.ParseCents(*in.Price)
		if err != nil {
			return invalid("price", "must be a non-negative amount with at most two decimals")
		}
		if in.PriceCents != nil && *in.PriceCents != cents {
			return invalid("price", "and price_cents disagree")
		}
		e.PriceCents = cents
	case in.PriceCents != nil:
		e.PriceCents = *in.PriceCents
	}

	if in.Currency != nil {
		e.Currency = strings.ToLower(strings.TrimSpace(*in.Currency))
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.Agenda != nil {
		e.Agenda = *in.Agenda
	}
	if in.Contact != nil {
		e.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.Inclusions != nil {
		e.Inclusions = *in.Inclusions
	}
	return nil
}

func validateEvent(e *model.Event) error {
	if e.Name == "" {
		return invalid("name", "is required")
	}
	if len([]rune(e.Name)) > maxNameLen {
		return invalid("name", "must be at most %d characters", maxNameLen)
	}
	if e.StartsAt.IsZero() || e.EndsAt.IsZero() {
		return invalid("starts_at", "and ends_at are required")
	}
	if !e.EndsAt.After(e.StartsAt) {
		return invalid("ends_at", "must be after starts_at")
	}
	if e.Capacity < 1 {
		return invalid("capacity", "must be at least 1")
	}
	if e.Capacity > maxCapacity {
		return invalid("capacity", "cannot exceed %d", maxCapacity)
	}
	if e.PriceCents < 0 {
		return invalid("price_cents", "must not be negative")
	}
	if len(e.Currency) != 3 {
		return invalid("currency", "must be a three-letter ISO code")
	}
	for _, r := range e.Currency {
		if r < 'a' || r > 'z' {
			return invalid("currency", "must be a three-letter ISO code")
		}
	}
	return nil
}
