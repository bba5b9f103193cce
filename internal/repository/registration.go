package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, reference, event_id, user_id, name, email, status,
	payment_intent_id, amount_cents, currency, created_at, updated_at, paid_at`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg      model.Registration
		userID   *string
		intentID *string
		status   string
	)
	err := row.Scan(
		&reg.ID, &reg.Reference, &reg.EventID, &userID, &reg.Name, &reg.Email, &status,
		&intentID, &reg.AmountCents, &reg.Currency, &reg.CreatedAt, &reg.UpdatedAt, &reg.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = model.PaymentStatus(status)
	if userID != nil {
		reg.UserID = *userID
	}
	if intentID != nil {
		reg.PaymentIntentID = *intentID
	}
	return &reg, nil
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts a registration for a live event inside a transaction that
// holds a row lock on the event.
//
// Counting seats and inserting must not race: two requests that both read
// "9 of 10 taken" would otherwise both insert. SELECT … FOR UPDATE on the
// event row serialises concurrent creates for the same event, so the count
// and the insert observe a consistent picture. When enforceCapacity is false
// the lock still guards against the event being archived mid-insert.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration, enforceCapacity bool) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback is a no-op once the transaction has been committed.
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		capacity int
		archived bool
	)
	err = tx.QueryRow(ctx,
		`SELECT capacity, archived_at IS NOT NULL
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		reg.EventID,
	).Scan(&capacity, &archived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	if archived {
		return nil, ErrNotFound
	}

	if enforceCapacity {
		var taken int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM registrations
			 WHERE event_id = $1 AND status IN ('pending', 'paid')`,
			reg.EventID,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("count seats: %w", err)
		}
		if taken >= capacity {
			return nil, ErrEventFull
		}
	}

	now := time.Now().UTC()
	reg.ID = uuid.New().String()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	if reg.Status == "" {
		reg.Status = model.StatusPending
	}
	if reg.Status == model.StatusPaid && reg.PaidAt == nil {
		reg.PaidAt = &now
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, reference, event_id, user_id, name, email, status,
		                            payment_intent_id, amount_cents, currency,
		                            created_at, updated_at, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		reg.ID, reg.Reference, reg.EventID, nullIfEmpty(reg.UserID), reg.Name, reg.Email,
		string(reg.Status), nullIfEmpty(reg.PaymentIntentID), reg.AmountCents, reg.Currency,
		reg.CreatedAt, reg.UpdatedAt, reg.PaidAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// GetByPaymentIntent returns the registration bound to a payment intent.
func (r *RegistrationRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE payment_intent_id = $1`, intentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration by intent: %w", err)
	}
	return reg, nil
}

// List returns registrations matching the filter, oldest first.
func (r *RegistrationRepository) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.EventID != "" {
		add("event_id = $%d", f.EventID)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	query := `SELECT ` + registrationColumns + ` FROM registrations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// ListStalePending returns pending registrations created before the cutoff.
func (r *RegistrationRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// SetPaymentIntent stores the intent reference and the amount it was created
// for. It only applies while the registration is still pending.
func (r *RegistrationRepository) SetPaymentIntent(ctx context.Context, id, intentID string, amountCents int64, currency string) (*model.Registration, error) {
	return r.conditionalUpdate(ctx,
		`UPDATE registrations
		 SET payment_intent_id = $2, amount_cents = $3, currency = $4, updated_at = now()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+registrationColumns,
		id, intentID, amountCents, currency,
	)
}

// MarkPaid moves a pending registration to paid. The update is a
// compare-and-set: of several concurrent callers exactly one sees a row back,
// the rest get ErrStateConflict. intentID may be empty for free events.
func (r *RegistrationRepository) MarkPaid(ctx context.Context, id, intentID string) (*model.Registration, error) {
	return r.conditionalUpdate(ctx,
		`UPDATE registrations
		 SET status = 'paid', payment_intent_id = COALESCE($2, payment_intent_id),
		     paid_at = now(), updated_at = now()
		 WHERE id = $1 AND status = 'pending'
		   AND (payment_intent_id IS NULL OR payment_intent_id = $2)
		 RETURNING `+registrationColumns,
		id, nullIfEmpty(intentID),
	)
}

// Transition moves a registration from one status to another if, and only
// if, it is currently in the from status.
func (r *RegistrationRepository) Transition(ctx context.Context, id string, from, to model.PaymentStatus) (*model.Registration, error) {
	return r.conditionalUpdate(ctx,
		`UPDATE registrations
		 SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+registrationColumns,
		id, string(from), string(to),
	)
}

// UpdateDetails changes the registrant name and email.
func (r *RegistrationRepository) UpdateDetails(ctx context.Context, id, name, email string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`UPDATE registrations
		 SET name = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+registrationColumns,
		id, name, email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return reg, nil
}

// Delete removes a registration and its notification log.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RegistrationRepository) conditionalUpdate(ctx context.Context, query string, args ...any) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateConflict
		}
		return nil, fmt.Errorf("update registration status: %w", err)
	}
	return reg, nil
}
