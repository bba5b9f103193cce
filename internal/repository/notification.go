package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// NotificationRepository records the outcome of outgoing messages so that
// failed sends stay visible to operators.
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, registration_id, kind, recipient, status, error, attempts, created_at, updated_at`

// Record upserts the delivery outcome for (registration, kind), bumping the
// attempt counter on every call.
func (r *NotificationRepository) Record(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	var (
		out    model.Notification
		status string
	)
	err := r.db.QueryRow(ctx,
		`INSERT INTO notifications (id, registration_id, kind, recipient, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (registration_id, kind) DO UPDATE
		 SET recipient = EXCLUDED.recipient, status = EXCLUDED.status, error = EXCLUDED.error,
		     attempts = notifications.attempts + 1, updated_at = now()
		 RETURNING `+notificationColumns,
		uuid.New().String(), n.RegistrationID, n.Kind, n.Recipient, string(n.Status), n.Error,
	).Scan(&out.ID, &out.RegistrationID, &out.Kind, &out.Recipient, &status,
		&out.Error, &out.Attempts, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	out.Status = model.NotificationStatus(status)
	return &out, nil
}

// List returns notifications, newest first, optionally filtered by status.
func (r *NotificationRepository) List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationColumns+`
		 FROM notifications
		 WHERE $1 = '' OR status = $1
		 ORDER BY updated_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n  model.Notification
			st string
		)
		if err := rows.Scan(&n.ID, &n.RegistrationID, &n.Kind, &n.Recipient, &st,
			&n.Error, &n.Attempts, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Status = model.NotificationStatus(st)
		out = append(out, n)
	}
	return out, rows.Err()
}
