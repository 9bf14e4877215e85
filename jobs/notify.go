package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is a persisted in-app message produced by the workflow engine.
type Notification struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Event      string         `json:"event"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Message    string         `json:"message"`
	Meta       map[string]any `json:"meta,omitempty"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NotificationStore persists notifications for the in-app inbox.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore constructs a store backed by Postgres.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Insert writes one notification row and returns its id.
func (s *NotificationStore) Insert(ctx context.Context, n Notification) (int64, error) {
	var meta []byte
	if len(n.Meta) > 0 {
		var err error
		meta, err = json.Marshal(n.Meta)
		if err != nil {
			return 0, err
		}
	}
	var id int64
	err := s.pool.QueryRow(ctx, `INSERT INTO notifications (user_id, event, entity_type, entity_id, message, meta, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		n.UserID, n.Event, n.EntityType, n.EntityID, n.Message, meta, time.Now()).Scan(&id)
	return id, err
}

// Cleanup removes notifications older than the retention window.
func (s *NotificationStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
