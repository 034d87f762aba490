package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) Create(ctx context.Context, notifs ...notification.Notification) ([]notification.Notification, error) {
	if len(notifs) == 0 {
		return nil, nil
	}
	for i := range notifs {
		notifs[i].ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO notification (id, recipient_id, title, body, read, created_at)
		 VALUES (:id, :recipient_id, :title, :body, :read, :created_at)`, notifs)
	if err != nil {
		return nil, errors.Wrap(err, "inserting notifications")
	}
	return notifs, nil
}

func (repo notificationRepository) ByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]notification.Notification, error) {
	notifs := make([]notification.Notification, 0)
	query := `SELECT * FROM notification WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &notifs, query, recipientID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo notificationRepository) Get(ctx context.Context, id, recipientID string) (notification.Notification, error) {
	var notif notification.Notification
	err := repo.db.GetContext(ctx, &notif,
		`SELECT * FROM notification WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return notif, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE notification SET read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
