package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/notification"
)

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo notificationRepository) InsertNotification(ctx context.Context, n *notification.Notification, exec ...core.DBExecutor) error {
	query := `
INSERT INTO notification (user_id, message, type)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	rows, err := repo.getExec(exec).QueryxContext(ctx, query, n.UserID, n.Message, n.Type)
	if err != nil {
		return errors.Wrap(err, "inserting notification")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&n.ID, &n.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting notification")
		}
	}
	return errors.Wrap(rows.Err(), "inserting notification")
}

func (repo notificationRepository) QueryLatestByUser(ctx context.Context, userID, limit int) ([]notification.Notification, error) {
	var ns []notification.Notification
	err := repo.exec.SelectContext(ctx, &ns,
		`SELECT * FROM notification WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	return ns, errors.Wrap(err, "querying notifications")
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE notification SET is_read = true WHERE user_id = $1`, userID)
	return errors.Wrap(err, "marking notifications read")
}
