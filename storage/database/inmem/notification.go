package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) InsertNotification(ctx context.Context, n *notification.Notification, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n.ID = repo.db.nextPK()
	n.CreatedAt = time.Now().UTC()
	stored := *n
	repo.db.notifications[n.ID] = &stored
	return nil
}

func (repo *notificationRepository) QueryLatestByUser(ctx context.Context, userID, limit int) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ns []notification.Notification
	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	if len(ns) > limit {
		ns = ns[:limit]
	}
	return ns, nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}
