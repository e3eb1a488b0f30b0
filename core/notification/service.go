package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
)

// DefaultLimit caps how many notifications the dashboard shows.
const DefaultLimit = 5

type Repository interface {
	InsertNotification(ctx context.Context, n *Notification, exec ...core.DBExecutor) error
	QueryLatestByUser(ctx context.Context, userID, limit int) ([]Notification, error)
	MarkAllRead(ctx context.Context, userID int, exec ...core.DBExecutor) error
}

type Service struct {
	repo Repository
	log  core.Logger
}

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Add records a notification for the user. It is a best-effort side
// effect of other operations: failures are logged, never fatal to the
// caller, so the error return is advisory.
func (svc *Service) Add(ctx context.Context, userID int, message, typ string) error {
	if typ == "" {
		typ = TypeInfo
	}
	n := Notification{UserID: userID, Message: message, Type: typ}
	if err := svc.repo.InsertNotification(ctx, &n); err != nil {
		svc.log.Error("adding notification", "user_id", userID, "error", err)
		return errors.Wrap(err, "inserting notification")
	}
	return nil
}

// Latest returns the user's most recent notifications, newest first.
// limit <= 0 falls back to DefaultLimit.
func (svc *Service) Latest(ctx context.Context, userID, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ns, err := svc.repo.QueryLatestByUser(ctx, userID, limit)
	return ns, errors.Wrap(err, "querying notifications")
}

// MarkAllRead flags every notification of the user as read.
func (svc *Service) MarkAllRead(ctx context.Context, userID int) error {
	return errors.Wrap(svc.repo.MarkAllRead(ctx, userID), "marking notifications read")
}
