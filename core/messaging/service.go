package messaging

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
)

var ErrRecipientNotFound = errors.New("recipient not found")

type Repository interface {
	InsertMessage(ctx context.Context, msg *Message, exec ...core.DBExecutor) error
	QueryConversations(ctx context.Context, userID int) ([]Conversation, error)
	QueryBroadcast(ctx context.Context) ([]Message, error)
	QueryThread(ctx context.Context, userID, otherID int) ([]Message, error)
	MarkThreadRead(ctx context.Context, userID, otherID int, exec ...core.DBExecutor) error
	CountUnread(ctx context.Context, userID int) (int, error)
	QueryContacts(ctx context.Context, userID int) ([]Contact, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int) (user.User, error)
}

type Service struct {
	repo  Repository
	users UserStore
	log   core.Logger
}

func NewService(repo Repository, users UserStore, log core.Logger) *Service {
	return &Service{repo: repo, users: users, log: log}
}

// Inbox returns the user's conversations, one row per counterpart,
// most recent first.
func (svc *Service) Inbox(ctx context.Context, userID int) ([]Conversation, error) {
	convs, err := svc.repo.QueryConversations(ctx, userID)
	return convs, errors.Wrap(err, "querying conversations")
}

// Thread returns the messages exchanged with otherID, oldest first.
// otherID == user.GroupUserID selects the broadcast channel, which is
// visible to everyone and never marked read. A direct thread is marked
// read for the viewing user as a side effect.
func (svc *Service) Thread(ctx context.Context, userID, otherID int) ([]Message, error) {
	if otherID == user.GroupUserID {
		msgs, err := svc.repo.QueryBroadcast(ctx)
		return msgs, errors.Wrap(err, "querying broadcast thread")
	}

	if _, err := svc.users.GetUserByID(ctx, otherID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, ErrRecipientNotFound
		}
		return nil, errors.Wrapf(err, "looking up user %d", otherID)
	}
	msgs, err := svc.repo.QueryThread(ctx, userID, otherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying thread")
	}
	if err := svc.repo.MarkThreadRead(ctx, userID, otherID); err != nil {
		return nil, errors.Wrap(err, "marking thread read")
	}
	return msgs, nil
}

// Send records a message from sender to nm.RecipientID.
// RecipientID user.GroupUserID posts to the broadcast channel.
func (svc *Service) Send(ctx context.Context, senderID int, nm NewMessage) (Message, error) {
	if err := nm.Validate(); err != nil {
		return Message{}, err
	}
	if nm.RecipientID != user.GroupUserID {
		if _, err := svc.users.GetUserByID(ctx, nm.RecipientID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return Message{}, ErrRecipientNotFound
			}
			return Message{}, errors.Wrapf(err, "looking up recipient %d", nm.RecipientID)
		}
	}

	msg := Message{
		SenderID:    senderID,
		RecipientID: nm.RecipientID,
		Content:     nm.Content,
	}
	if err := svc.repo.InsertMessage(ctx, &msg); err != nil {
		return Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

// UnreadCount counts direct messages addressed to the user that have
// not been read yet. Broadcast messages are excluded.
func (svc *Service) UnreadCount(ctx context.Context, userID int) (int, error) {
	n, err := svc.repo.CountUnread(ctx, userID)
	return n, errors.Wrap(err, "counting unread messages")
}

// Contacts lists the users a new conversation can be started with:
// everybody but the user themselves and the broadcast sentinel.
func (svc *Service) Contacts(ctx context.Context, userID int) ([]Contact, error) {
	contacts, err := svc.repo.QueryContacts(ctx, userID)
	return contacts, errors.Wrap(err, "querying contacts")
}
