package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/user"
)

type messageRepository struct {
	exec core.DBExecutor
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(exec core.DBExecutor) *messageRepository {
	return &messageRepository{exec: exec}
}

func (repo messageRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo messageRepository) InsertMessage(ctx context.Context, msg *messaging.Message, exec ...core.DBExecutor) error {
	query := `
INSERT INTO message (sender_id, recipient_id, content)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	rows, err := repo.getExec(exec).QueryxContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Content)
	if err != nil {
		return errors.Wrap(err, "inserting message")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&msg.ID, &msg.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting message")
		}
	}
	return errors.Wrap(rows.Err(), "inserting message")
}

// QueryConversations folds the user's messages into one row per counterpart
// (the broadcast channel counts as a counterpart), newest exchange first.
func (repo messageRepository) QueryConversations(ctx context.Context, userID int) ([]messaging.Conversation, error) {
	query := `
SELECT DISTINCT ON (other_user_id)
       other_user_id, u.username AS other_username,
       m.content AS last_message, m.created_at, m.is_read, m.sender_id
FROM (
    SELECT *, CASE WHEN recipient_id = $2 THEN $2
                   WHEN sender_id = $1 THEN recipient_id
                   ELSE sender_id END AS other_user_id
    FROM message
    WHERE sender_id = $1 OR recipient_id = $1 OR recipient_id = $2
) m
JOIN user_account u ON u.id = m.other_user_id
ORDER BY other_user_id, m.created_at DESC`
	rows, err := repo.exec.QueryxContext(ctx, query, userID, user.GroupUserID)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	defer func() { _ = rows.Close() }()

	var convs []messaging.Conversation
	for rows.Next() {
		var c messaging.Conversation
		if err = rows.StructScan(&c); err != nil {
			return nil, errors.Wrap(err, "scanning conversation")
		}
		convs = append(convs, c)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}

	// DISTINCT ON forces ordering by counterpart; re-sort by recency
	for i := 1; i < len(convs); i++ {
		for j := i; j > 0 && convs[j].CreatedAt.After(convs[j-1].CreatedAt); j-- {
			convs[j], convs[j-1] = convs[j-1], convs[j]
		}
	}
	return convs, nil
}

const messageCols = `
m.id, m.sender_id, m.recipient_id, m.content, m.is_read, m.created_at,
u.username AS sender_name, u.role AS sender_role`

func (repo messageRepository) QueryBroadcast(ctx context.Context) ([]messaging.Message, error) {
	query := `SELECT ` + messageCols + `
FROM message m
JOIN user_account u ON u.id = m.sender_id
WHERE m.recipient_id = $1
ORDER BY m.created_at`
	var msgs []messaging.Message
	err := repo.exec.SelectContext(ctx, &msgs, query, user.GroupUserID)
	return msgs, errors.Wrap(err, "querying broadcast messages")
}

func (repo messageRepository) QueryThread(ctx context.Context, userID, otherID int) ([]messaging.Message, error) {
	query := `SELECT ` + messageCols + `
FROM message m
JOIN user_account u ON u.id = m.sender_id
WHERE (m.sender_id = $1 AND m.recipient_id = $2)
   OR (m.sender_id = $2 AND m.recipient_id = $1)
ORDER BY m.created_at`
	var msgs []messaging.Message
	err := repo.exec.SelectContext(ctx, &msgs, query, userID, otherID)
	return msgs, errors.Wrap(err, "querying thread")
}

func (repo messageRepository) MarkThreadRead(ctx context.Context, userID, otherID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE message SET is_read = true WHERE recipient_id = $1 AND sender_id = $2`, userID, otherID)
	return errors.Wrap(err, "marking thread read")
}

func (repo messageRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := repo.exec.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM message WHERE recipient_id = $1 AND NOT is_read`, userID)
	return count, errors.Wrap(err, "counting unread messages")
}

func (repo messageRepository) QueryContacts(ctx context.Context, userID int) ([]messaging.Contact, error) {
	query := `
SELECT id, username, role
FROM user_account
WHERE id NOT IN ($1, $2)
ORDER BY username`
	var contacts []messaging.Contact
	err := repo.exec.SelectContext(ctx, &contacts, query, userID, user.GroupUserID)
	return contacts, errors.Wrap(err, "querying contacts")
}
