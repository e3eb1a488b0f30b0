package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/user"
)

type messageRepository struct {
	db *DB
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

// withSender must be called with at least the read lock held.
func (repo *messageRepository) withSender(m messaging.Message) messaging.Message {
	if usr, ok := repo.db.users[m.SenderID]; ok {
		m.SenderName = usr.Username
		m.SenderRole = string(usr.Role)
	}
	return m
}

func (repo *messageRepository) InsertMessage(ctx context.Context, msg *messaging.Message, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	msg.ID = repo.db.nextPK()
	msg.CreatedAt = time.Now().UTC()
	stored := *msg
	repo.db.messages[msg.ID] = &stored
	return nil
}

func (repo *messageRepository) QueryConversations(ctx context.Context, userID int) ([]messaging.Conversation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	latest := make(map[int]*messaging.Message)
	for _, m := range repo.db.messages {
		var other int
		switch {
		case m.RecipientID == user.GroupUserID:
			other = user.GroupUserID
		case m.SenderID == userID:
			other = m.RecipientID
		case m.RecipientID == userID:
			other = m.SenderID
		default:
			continue
		}
		if cur, ok := latest[other]; !ok || m.ID > cur.ID {
			latest[other] = m
		}
	}

	var convs []messaging.Conversation
	for other, m := range latest {
		conv := messaging.Conversation{
			OtherUserID: other,
			LastMessage: m.Content,
			CreatedAt:   m.CreatedAt,
			IsRead:      m.IsRead,
			SenderID:    m.SenderID,
		}
		if usr, ok := repo.db.users[other]; ok {
			conv.OtherUsername = usr.Username
		}
		convs = append(convs, conv)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].CreatedAt.After(convs[j].CreatedAt) })
	return convs, nil
}

func (repo *messageRepository) QueryBroadcast(ctx context.Context) ([]messaging.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var msgs []messaging.Message
	for _, m := range repo.db.messages {
		if m.RecipientID == user.GroupUserID {
			msgs = append(msgs, repo.withSender(*m))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

func (repo *messageRepository) QueryThread(ctx context.Context, userID, otherID int) ([]messaging.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var msgs []messaging.Message
	for _, m := range repo.db.messages {
		if (m.SenderID == userID && m.RecipientID == otherID) ||
			(m.SenderID == otherID && m.RecipientID == userID) {
			msgs = append(msgs, repo.withSender(*m))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

func (repo *messageRepository) MarkThreadRead(ctx context.Context, userID, otherID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, m := range repo.db.messages {
		if m.RecipientID == userID && m.SenderID == otherID {
			m.IsRead = true
		}
	}
	return nil
}

func (repo *messageRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, m := range repo.db.messages {
		if m.RecipientID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *messageRepository) QueryContacts(ctx context.Context, userID int) ([]messaging.Contact, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var contacts []messaging.Contact
	for _, usr := range repo.db.users {
		if usr.ID == userID || usr.ID == user.GroupUserID {
			continue
		}
		contacts = append(contacts, messaging.Contact{ID: usr.ID, Username: usr.Username, Role: string(usr.Role)})
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Username < contacts[j].Username })
	return contacts, nil
}
