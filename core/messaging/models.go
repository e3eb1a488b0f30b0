package messaging

import (
	"time"

	"github.com/jbkiprop/studentos/core"
)

type Message struct {
	ID          int       `json:"id" db:"id"`
	SenderID    int       `json:"sender_id" db:"sender_id"`
	RecipientID int       `json:"recipient_id" db:"recipient_id"`
	Content     string    `json:"content" db:"content"`
	IsRead      bool      `json:"is_read" db:"is_read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// joined display fields, filled by thread queries
	SenderName string `json:"sender_name,omitempty" db:"sender_name"`
	SenderRole string `json:"sender_role,omitempty" db:"sender_role"`
}

// Conversation is one inbox row: the counterpart user and the most recent
// message exchanged with them (directly or on the broadcast channel).
type Conversation struct {
	OtherUserID   int       `json:"other_user_id" db:"other_user_id"`
	OtherUsername string    `json:"other_username" db:"other_username"`
	LastMessage   string    `json:"last_message" db:"last_message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	IsRead        bool      `json:"is_read" db:"is_read"`
	SenderID      int       `json:"sender_id" db:"sender_id"`
}

// Contact is a user the current user may start a conversation with.
type Contact struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Role     string `json:"role" db:"role"`
}

type NewMessage struct {
	RecipientID int    `json:"recipient_id"`
	Content     string `json:"content" validate:"required"`
}

func (nm *NewMessage) Validate() error {
	nm.Content = core.CleanString(nm.Content)
	return core.Validate.Struct(nm)
}
