package types

import "time"

type Participant struct {
	ChatID      string    `db:"chat_id"`
	UserID      string    `db:"user_id"`
	UnreadCount int32     `db:"unread_count"`
	JoinedAt    time.Time `db:"joined_at"`
}
