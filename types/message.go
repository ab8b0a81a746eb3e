package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/validator"
)

const MessageMaxLength = 2048

type Message struct {
	ID        string    `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chatId"`
	UserID    string    `db:"user_id" json:"userId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type SendMessage struct {
	ChatID  string
	Content string
	// MessageID is optional. Callers that retry a send after a
	// transport failure should reuse the same ID so the store can
	// dedupe instead of persisting the message twice.
	MessageID string

	loggedInUserID string
}

func (in *SendMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SendMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SendMessage) Validate() error {
	v := validator.New()

	in.Content = strings.TrimSpace(in.Content)

	if in.ChatID == "" {
		v.AddError("ChatID", "Chat ID is required")
	}
	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}
	if in.MessageID != "" && !id.Valid(in.MessageID) {
		v.AddError("MessageID", "Message ID is invalid")
	}
	if in.Content == "" {
		v.AddError("Content", "Content is required")
	}
	if utf8.RuneCountInString(in.Content) > MessageMaxLength {
		v.AddError("Content", "Content must be at most 2048 characters")
	}

	return v.AsError()
}

// SentMessage reports the outcome of a send. Duplicate means the
// message ID was already persisted by an earlier attempt and nothing
// new was written.
type SentMessage struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Duplicate bool      `db:"-" json:"duplicate"`
}

type ListMessages struct {
	ChatID   string
	PageArgs PageArgs

	loggedInUserID string
}

func (in *ListMessages) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListMessages) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListMessages) Validate() error {
	v := validator.New()

	if in.ChatID == "" {
		v.AddError("ChatID", "Chat ID is required")
	}
	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}
	if err := in.PageArgs.Validate(); err != nil {
		v.AddError("PageArgs", err.Error())
	}

	return v.AsError()
}

type MarkChatRead struct {
	ChatID string

	loggedInUserID string
}

func (in *MarkChatRead) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in MarkChatRead) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *MarkChatRead) Validate() error {
	v := validator.New()

	if in.ChatID == "" {
		v.AddError("ChatID", "Chat ID is required")
	}
	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}

	return v.AsError()
}

type RetrieveUnreadCount struct {
	ChatID string

	loggedInUserID string
}

func (in *RetrieveUnreadCount) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveUnreadCount) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveUnreadCount) Validate() error {
	v := validator.New()

	if in.ChatID == "" {
		v.AddError("ChatID", "Chat ID is required")
	}
	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}

	return v.AsError()
}
