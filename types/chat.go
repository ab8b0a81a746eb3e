package types

import (
	"slices"
	"time"

	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/validator"
)

type Chat struct {
	ID        string    `db:"id" json:"id"`
	IsGroup   bool      `db:"is_group" json:"isGroup"`
	CourseID  *string   `db:"course_id" json:"courseId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	UserIDs     []string `db:"user_ids,omitempty" json:"userIds,omitempty"`
	UnreadCount *int32   `db:"unread_count,omitempty" json:"unreadCount,omitempty"`
	LastMessage *Message `db:"last_message,omitempty" json:"lastMessage,omitempty"`
}

type CreateGroupChat struct {
	CourseID string
	UserIDs  []string

	loggedInUserID string
}

func (in *CreateGroupChat) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in CreateGroupChat) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *CreateGroupChat) Validate() error {
	v := validator.New()

	if in.CourseID == "" {
		v.AddError("CourseID", "Course ID is required")
	}
	if slices.Contains(in.UserIDs, "") {
		v.AddError("UserIDs", "User IDs cannot be empty")
	}

	return v.AsError()
}

type CreatePrivateChat struct {
	OtherUserID string
	CourseID    *string

	loggedInUserID string
}

func (in *CreatePrivateChat) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in CreatePrivateChat) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *CreatePrivateChat) Validate() error {
	v := validator.New()

	if in.OtherUserID == "" {
		v.AddError("OtherUserID", "Other user ID is required")
	}
	if in.OtherUserID == in.loggedInUserID {
		v.AddError("OtherUserID", "Cannot start a chat with yourself")
	}
	if in.CourseID != nil && *in.CourseID == "" {
		v.AddError("CourseID", "Course ID cannot be empty")
	}

	return v.AsError()
}

type RetrieveChat struct {
	ChatID string

	loggedInUserID string
}

func (in *RetrieveChat) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveChat) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveChat) Validate() error {
	v := validator.New()

	if in.ChatID == "" {
		v.AddError("ChatID", "Chat ID is required")
	}
	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}

	return v.AsError()
}

type ListChats struct {
	loggedInUserID string
}

func (in *ListChats) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListChats) LoggedInUserID() string {
	return in.loggedInUserID
}

type AddParticipant struct {
	ChatID string
	UserID string

	loggedInUserID string
}

func (in *AddParticipant) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in AddParticipant) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *AddParticipant) Validate() error {
	v := validator.New()

	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}
	if in.UserID == "" {
		v.AddError("UserID", "User ID is required")
	}

	return v.AsError()
}

type RemoveParticipant struct {
	ChatID string
	UserID string

	loggedInUserID string
}

func (in *RemoveParticipant) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RemoveParticipant) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RemoveParticipant) Validate() error {
	v := validator.New()

	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}
	if in.UserID == "" {
		v.AddError("UserID", "User ID is required")
	}

	return v.AsError()
}

type DeleteChat struct {
	ChatID string

	loggedInUserID string
}

func (in *DeleteChat) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in DeleteChat) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *DeleteChat) Validate() error {
	v := validator.New()

	if !id.Valid(in.ChatID) {
		v.AddError("ChatID", "Chat ID is invalid")
	}

	return v.AsError()
}
