package types

import (
	"net/url"
	"time"

	"github.com/studyhallhq/studyhall/validator"
)

type PushSubscription struct {
	UserID    string    `db:"user_id"`
	Endpoint  string    `db:"endpoint"`
	P256dh    string    `db:"p256dh"`
	Auth      string    `db:"auth"`
	CreatedAt time.Time `db:"created_at"`
}

type CreatePushSubscription struct {
	Endpoint string
	P256dh   string
	Auth     string

	loggedInUserID string
}

func (in *CreatePushSubscription) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in CreatePushSubscription) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *CreatePushSubscription) Validate() error {
	v := validator.New()

	if in.Endpoint == "" {
		v.AddError("Endpoint", "Endpoint is required")
	} else if u, err := url.Parse(in.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		v.AddError("Endpoint", "Endpoint is invalid")
	}
	if in.P256dh == "" {
		v.AddError("P256dh", "P256dh key is required")
	}
	if in.Auth == "" {
		v.AddError("Auth", "Auth secret is required")
	}

	return v.AsError()
}
