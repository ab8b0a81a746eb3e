package service

import (
	"context"

	"github.com/studyhallhq/studyhall/auth"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/types"
)

func (svc *Service) CreateGroupChat(ctx context.Context, in types.CreateGroupChat) (types.Created, error) {
	var out types.Created

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.CreateGroupChat(ctx, in)
}

// PrivateChat returns the one-to-one chat between the caller and the
// other user, creating it on first use. Repeated calls converge on the
// same chat.
func (svc *Service) PrivateChat(ctx context.Context, in types.CreatePrivateChat) (types.Chat, error) {
	var out types.Chat

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	if err := in.Validate(); err != nil {
		return out, err
	}

	existing, err := svc.Postgres.PrivateChatBetween(ctx, loggedInUser.ID, in.OtherUserID)
	if err == nil {
		return existing, nil
	}
	if !errs.IsNotFound(err) {
		return out, err
	}

	created, err := svc.Postgres.CreatePrivateChat(ctx, in)
	if err != nil {
		return out, err
	}

	retrieve := types.RetrieveChat{ChatID: created.ID}
	retrieve.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Chat(ctx, retrieve)
}

func (svc *Service) Chat(ctx context.Context, in types.RetrieveChat) (types.Chat, error) {
	var out types.Chat

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Chat(ctx, in)
}

func (svc *Service) Chats(ctx context.Context, in types.ListChats) ([]types.Chat, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return nil, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Chats(ctx, in)
}

func (svc *Service) AddParticipant(ctx context.Context, in types.AddParticipant) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.AddParticipant(ctx, in)
}

func (svc *Service) RemoveParticipant(ctx context.Context, in types.RemoveParticipant) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.RemoveParticipant(ctx, in)
}

func (svc *Service) DeleteChat(ctx context.Context, in types.DeleteChat) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.DeleteChat(ctx, in)
}
