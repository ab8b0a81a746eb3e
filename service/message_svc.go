package service

import (
	"context"
	"fmt"

	"github.com/studyhallhq/studyhall/auth"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/realtime"
	"github.com/studyhallhq/studyhall/types"
	"golang.org/x/sync/errgroup"
)

// SendMessage persists a message, bumps unread counters for the other
// participants and fans the event out: a SEND broadcast to everyone on
// the chat channel, and a NOTIFY plus a web push for participants with
// no live session. Broadcasting happens in the background; the send
// itself succeeds as soon as the message is durable.
func (svc *Service) SendMessage(ctx context.Context, in types.SendMessage) (types.SentMessage, error) {
	var out types.SentMessage

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	out, err := svc.Postgres.CreateMessage(ctx, in)
	if err != nil {
		return out, err
	}

	if !out.Duplicate {
		messagesSent.Inc()
	}

	// Re-broadcast duplicates too; the retried send most likely means
	// the first broadcast never reached the client.
	svc.background(func(ctx context.Context) error {
		ev := realtime.Event{
			Type: realtime.EventSend,
			Message: &realtime.MessageData{
				Content:   in.Content,
				UserID:    loggedInUser.ID,
				CreatedAt: out.CreatedAt,
			},
		}
		if err := svc.Broker.Publish(ctx, realtime.ChatChannel(in.ChatID), ev); err != nil {
			broadcastFailures.Inc()
			return fmt.Errorf("broadcast message %q: %w", out.ID, err)
		}
		return nil
	})

	if !out.Duplicate {
		svc.background(func(ctx context.Context) error {
			return svc.notifyRecipients(ctx, in.ChatID, loggedInUser, in.Content)
		})
	}

	return out, nil
}

// notifyRecipients tells participants without a live chat session
// about a new message. The realtime NOTIFY reaches sessions elsewhere
// in the app; the web push reaches closed tabs. Individual push
// failures never abort the fan-out.
func (svc *Service) notifyRecipients(ctx context.Context, chatID string, author types.User, content string) error {
	activeChannel := realtime.ChatActiveChannel(chatID)
	if err := svc.Presence.Watch(svc.Broker, activeChannel); err != nil {
		return fmt.Errorf("watch %q: %w", activeChannel, err)
	}

	participants, err := svc.Postgres.ParticipantUserIDs(ctx, chatID)
	if err != nil {
		return fmt.Errorf("participants of %q: %w", chatID, err)
	}

	targets := notifyTargets(participants, author.ID, func(userID string) bool {
		return svc.Presence.IsActive(activeChannel, userID)
	})
	if len(targets) == 0 {
		return nil
	}

	preview := previewText(content)
	ev := realtime.Event{
		Type: realtime.EventNotify,
		Notify: &realtime.NotifyData{
			User:    author.Username,
			Content: preview,
		},
	}
	if err := svc.Broker.Publish(ctx, realtime.ChatChannel(chatID), ev); err != nil {
		notifyFailures.Inc()
		return fmt.Errorf("broadcast notify on %q: %w", chatID, err)
	}

	if svc.Push == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, userID := range targets {
		g.Go(func() error {
			if err := svc.Push.Dispatch(gctx, userID, author.Username, preview); err != nil {
				notifyFailures.Inc()
				svc.Logger.Error("push dispatch", "user", userID, "err", err)
			}
			// One unreachable push endpoint must not stop the rest.
			return nil
		})
	}

	return g.Wait()
}

// Messages returns a page of chat history, oldest first within the
// page, and marks the chat read for the caller.
func (svc *Service) Messages(ctx context.Context, in types.ListMessages) (types.Page[types.Message], error) {
	var out types.Page[types.Message]

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Messages(ctx, in)
}

// MarkChatRead zeroes the caller's unread counter. Idempotent.
func (svc *Service) MarkChatRead(ctx context.Context, in types.MarkChatRead) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.MarkChatRead(ctx, in)
}

func (svc *Service) UnreadCount(ctx context.Context, in types.RetrieveUnreadCount) (int32, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return 0, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.UnreadCount(ctx, in)
}
