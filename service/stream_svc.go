package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studyhallhq/studyhall/auth"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/presence"
	"github.com/studyhallhq/studyhall/realtime"
	"github.com/studyhallhq/studyhall/types"
)

// streamBuffer bounds how far a slow consumer may fall behind before
// events are dropped. Clients recover by refetching history.
const streamBuffer = 64

// heartbeatInterval is how often a viewing session re-announces
// itself so trackers on other nodes keep its presence record fresh.
const heartbeatInterval = 30 * time.Second

// stream is one subscriber's view of a channel. The mutex makes close
// safe against broker callbacks still in flight after unsubscribe;
// without it a late delivery would send on a closed channel.
type stream struct {
	mu     sync.Mutex
	closed bool
	events chan realtime.Event
}

// send delivers e unless the stream is closed. It reports false when
// the buffer was full and the event was dropped.
func (s *stream) send(e realtime.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}

	select {
	case s.events <- e:
		return true
	default:
		return false
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	close(s.events)
}

func (svc *Service) ensureChatAccess(ctx context.Context, chatID string, userID string) error {
	if !id.Valid(chatID) {
		return errs.NewInvalidArgumentError("ChatID", "Chat ID is invalid")
	}

	exists, err := svc.Postgres.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !exists {
		return errs.NewNotFoundError("chat not found")
	}
	return nil
}

// ChatStream subscribes the caller to a chat's channel for the life of
// ctx. It carries SEND broadcasts, NOTIFY fan-outs and presence
// records of the chat.
func (svc *Service) ChatStream(ctx context.Context, chatID string) (<-chan realtime.Event, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return nil, errs.Unauthenticated
	}

	if err := svc.ensureChatAccess(ctx, chatID, loggedInUser.ID); err != nil {
		return nil, err
	}

	return svc.subscribe(ctx, realtime.ChatChannel(chatID), nil)
}

// ActiveStream attaches a viewing session to the chat's active
// channel: it announces a presence join, relays the channel's events,
// and announces the leave when ctx ends. The returned session ID is
// what SetTyping updates refer to.
func (svc *Service) ActiveStream(ctx context.Context, chatID string) (string, <-chan realtime.Event, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return "", nil, errs.Unauthenticated
	}

	if err := svc.ensureChatAccess(ctx, chatID, loggedInUser.ID); err != nil {
		return "", nil, err
	}

	channel := realtime.ChatActiveChannel(chatID)
	if err := svc.Presence.Watch(svc.Broker, channel); err != nil {
		return "", nil, fmt.Errorf("watch %q: %w", channel, err)
	}

	sessionID := id.Generate()
	join := realtime.Event{
		Type: realtime.EventPresence,
		Presence: &realtime.PresenceData{
			Kind:      realtime.PresenceJoin,
			SessionID: sessionID,
			UserID:    loggedInUser.ID,
			Name:      loggedInUser.Username,
		},
	}

	events, err := svc.subscribe(ctx, channel, func() {
		leave := realtime.Event{
			Type: realtime.EventPresence,
			Presence: &realtime.PresenceData{
				Kind:      realtime.PresenceLeave,
				SessionID: sessionID,
				UserID:    loggedInUser.ID,
			},
		}
		svc.background(func(ctx context.Context) error {
			return svc.Broker.Publish(ctx, channel, leave)
		})
	})
	if err != nil {
		return "", nil, err
	}

	if err := svc.Broker.Publish(ctx, channel, join); err != nil {
		return "", nil, fmt.Errorf("announce join on %q: %w", channel, err)
	}

	// Keep the session's presence record fresh on every node. A record
	// whose heartbeats stop is expired by the tracker, so a crashed
	// server or a lost leave event cannot pin a ghost to the roster.
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hb := realtime.Event{
					Type: realtime.EventPresence,
					Presence: &realtime.PresenceData{
						Kind:      realtime.PresenceHeartbeat,
						SessionID: sessionID,
						UserID:    loggedInUser.ID,
					},
				}
				if err := svc.Broker.Publish(ctx, channel, hb); err != nil {
					svc.Logger.Error("publish heartbeat", "channel", channel, "err", err)
				}
			}
		}
	}()

	return sessionID, events, nil
}

// subscribe relays channel events into a Go channel until ctx ends.
// onDone, if set, runs right before the unsubscribe.
func (svc *Service) subscribe(ctx context.Context, channel string, onDone func()) (<-chan realtime.Event, error) {
	st := &stream{events: make(chan realtime.Event, streamBuffer)}

	unsub, err := svc.Broker.Subscribe(channel, func(e realtime.Event) {
		if !st.send(e) {
			// Consumer is stuck; dropping beats blocking the broker.
			svc.Logger.Warn("stream buffer full, dropping event", "channel", channel, "type", e.Type)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", channel, err)
	}

	go func() {
		<-ctx.Done()

		if onDone != nil {
			onDone()
		}
		if err := unsub(); err != nil {
			svc.Logger.Error("unsubscribe", "channel", channel, "err", err)
		}
		st.close()
	}()

	return st.events, nil
}

// SetTyping publishes the typing state of one viewing session.
func (svc *Service) SetTyping(ctx context.Context, chatID, sessionID string, isTyping bool) error {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	if !id.Valid(sessionID) {
		return errs.NewInvalidArgumentError("SessionID", "Session ID is invalid")
	}

	if err := svc.ensureChatAccess(ctx, chatID, loggedInUser.ID); err != nil {
		return err
	}

	ev := realtime.Event{
		Type: realtime.EventPresence,
		Presence: &realtime.PresenceData{
			Kind:      realtime.PresenceUpdate,
			SessionID: sessionID,
			UserID:    loggedInUser.ID,
			Name:      loggedInUser.Username,
			IsTyping:  isTyping,
		},
	}

	return svc.Broker.Publish(ctx, realtime.ChatActiveChannel(chatID), ev)
}

// ChatRoster returns who currently has the chat open, one entry per
// user across all of their sessions.
func (svc *Service) ChatRoster(ctx context.Context, chatID string) ([]presence.Member, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return nil, errs.Unauthenticated
	}

	if err := svc.ensureChatAccess(ctx, chatID, loggedInUser.ID); err != nil {
		return nil, err
	}

	channel := realtime.ChatActiveChannel(chatID)
	if err := svc.Presence.Watch(svc.Broker, channel); err != nil {
		return nil, fmt.Errorf("watch %q: %w", channel, err)
	}

	return svc.Presence.Roster(channel), nil
}

// CreatePushSubscription registers the caller's browser for web push
// notifications.
func (svc *Service) CreatePushSubscription(ctx context.Context, in types.CreatePushSubscription) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.CreatePushSubscription(ctx, in)
}
