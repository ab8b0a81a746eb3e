// Package presence projects the stream of channel presence events
// into live rosters. The transport owns the state of record; the
// tracker is a derivation that can be discarded and rebuilt from the
// event stream at any time, so it is never persisted.
package presence

import (
	"slices"
	"sync"
	"time"

	"github.com/studyhallhq/studyhall/realtime"
)

// defaultTTL is how long a session record stays live without a
// heartbeat. A crashed server or a dropped leave event cannot keep a
// session on the roster past it.
const defaultTTL = 90 * time.Second

// Record is one live client session on a channel.
type Record struct {
	SessionID string
	UserID    string
	Name      string
	IsTyping  bool
	JoinedAt  time.Time
	LastSeen  time.Time
}

// Member is the per-user view of a roster. A user with several open
// sessions collapses into one member: active while any session is
// live, typing while any session is typing.
type Member struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
	Sessions int    `json:"sessions"`
}

type Tracker struct {
	mu       sync.RWMutex
	ttl      time.Duration
	channels map[string]map[string]Record
	watches  map[string]func() error
}

func NewTracker() *Tracker {
	return &Tracker{
		ttl:      defaultTTL,
		channels: make(map[string]map[string]Record),
		watches:  make(map[string]func() error),
	}
}

// Watch subscribes the tracker to a channel's presence events.
// Calling it again for the same channel is a no-op. The roster only
// reflects events observed since the watch began; a fresh process
// sees everyone as away until they re-announce, which errs on the
// side of notifying.
func (t *Tracker) Watch(b realtime.Broker, channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.watches[channel]; ok {
		return nil
	}

	unsub, err := b.Subscribe(channel, func(e realtime.Event) {
		if e.Type == realtime.EventPresence && e.Presence != nil {
			t.Apply(channel, *e.Presence)
		}
	})
	if err != nil {
		return err
	}

	t.watches[channel] = unsub
	return nil
}

// Unwatch drops the channel subscription and its derived roster.
func (t *Tracker) Unwatch(channel string) error {
	t.mu.Lock()
	unsub := t.watches[channel]
	delete(t.watches, channel)
	delete(t.channels, channel)
	t.mu.Unlock()

	if unsub != nil {
		return unsub()
	}
	return nil
}

// Apply folds one presence event into the channel's roster. Stale
// records of the channel are pruned along the way.
func (t *Tracker) Apply(channel string, d realtime.PresenceData) {
	if d.SessionID == "" || d.UserID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(channel)

	now := time.Now()

	switch d.Kind {
	case realtime.PresenceJoin:
		t.put(channel, Record{
			SessionID: d.SessionID,
			UserID:    d.UserID,
			Name:      d.Name,
			IsTyping:  d.IsTyping,
			JoinedAt:  now,
			LastSeen:  now,
		})
	case realtime.PresenceLeave:
		delete(t.channels[channel], d.SessionID)
		if len(t.channels[channel]) == 0 {
			delete(t.channels, channel)
		}
	case realtime.PresenceUpdate, realtime.PresenceHeartbeat:
		rec, ok := t.channels[channel][d.SessionID]
		if !ok {
			// Event from a session we never saw join; treat it as a
			// late join so its state is not lost.
			t.put(channel, Record{
				SessionID: d.SessionID,
				UserID:    d.UserID,
				Name:      d.Name,
				IsTyping:  d.Kind == realtime.PresenceUpdate && d.IsTyping,
				JoinedAt:  now,
				LastSeen:  now,
			})
			return
		}
		if d.Kind == realtime.PresenceUpdate {
			rec.IsTyping = d.IsTyping
		}
		if d.Name != "" {
			rec.Name = d.Name
		}
		rec.LastSeen = now
		t.channels[channel][d.SessionID] = rec
	}
}

// put stores rec. Callers hold the write lock.
func (t *Tracker) put(channel string, rec Record) {
	if t.channels[channel] == nil {
		t.channels[channel] = make(map[string]Record)
	}
	t.channels[channel][rec.SessionID] = rec
}

// prune drops the channel's records whose heartbeats lapsed. Callers
// hold the write lock.
func (t *Tracker) prune(channel string) {
	for sessionID, rec := range t.channels[channel] {
		if !t.alive(rec) {
			delete(t.channels[channel], sessionID)
		}
	}
	if len(t.channels[channel]) == 0 {
		delete(t.channels, channel)
	}
}

func (t *Tracker) alive(rec Record) bool {
	return t.ttl <= 0 || time.Since(rec.LastSeen) < t.ttl
}

// Roster returns the channel's members, one entry per user, sorted
// by user ID for stable output.
func (t *Tracker) Roster(channel string) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byUser := make(map[string]Member)
	for _, rec := range t.channels[channel] {
		if !t.alive(rec) {
			continue
		}
		m, ok := byUser[rec.UserID]
		if !ok {
			m = Member{UserID: rec.UserID, Name: rec.Name}
		}
		m.Sessions++
		m.IsTyping = m.IsTyping || rec.IsTyping
		if m.Name == "" {
			m.Name = rec.Name
		}
		byUser[rec.UserID] = m
	}

	members := make([]Member, 0, len(byUser))
	for _, m := range byUser {
		members = append(members, m)
	}
	slices.SortFunc(members, func(a, b Member) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})

	return members
}

// IsActive reports whether any live session of the user is on the
// channel.
func (t *Tracker) IsActive(channel, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, rec := range t.channels[channel] {
		if rec.UserID == userID && t.alive(rec) {
			return true
		}
	}
	return false
}

// IsTyping reports whether any live session of the user on the
// channel is currently typing.
func (t *Tracker) IsTyping(channel, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, rec := range t.channels[channel] {
		if rec.UserID == userID && rec.IsTyping && t.alive(rec) {
			return true
		}
	}
	return false
}
