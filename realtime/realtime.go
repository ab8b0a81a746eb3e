// Package realtime is the channel transport of the chat core: named
// pub/sub channels carrying message broadcast and presence events.
// Two implementations exist, one backed by NATS and an in-process one
// for local development and tests.
package realtime

import "context"

// Broker delivers events published on a named channel to every
// current subscriber of that channel, at-least-once. Delivery order
// matches publish order for a single publisher only; consumers must
// order by payload timestamps, not arrival.
type Broker interface {
	Publish(ctx context.Context, channel string, e Event) error
	// Subscribe registers fn for every event published on channel and
	// returns an unsubscribe func.
	Subscribe(channel string, fn func(Event)) (func() error, error)
}

// ChatChannel is the primary channel of a chat. It carries SEND and
// NOTIFY events plus presence join/leave/typing records.
func ChatChannel(chatID string) string {
	return "chat:" + chatID
}

// ChatActiveChannel is the companion presence-only channel. A client
// holds presence here exactly while the chat is its current viewport;
// absence from this roster means the user gets notified out-of-band
// instead of silently receiving the broadcast.
func ChatActiveChannel(chatID string) string {
	return ChatChannel(chatID) + ":active"
}
