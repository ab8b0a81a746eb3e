package realtime

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

// NATS is a Broker on top of a NATS connection. Channels map 1:1 to
// subjects; events are msgpack on the wire.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(conn *nats.Conn) *NATS {
	return &NATS{conn: conn}
}

func (b *NATS) Publish(_ context.Context, channel string, e Event) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("msgpack marshal event: %w", err)
	}

	if err := b.conn.Publish(channel, data); err != nil {
		return fmt.Errorf("nats publish %q: %w", channel, err)
	}

	return nil
}

func (b *NATS) Subscribe(channel string, fn func(Event)) (func() error, error) {
	sub, err := b.conn.Subscribe(channel, func(msg *nats.Msg) {
		var e Event
		if err := msgpack.Unmarshal(msg.Data, &e); err != nil {
			// Not our payload; drop it.
			return
		}
		fn(e)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %q: %w", channel, err)
	}

	return sub.Unsubscribe, nil
}
