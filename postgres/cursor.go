package postgres

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// cursor points at one message in a chat's history. Encoded cursors
// are opaque to clients.
type cursor struct {
	ID        string    `msgpack:"i"`
	CreatedAt time.Time `msgpack:"t"`
}

func encodeCursor(c cursor) (string, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("msgpack marshal cursor: %w", err)
	}

	return base58.Encode(b), nil
}

func decodeCursor(s string) (cursor, error) {
	var c cursor

	b := base58.Decode(s)
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return c, errs.NewInvalidArgumentError("Before", "invalid cursor")
	}

	return c, nil
}
