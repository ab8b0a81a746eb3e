// Package id generates the identifiers for chats, messages and
// viewing sessions. xid ids sort lexicographically by creation time,
// which the history cursor ordering leans on as a tiebreaker.
package id

import "github.com/rs/xid"

func Generate() string {
	return xid.New().String()
}

// Valid reports whether s parses as a non-zero id. Client-supplied
// ids (retried message sends, typing session tags) go through it.
func Valid(s string) bool {
	parsed, err := xid.FromString(s)
	return err == nil && !parsed.IsZero()
}
