package service

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNotifyTargets(t *testing.T) {
	active := map[string]bool{"bob": true}
	isActive := func(userID string) bool { return active[userID] }

	tt := []struct {
		name         string
		participants []string
		author       string
		want         []string
	}{
		{
			name:         "skips author and active users",
			participants: []string{"alice", "bob", "carol"},
			author:       "alice",
			want:         []string{"carol"},
		},
		{
			name:         "author alone",
			participants: []string{"alice"},
			author:       "alice",
			want:         nil,
		},
		{
			name:         "everyone away",
			participants: []string{"alice", "carol", "dave"},
			author:       "alice",
			want:         []string{"carol", "dave"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := notifyTargets(tc.participants, tc.author, isActive)
			if !slices.Equal(got, tc.want) {
				t.Errorf("notifyTargets() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPreviewText(t *testing.T) {
	if got := previewText("hello"); got != "hello" {
		t.Errorf("short text must pass through, got %q", got)
	}

	long := strings.Repeat("a", 500)
	got := previewText(long)
	if utf8.RuneCountInString(got) != notificationPreviewLength+1 {
		t.Errorf("preview length = %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated preview should end with ellipsis: %q", got)
	}

	// Multibyte content must not be cut mid-rune.
	emoji := strings.Repeat("é", 200)
	if !utf8.ValidString(previewText(emoji)) {
		t.Error("preview produced invalid utf8")
	}
}
