package types

import (
	"strings"
	"testing"

	"github.com/studyhallhq/studyhall/id"
)

func TestSendMessage_Validate(t *testing.T) {
	chatID := id.Generate()

	tt := []struct {
		name    string
		in      SendMessage
		wantErr bool
	}{
		{
			name: "ok",
			in:   SendMessage{ChatID: chatID, Content: "hello"},
		},
		{
			name: "ok with message id",
			in:   SendMessage{ChatID: chatID, Content: "hello", MessageID: id.Generate()},
		},
		{
			name:    "missing chat id",
			in:      SendMessage{Content: "hello"},
			wantErr: true,
		},
		{
			name:    "bad chat id",
			in:      SendMessage{ChatID: "not-an-id", Content: "hello"},
			wantErr: true,
		},
		{
			name:    "bad message id",
			in:      SendMessage{ChatID: chatID, Content: "hello", MessageID: "nope"},
			wantErr: true,
		},
		{
			name:    "empty content",
			in:      SendMessage{ChatID: chatID},
			wantErr: true,
		},
		{
			name:    "whitespace content",
			in:      SendMessage{ChatID: chatID, Content: " \n\t "},
			wantErr: true,
		},
		{
			name: "single rune",
			in:   SendMessage{ChatID: chatID, Content: "k"},
		},
		{
			name: "exactly max length",
			in:   SendMessage{ChatID: chatID, Content: strings.Repeat("é", MessageMaxLength)},
		},
		{
			name:    "over max length",
			in:      SendMessage{ChatID: chatID, Content: strings.Repeat("é", MessageMaxLength+1)},
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if gotErr := err != nil; gotErr != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSendMessage_ValidateTrims(t *testing.T) {
	in := SendMessage{ChatID: id.Generate(), Content: "  hello  "}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Content != "hello" {
		t.Errorf("content not trimmed: %q", in.Content)
	}
}
