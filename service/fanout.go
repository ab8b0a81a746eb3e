package service

import "unicode/utf8"

// notificationPreviewLength caps how much of a message body leaks into
// a notification.
const notificationPreviewLength = 120

// notifyTargets picks which participants get an out-of-band
// notification for a new message: everyone except the author and
// anyone with a live session on the chat.
func notifyTargets(participants []string, authorID string, isActive func(userID string) bool) []string {
	var targets []string
	for _, userID := range participants {
		if userID == authorID {
			continue
		}
		if isActive(userID) {
			continue
		}
		targets = append(targets, userID)
	}
	return targets
}

func previewText(s string) string {
	if utf8.RuneCountInString(s) <= notificationPreviewLength {
		return s
	}

	runes := []rune(s)
	return string(runes[:notificationPreviewLength]) + "…"
}
