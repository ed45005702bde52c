package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExportText renders a session as a plain-text transcript.
func ExportText(s Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", s.Title)
	fmt.Fprintf(&b, "Started: %s\n", s.CreatedAt.Format(time.RFC1123))
	if s.EndedAt != nil {
		fmt.Fprintf(&b, "Ended: %s\n", s.EndedAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "Messages: %d\n\n", s.MessageCount)

	for _, turn := range s.Messages {
		speaker := "You"
		if turn.Role == RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			turn.Timestamp.Format("15:04:05"), speaker, turn.Text)
	}

	return b.String()
}

// ExportJSON renders the raw turn log as indented JSON.
func ExportJSON(s Session) ([]byte, error) {
	return json.MarshalIndent(s.Messages, "", "  ")
}

// ExportFilename builds a timestamped download name such as
// "conversation-log-2026-01-02T15-04-05.txt".
func ExportFilename(ext string, now time.Time) string {
	stamp := strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05"), ":", "-")
	return fmt.Sprintf("conversation-log-%s.%s", stamp, ext)
}
