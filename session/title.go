package session

import (
	"strings"
	"time"
)

const (
	defaultTitlePrefix = "New Chat"
	titleMaxRunes      = 30
)

// generateTitle derives a session title from its turns: the first
// non-empty user turn truncated to 30 runes, a timestamp-based label
// when only assistant turns exist, or the dated default for an empty
// conversation.
func generateTitle(turns []Turn, now time.Time) string {
	if len(turns) == 0 {
		return defaultTitlePrefix + " - " + now.Format("Jan 2, 15:04")
	}

	for _, t := range turns {
		if t.Role == RoleUser && strings.TrimSpace(t.Text) != "" {
			return truncateTitle(strings.TrimSpace(t.Text))
		}
	}

	return "Chat - " + turns[0].Timestamp.Format("Jan 2, 15:04")
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes]) + "..."
}
