package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnStatus tracks the live state of an in-progress turn.
type TurnStatus string

const (
	StatusSpeaking   TurnStatus = "speaking"
	StatusProcessing TurnStatus = "processing"
	StatusFinal      TurnStatus = "final"
)

// Turn is a single utterance in a conversation. Non-final turns carry
// in-progress live transcription and may be superseded by a final turn
// with the same ID; once IsFinal is set the content is fixed.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	IsFinal   bool       `json:"isFinal"`
	Status    TurnStatus `json:"status,omitempty"`
}

// Session is one persisted conversation with lifecycle flags. At most
// one session is active at a time, and an archived session is read-only.
type Session struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	Messages     []Turn     `json:"messages"`
	Voice        string     `json:"voice"`
	MessageCount int        `json:"messageCount"`
	IsActive     bool       `json:"isActive"`
	IsArchived   bool       `json:"isArchived"`

	// TitleAuto reports whether Title is still the generated default.
	// The manager regenerates such titles from conversation content;
	// user-provided titles are never touched.
	TitleAuto bool `json:"titleAutoGenerated"`
}

// StoreData is the persisted root document.
type StoreData struct {
	Sessions         []Session `json:"sessions"`
	CurrentSessionID string    `json:"currentSessionId"`
	LastSaved        time.Time `json:"lastSaved"`
}

// UnmarshalJSON applies migration defaults for records written before
// the isArchived/endedAt/titleAutoGenerated fields existed: archived
// defaults to false and the title flag is inferred from the default
// title prefix.
func (s *Session) UnmarshalJSON(data []byte) error {
	type alias Session
	aux := struct {
		*alias
		IsArchived *bool `json:"isArchived"`
		TitleAuto  *bool `json:"titleAutoGenerated"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.IsArchived != nil {
		s.IsArchived = *aux.IsArchived
	} else {
		s.IsArchived = false
	}

	if aux.TitleAuto != nil {
		s.TitleAuto = *aux.TitleAuto
	} else {
		s.TitleAuto = strings.HasPrefix(s.Title, defaultTitlePrefix)
	}

	return nil
}
