package minutes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldError describes one field that failed summary decoding.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DecodeError is the validation failure produced by DecodeSummary. It
// names every offending field rather than just the first one.
type DecodeError struct {
	Fields []FieldError
}

func (e *DecodeError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid summary payload: " + strings.Join(msgs, "; ")
}

// rawSummary defers per-field decoding so each field can be validated
// independently.
type rawSummary struct {
	Overview     json.RawMessage `json:"overview"`
	KeyPoints    json.RawMessage `json:"keyPoints"`
	Decisions    json.RawMessage `json:"decisions"`
	ActionItems  json.RawMessage `json:"actionItems"`
	Participants json.RawMessage `json:"participants"`
	NextSteps    json.RawMessage `json:"nextSteps"`
}

type rawActionItem struct {
	Task     json.RawMessage `json:"task"`
	Assignee json.RawMessage `json:"assignee"`
	Deadline json.RawMessage `json:"deadline"`
	Priority json.RawMessage `json:"priority"`
}

// DecodeSummary parses a model-produced summary document into a typed
// Summary. Absent fields take their zero defaults; fields present with
// the wrong type fail decoding with a DecodeError naming them all.
// Action item priorities outside the known set default to medium, and
// Completed always starts false.
func DecodeSummary(data []byte) (Summary, error) {
	var raw rawSummary
	if err := json.Unmarshal(data, &raw); err != nil {
		return Summary{}, fmt.Errorf("summary is not a JSON object: %w", err)
	}

	var de DecodeError
	s := Summary{
		KeyPoints:   []string{},
		Decisions:   []string{},
		ActionItems: []ActionItem{},
	}

	s.Overview = decodeString(raw.Overview, "overview", &de)
	if points := decodeStrings(raw.KeyPoints, "keyPoints", &de); points != nil {
		s.KeyPoints = points
	}
	if decisions := decodeStrings(raw.Decisions, "decisions", &de); decisions != nil {
		s.Decisions = decisions
	}
	s.Participants = decodeStrings(raw.Participants, "participants", &de)
	s.NextSteps = decodeStrings(raw.NextSteps, "nextSteps", &de)

	if len(raw.ActionItems) > 0 && !isNull(raw.ActionItems) {
		var rawItems []rawActionItem
		if err := json.Unmarshal(raw.ActionItems, &rawItems); err != nil {
			de.Fields = append(de.Fields, FieldError{Field: "actionItems", Reason: "expected an array of objects"})
		} else {
			for i, ri := range rawItems {
				prefix := fmt.Sprintf("actionItems[%d]", i)
				item := ActionItem{
					Task:     decodeString(ri.Task, prefix+".task", &de),
					Assignee: decodeString(ri.Assignee, prefix+".assignee", &de),
					Deadline: decodeString(ri.Deadline, prefix+".deadline", &de),
					Priority: normalizePriority(decodeString(ri.Priority, prefix+".priority", &de)),
				}
				s.ActionItems = append(s.ActionItems, item)
			}
		}
	}

	if len(de.Fields) > 0 {
		return Summary{}, &de
	}
	return s, nil
}

func decodeString(raw json.RawMessage, field string, de *DecodeError) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		de.Fields = append(de.Fields, FieldError{Field: field, Reason: "expected a string"})
		return ""
	}
	return s
}

func decodeStrings(raw json.RawMessage, field string, de *DecodeError) []string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		de.Fields = append(de.Fields, FieldError{Field: field, Reason: "expected an array of strings"})
		return nil
	}
	return list
}

func normalizePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(p)
	default:
		return PriorityMedium
	}
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
