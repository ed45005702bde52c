package minutes

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeSummaryFull(t *testing.T) {
	payload := `{
		"overview": "Weekly sync.",
		"keyPoints": ["budget", "hiring"],
		"decisions": ["freeze travel"],
		"actionItems": [
			{"task": "draft budget", "assignee": "lee", "deadline": "2026-03-15", "priority": "high"},
			{"task": "post job ad"}
		],
		"participants": ["lee", "kim"],
		"nextSteps": ["review next week"]
	}`

	s, err := DecodeSummary([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if s.Overview != "Weekly sync." {
		t.Fatalf("overview = %q", s.Overview)
	}
	if len(s.KeyPoints) != 2 || len(s.Decisions) != 1 {
		t.Fatalf("lists: keyPoints=%v decisions=%v", s.KeyPoints, s.Decisions)
	}
	if len(s.ActionItems) != 2 {
		t.Fatalf("action items = %v", s.ActionItems)
	}
	if s.ActionItems[0].Priority != PriorityHigh {
		t.Fatalf("priority = %q", s.ActionItems[0].Priority)
	}
	// Missing priority defaults to medium, completed starts false.
	if s.ActionItems[1].Priority != PriorityMedium {
		t.Fatalf("defaulted priority = %q", s.ActionItems[1].Priority)
	}
	if s.ActionItems[0].Completed || s.ActionItems[1].Completed {
		t.Fatal("completed must start false")
	}
	if len(s.Participants) != 2 || len(s.NextSteps) != 1 {
		t.Fatalf("optional lists: %v / %v", s.Participants, s.NextSteps)
	}
}

func TestDecodeSummaryDefaultsAbsentFields(t *testing.T) {
	s, err := DecodeSummary([]byte(`{"overview": "short"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.KeyPoints == nil || s.Decisions == nil || s.ActionItems == nil {
		t.Fatal("required lists must default to empty, not nil")
	}
	if len(s.KeyPoints) != 0 || len(s.Decisions) != 0 || len(s.ActionItems) != 0 {
		t.Fatal("absent lists must be empty")
	}
	if s.Participants != nil || s.NextSteps != nil {
		t.Fatal("optional lists must stay nil when absent")
	}
}

func TestDecodeSummaryUnknownPriorityDefaults(t *testing.T) {
	s, err := DecodeSummary([]byte(`{"actionItems": [{"task": "x", "priority": "urgent"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.ActionItems[0].Priority != PriorityMedium {
		t.Fatalf("priority = %q, want medium for unknown tier", s.ActionItems[0].Priority)
	}
}

func TestDecodeSummaryRejectsWrongTypes(t *testing.T) {
	payload := `{"overview": 7, "keyPoints": "not a list", "decisions": ["ok"]}`

	_, err := DecodeSummary([]byte(payload))
	if err == nil {
		t.Fatal("expected a decode error")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err type = %T, want *DecodeError", err)
	}
	// Both offending fields are named.
	if len(de.Fields) != 2 {
		t.Fatalf("field errors = %v, want 2", de.Fields)
	}
	msg := de.Error()
	if !strings.Contains(msg, "overview") || !strings.Contains(msg, "keyPoints") {
		t.Fatalf("error message %q does not name the fields", msg)
	}
}

func TestDecodeSummaryRejectsNonObject(t *testing.T) {
	if _, err := DecodeSummary([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected an error for a non-object payload")
	}
	if _, err := DecodeSummary([]byte(`{broken`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestDecodeSummaryNullFields(t *testing.T) {
	s, err := DecodeSummary([]byte(`{"overview": null, "keyPoints": null, "participants": null}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Overview != "" || len(s.KeyPoints) != 0 || s.Participants != nil {
		t.Fatalf("null fields not defaulted: %+v", s)
	}
}
