package minutes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mwhitfield/skytalk/store"
)

type fakeTranscriber struct {
	result Transcription
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, content io.Reader) (Transcription, error) {
	f.calls++
	io.Copy(io.Discard, content)
	if f.err != nil {
		return Transcription{}, f.err
	}
	return f.result, nil
}

type fakeSummarizer struct {
	result Summary
	err    error
	calls  int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, _ string) (Summary, error) {
	f.calls++
	if f.err != nil {
		return Summary{}, f.err
	}
	return f.result, nil
}

func newTestService(tr Transcriber, sum Summarizer) (*Service, *store.MemStore) {
	st := store.NewMemStore()
	svc := NewService(st, tr, sum)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("meeting-%d", seq)
	}
	return svc, st
}

func TestProcessHappyPath(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "we discussed the roadmap", Duration: 90, Language: "en"}}
	sum := &fakeSummarizer{result: Summary{
		Overview:  "Roadmap discussion",
		KeyPoints: []string{"Q2 priorities"},
		Decisions: []string{"ship in June"},
		ActionItems: []ActionItem{
			{Task: "write plan", Assignee: "kim", Priority: PriorityHigh},
		},
	}}
	svc, _ := newTestService(tr, sum)

	var updates []Progress
	meeting, err := svc.Process(context.Background(), ProcessInput{
		Name:    "standup.mp3",
		Content: strings.NewReader("fake audio bytes"),
		Title:   "Standup",
		OnProgress: func(p Progress) {
			updates = append(updates, p)
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if meeting.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", meeting.Status)
	}
	if meeting.Transcript != "we discussed the roadmap" {
		t.Fatalf("transcript = %q", meeting.Transcript)
	}
	if meeting.AudioFile.Duration != 90 {
		t.Fatalf("duration = %d, want 90 from the transcriber", meeting.AudioFile.Duration)
	}
	if meeting.Summary.Overview != "Roadmap discussion" {
		t.Fatalf("summary overview = %q", meeting.Summary.Overview)
	}
	if meeting.UpdatedAt == nil {
		t.Fatal("updatedAt not set on completion")
	}

	// Progress only moves forward and ends at 100.
	last := -1
	for _, p := range updates {
		if p.Percent < last {
			t.Fatalf("progress went backwards: %d after %d", p.Percent, last)
		}
		last = p.Percent
	}
	if last != 100 {
		t.Fatalf("final progress = %d, want 100", last)
	}
	if updates[len(updates)-1].Stage != StageComplete {
		t.Fatalf("final stage = %s, want complete", updates[len(updates)-1].Stage)
	}

	history, err := svc.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].ID != meeting.ID {
		t.Fatalf("history = %+v, want the processed meeting", history)
	}
}

func TestProcessRejectsUnsupportedFormat(t *testing.T) {
	tr := &fakeTranscriber{}
	svc, _ := newTestService(tr, &fakeSummarizer{})

	_, err := svc.Process(context.Background(), ProcessInput{
		Name:    "notes.txt",
		Content: strings.NewReader("text"),
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if tr.calls != 0 {
		t.Fatal("transcriber called despite validation failure")
	}
}

func TestProcessTranscribeFailureAbortsPipeline(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("upstream 500")}
	sum := &fakeSummarizer{}
	svc, _ := newTestService(tr, sum)

	var lastUpdate Progress
	meeting, err := svc.Process(context.Background(), ProcessInput{
		Name:       "standup.mp3",
		Content:    strings.NewReader("audio"),
		OnProgress: func(p Progress) { lastUpdate = p },
	})
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if meeting.Status != StatusError {
		t.Fatalf("status = %s, want error", meeting.Status)
	}
	if sum.calls != 0 {
		t.Fatal("summarizer called after transcription failed")
	}
	if lastUpdate.Err == "" {
		t.Fatal("final progress update missing error message")
	}

	history, err := svc.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatal("failed meeting was persisted to history")
	}
}

func TestProcessSummarizeFailureMarksError(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "hello"}}
	sum := &fakeSummarizer{err: errors.New("not valid JSON")}
	svc, _ := newTestService(tr, sum)

	meeting, err := svc.Process(context.Background(), ProcessInput{
		Name:    "standup.mp3",
		Content: strings.NewReader("audio"),
	})
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if meeting.Status != StatusError {
		t.Fatalf("status = %s, want error", meeting.Status)
	}
	if meeting.Transcript != "hello" {
		t.Fatal("transcript from the completed stage was lost")
	}
}

func TestProcessDefaultTitle(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "hi"}}
	svc, _ := newTestService(tr, &fakeSummarizer{})

	meeting, err := svc.Process(context.Background(), ProcessInput{
		Name:    "standup.mp3",
		Content: strings.NewReader("audio"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(meeting.Title, "会议记录 - ") {
		t.Fatalf("default title = %q", meeting.Title)
	}
}

func TestHistoryCapNewestFirst(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "hi"}}
	svc, _ := newTestService(tr, &fakeSummarizer{})

	for i := 0; i < maxHistory+5; i++ {
		_, err := svc.Process(context.Background(), ProcessInput{
			Name:    "standup.mp3",
			Content: strings.NewReader("audio"),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	history, err := svc.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != maxHistory {
		t.Fatalf("history length = %d, want %d", len(history), maxHistory)
	}
	// Newest first: the last processed meeting carries the highest
	// sequence number.
	if history[0].ID != fmt.Sprintf("meeting-%d", maxHistory+5) {
		t.Fatalf("first history entry = %s, want the newest", history[0].ID)
	}
}

func TestGetUpdateTitleToggleDelete(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "hi"}}
	sum := &fakeSummarizer{result: Summary{
		ActionItems: []ActionItem{{Task: "follow up"}},
	}}
	svc, _ := newTestService(tr, sum)

	meeting, err := svc.Process(context.Background(), ProcessInput{
		Name:    "standup.mp3",
		Content: strings.NewReader("audio"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateTitle(meeting.ID, "Renamed"); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("title = %q", got.Title)
	}

	if err := svc.ToggleActionItem(meeting.ID, 0); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.Get(meeting.ID)
	if !got.Summary.ActionItems[0].Completed {
		t.Fatal("action item not toggled")
	}
	if err := svc.ToggleActionItem(meeting.ID, 5); !errors.Is(err, ErrNoActionItem) {
		t.Fatalf("err = %v, want ErrNoActionItem", err)
	}

	if err := svc.Delete(meeting.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(meeting.ID); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("err = %v, want ErrMeetingNotFound", err)
	}
	if err := svc.Delete(meeting.ID); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("double delete err = %v, want ErrMeetingNotFound", err)
	}
}

func TestClearAll(t *testing.T) {
	tr := &fakeTranscriber{result: Transcription{Transcript: "hi"}}
	svc, _ := newTestService(tr, &fakeSummarizer{})

	if _, err := svc.Process(context.Background(), ProcessInput{
		Name:    "standup.mp3",
		Content: strings.NewReader("audio"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.ClearAll(); err != nil {
		t.Fatal(err)
	}
	history, err := svc.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatal("history not empty after ClearAll")
	}
}
