package minutes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInboxProcessesDroppedRecording(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{result: Transcription{Transcript: "standup notes", Duration: 30}}
	sum := &fakeSummarizer{result: Summary{Overview: "Standup"}}
	svc, _ := newTestService(tr, sum)

	inbox, err := NewInbox(InboxConfig{Dir: dir, Workers: 1}, svc)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := inbox.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "standup.mp3"), []byte("bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		history, err := svc.History()
		if err != nil {
			t.Fatal(err)
		}
		if len(history) == 1 {
			if history[0].Transcript != "standup notes" {
				t.Fatalf("meeting = %+v", history[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dropped recording was never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := inbox.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
}

func TestInboxStopWithEventsInFlight(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{result: Transcription{Transcript: "x"}}
	sum := &fakeSummarizer{result: Summary{}}
	svc, _ := newTestService(tr, sum)

	inbox, err := NewInbox(InboxConfig{Dir: dir, Workers: 1}, svc)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := inbox.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// Shut down while create events are still being delivered. The
	// watcher goroutine must be gone before the queue closes or its
	// sends would panic.
	for i := 0; i < 50; i++ {
		name := filepath.Join(dir, fmt.Sprintf("clip-%d.mp3", i))
		if err := os.WriteFile(name, []byte("bytes"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := inbox.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
}
