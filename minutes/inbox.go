package minutes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mwhitfield/skytalk/audio"
)

// InboxConfig configures the recordings inbox.
type InboxConfig struct {
	// Dir is the directory watched for dropped recordings.
	Dir string

	// Workers is the number of concurrent pipeline runs.
	Workers int
}

// Inbox watches a directory and feeds new recordings through the
// minutes pipeline. Dropping an audio file into the directory is
// equivalent to uploading it through the gateway.
type Inbox struct {
	config  InboxConfig
	service *Service

	watcher     *fsnotify.Watcher
	queue       chan string
	workers     sync.WaitGroup
	watcherDone chan struct{}
}

func NewInbox(cfg InboxConfig, svc *Service) (*Inbox, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Inbox{
		config:      cfg,
		service:     svc,
		watcher:     watcher,
		queue:       make(chan string, 100),
		watcherDone: make(chan struct{}),
	}, nil
}

// Start begins watching the inbox and launches the worker pool.
func (in *Inbox) Start(ctx context.Context) error {
	if err := in.watcher.Add(in.config.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	for i := 0; i < in.config.Workers; i++ {
		in.workers.Add(1)
		go in.worker(ctx)
	}
	go in.watchFiles(ctx)

	slog.Info("Watching recordings inbox",
		"path", in.config.Dir,
		"workers", in.config.Workers)
	return nil
}

// Stop shuts the watcher down, then drains the queue. The watcher
// goroutine must be joined before the queue is closed: it is the only
// sender, and a send to a closed channel panics.
func (in *Inbox) Stop(ctx context.Context) error {
	if err := in.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close inbox watcher: %w", err)
	}
	<-in.watcherDone

	close(in.queue)

	done := make(chan struct{})
	go func() {
		in.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("inbox shutdown timed out")
	}
	return nil
}

func (in *Inbox) watchFiles(ctx context.Context) {
	defer close(in.watcherDone)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if err := in.handleFSEvent(event); err != nil {
				slog.Error("Failed to handle inbox event",
					"error", err,
					"event", event)
			}

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Inbox watcher error", "error", err)
		}
	}
}

func (in *Inbox) handleFSEvent(event fsnotify.Event) error {
	// Partial writes land under a temp name and are renamed when
	// complete, so only finished files are picked up.
	if strings.HasSuffix(event.Name, ".tmp") {
		return nil
	}
	if event.Op != fsnotify.Create && event.Op != fsnotify.Rename {
		return nil
	}

	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return nil
	}

	name := filepath.Base(event.Name)
	if _, ok := audio.DetectFormat(name); !ok {
		slog.Warn("Ignoring non-audio file in inbox", "file", name)
		return nil
	}

	select {
	case in.queue <- event.Name:
		slog.Info("Queued recording for processing", "file", name)
	default:
		return fmt.Errorf("inbox queue is full")
	}
	return nil
}

func (in *Inbox) worker(ctx context.Context) {
	slog.Debug("Inbox worker starting")
	defer func() {
		slog.Debug("Inbox worker shutting down")
		in.workers.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case path, ok := <-in.queue:
			if !ok {
				return
			}
			if err := in.processFile(ctx, path); err != nil {
				slog.Error("Failed to process inbox recording",
					"error", err,
					"file", path)
			}
		}
	}
}

func (in *Inbox) processFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer file.Close()

	meeting, err := in.service.Process(ctx, ProcessInput{
		Name:    filepath.Base(path),
		Content: file,
	})
	if err != nil {
		return err
	}

	slog.Info("Processed inbox recording",
		"file", filepath.Base(path),
		"meetingID", meeting.ID,
		"transcriptChars", len(meeting.Transcript))
	return nil
}
