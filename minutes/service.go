package minutes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/skytalk/audio"
	"github.com/mwhitfield/skytalk/store"
)

const (
	// maxHistory bounds the persisted meeting history, newest first.
	maxHistory = 20

	// MaxUploadBytes is the largest accepted recording.
	MaxUploadBytes = 100 << 20
)

var (
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooLarge      = errors.New("file size exceeds limit")
	ErrNoActionItem      = errors.New("action item index out of range")
)

// Transcriber converts a recording into text. Implemented by the
// gateway's upstream client; tests substitute fakes.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, content io.Reader) (Transcription, error)
}

// Summarizer turns a transcript into a structured Summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, title string) (Summary, error)
}

// ProcessInput is one recording submitted to the pipeline.
type ProcessInput struct {
	Name    string
	Content io.Reader
	Title   string

	// OnProgress receives pipeline updates. Optional. Percentages
	// never decrease within one run.
	OnProgress func(Progress)
}

// Service runs the minutes pipeline and owns the persisted meeting
// history.
type Service struct {
	mu          sync.Mutex
	store       store.Store
	transcriber Transcriber
	summarizer  Summarizer

	now   func() time.Time
	newID func() string
}

func NewService(st store.Store, tr Transcriber, sum Summarizer) *Service {
	return &Service{
		store:       st,
		transcriber: tr,
		summarizer:  sum,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// progressReporter clamps updates so the observed percentage is
// monotonically non-decreasing.
type progressReporter struct {
	fn   func(Progress)
	last int
}

func (p *progressReporter) report(stage Stage, percent int, message string) {
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	if p.fn != nil {
		p.fn(Progress{Stage: stage, Percent: percent, Message: message})
	}
}

func (p *progressReporter) fail(stage Stage, message, errMsg string) {
	if p.fn != nil {
		p.fn(Progress{Stage: stage, Percent: p.last, Message: message, Err: errMsg})
	}
}

// Process runs upload, transcription, and summarization for one
// recording and appends the result to the history. A stage failure
// aborts the remaining stages and returns the partial record with
// status error; the caller must re-run the whole pipeline, there is
// no per-stage retry.
func (s *Service) Process(ctx context.Context, in ProcessInput) (Meeting, error) {
	prog := &progressReporter{fn: in.OnProgress}
	prog.report(StageUpload, 10, "validating file")

	format, ok := audio.DetectFormat(in.Name)
	if !ok {
		prog.fail(StageUpload, "validation failed", ErrUnsupportedFormat.Error())
		return Meeting{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, in.Name)
	}

	content, err := io.ReadAll(io.LimitReader(in.Content, MaxUploadBytes+1))
	if err != nil {
		prog.fail(StageUpload, "read failed", err.Error())
		return Meeting{}, fmt.Errorf("failed to read audio content: %w", err)
	}
	if len(content) > MaxUploadBytes {
		prog.fail(StageUpload, "validation failed", ErrFileTooLarge.Error())
		return Meeting{}, ErrFileTooLarge
	}

	info := AudioFileInfo{Name: in.Name, Size: int64(len(content)), Format: format}
	if format == audio.FormatWAV {
		if d, err := audio.Duration(bytes.NewReader(content)); err == nil {
			info.Duration = int(d.Seconds())
		}
	}

	now := s.now()
	title := in.Title
	if title == "" {
		title = "会议记录 - " + now.Format("2006/01/02 15:04:05")
	}
	meeting := Meeting{
		ID:        s.newID(),
		Title:     title,
		AudioFile: info,
		Summary:   Summary{KeyPoints: []string{}, Decisions: []string{}, ActionItems: []ActionItem{}},
		CreatedAt: now,
		Status:    StatusUploading,
	}

	prog.report(StageTranscribe, 20, "uploading audio")
	prog.report(StageTranscribe, 30, "transcribing audio")

	tr, err := s.transcriber.Transcribe(ctx, in.Name, bytes.NewReader(content))
	if err != nil {
		return s.failed(meeting, prog, StageTranscribe, "transcription failed", err)
	}

	prog.report(StageTranscribe, 60, "transcription complete")
	meeting.Transcript = tr.Transcript
	meeting.Status = StatusTranscribing
	if tr.Duration > 0 && meeting.AudioFile.Duration == 0 {
		meeting.AudioFile.Duration = tr.Duration
	}

	prog.report(StageSummarize, 65, "generating minutes")
	summary, err := s.summarizer.Summarize(ctx, meeting.Transcript, meeting.Title)
	if err != nil {
		return s.failed(meeting, prog, StageSummarize, "summary generation failed", err)
	}

	prog.report(StageSummarize, 90, "saving minutes")
	updated := s.now()
	meeting.Summary = summary
	meeting.Status = StatusCompleted
	meeting.UpdatedAt = &updated

	if err := s.prepend(meeting); err != nil {
		// History persistence is best effort; the caller still gets
		// the completed record.
		slog.Warn("failed to persist meeting history", "error", err, "meetingID", meeting.ID)
	}

	prog.report(StageComplete, 100, "minutes ready")
	return meeting, nil
}

func (s *Service) failed(meeting Meeting, prog *progressReporter, stage Stage, message string, err error) (Meeting, error) {
	updated := s.now()
	meeting.Status = StatusError
	meeting.UpdatedAt = &updated
	prog.fail(stage, message, err.Error())
	slog.Error("minutes pipeline stage failed",
		"stage", stage,
		"meetingID", meeting.ID,
		"error", err)
	return meeting, fmt.Errorf("%s: %w", message, err)
}

func (s *Service) load() ([]Meeting, error) {
	data, found, err := s.store.Load(store.KeyMeetingHistory)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Meeting{}, nil
	}
	var meetings []Meeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		// Corrupt history starts over empty.
		slog.Warn("meeting history corrupt, starting fresh", "error", err)
		return []Meeting{}, nil
	}
	return meetings, nil
}

func (s *Service) save(meetings []Meeting) error {
	raw, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("failed to encode meeting history: %w", err)
	}
	return s.store.Save(store.KeyMeetingHistory, raw)
}

func (s *Service) prepend(meeting Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return err
	}
	meetings = append([]Meeting{meeting}, meetings...)
	if len(meetings) > maxHistory {
		meetings = meetings[:maxHistory]
	}
	return s.save(meetings)
}

// History returns the stored meetings, newest first.
func (s *Service) History() ([]Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns one meeting by id.
func (s *Service) Get(id string) (Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return Meeting{}, err
	}
	for _, m := range meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return Meeting{}, ErrMeetingNotFound
}

// UpdateTitle renames a stored meeting.
func (s *Service) UpdateTitle(id, title string) error {
	return s.update(id, func(m *Meeting) error {
		m.Title = title
		return nil
	})
}

// ToggleActionItem flips the completed flag of one action item.
func (s *Service) ToggleActionItem(id string, index int) error {
	return s.update(id, func(m *Meeting) error {
		if index < 0 || index >= len(m.Summary.ActionItems) {
			return fmt.Errorf("%w: %d", ErrNoActionItem, index)
		}
		m.Summary.ActionItems[index].Completed = !m.Summary.ActionItems[index].Completed
		return nil
	})
}

func (s *Service) update(id string, mutate func(*Meeting) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return err
	}
	for i := range meetings {
		if meetings[i].ID != id {
			continue
		}
		if err := mutate(&meetings[i]); err != nil {
			return err
		}
		updated := s.now()
		meetings[i].UpdatedAt = &updated
		return s.save(meetings)
	}
	return ErrMeetingNotFound
}

// Delete removes one meeting from the history.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meetings, err := s.load()
	if err != nil {
		return err
	}
	kept := meetings[:0]
	found := false
	for _, m := range meetings {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrMeetingNotFound
	}
	return s.save(kept)
}

// ClearAll wipes the meeting history.
func (s *Service) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(store.KeyMeetingHistory)
}
