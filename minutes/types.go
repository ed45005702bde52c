package minutes

import "time"

// Status tracks a meeting record through the processing pipeline.
type Status string

const (
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusGenerating   Status = "generating"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

// Stage identifies the pipeline phase a progress update belongs to.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
	StageComplete   Stage = "complete"
)

// Priority ranks an action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// AudioFileInfo describes the uploaded recording.
type AudioFileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Duration int    `json:"duration,omitempty"` // seconds
	Format   string `json:"format"`
}

// ActionItem is one task extracted from the meeting.
type ActionItem struct {
	Task      string   `json:"task"`
	Assignee  string   `json:"assignee,omitempty"`
	Deadline  string   `json:"deadline,omitempty"`
	Priority  Priority `json:"priority,omitempty"`
	Completed bool     `json:"completed"`
}

// Summary is the structured minutes document produced by the
// summarizer.
type Summary struct {
	Overview     string       `json:"overview"`
	KeyPoints    []string     `json:"keyPoints"`
	Decisions    []string     `json:"decisions"`
	ActionItems  []ActionItem `json:"actionItems"`
	Participants []string     `json:"participants,omitempty"`
	NextSteps    []string     `json:"nextSteps,omitempty"`
}

// Meeting is one processed recording with its transcript and summary.
type Meeting struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	AudioFile  AudioFileInfo `json:"audioFile"`
	Transcript string        `json:"transcript"`
	Summary    Summary       `json:"summary"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  *time.Time    `json:"updatedAt,omitempty"`
	Status     Status        `json:"status"`
}

// Progress is one pipeline progress update. Percent only moves
// forward within a single run.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"progress"`
	Message string `json:"message"`
	Err     string `json:"error,omitempty"`
}

// Transcription is the result of the speech-to-text stage.
type Transcription struct {
	Transcript string `json:"transcript"`
	Duration   int    `json:"duration"` // seconds
	Language   string `json:"language,omitempty"`
}
