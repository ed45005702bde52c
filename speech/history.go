package speech

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/skytalk/store"
)

const (
	// maxHistory bounds the stored generations, newest first.
	maxHistory = 10

	titleMaxChars = 50
)

// Config records the synthesis settings of one generation.
type Config struct {
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed"`
	Format string  `json:"format"`
}

// Entry is one stored generation. The audio itself is not kept, only
// the text and settings needed to regenerate it.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Config    Config    `json:"config"`
	CreatedAt time.Time `json:"createdAt"`
}

// History is the persisted list of recent generations.
type History struct {
	mu    sync.Mutex
	store store.Store
	now   func() time.Time
	newID func() string
}

func NewHistory(st store.Store) *History {
	return &History{store: st, now: time.Now, newID: uuid.NewString}
}

// Record stores a successful generation and returns the new entry.
func (h *History) Record(req Request) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := Entry{
		ID:    h.newID(),
		Title: entryTitle(req.Text),
		Text:  req.Text,
		Config: Config{
			Voice:  req.Voice,
			Speed:  req.Speed,
			Format: req.Format,
		},
		CreatedAt: h.now(),
	}

	entries, err := h.load()
	if err != nil {
		return Entry{}, err
	}
	entries = append([]Entry{entry}, entries...)
	if len(entries) > maxHistory {
		entries = entries[:maxHistory]
	}
	return entry, h.save(entries)
}

// List returns the stored generations, newest first.
func (h *History) List() ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Delete removes one entry by id. Unknown ids are a no-op.
func (h *History) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return h.save(kept)
}

// Clear wipes the history.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Delete(store.KeyTTSHistory)
}

func (h *History) load() ([]Entry, error) {
	data, found, err := h.store.Load(store.KeyTTSHistory)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("speech history corrupt, starting fresh", "error", err)
		return []Entry{}, nil
	}
	return entries, nil
}

func (h *History) save(entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode speech history: %w", err)
	}
	return h.store.Save(store.KeyTTSHistory, raw)
}

func entryTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxChars {
		return text
	}
	return string(runes[:titleMaxChars]) + "..."
}
