package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/skytalk/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionArchived = errors.New("session is archived")
	ErrTurnNotFound    = errors.New("turn not found")
)

// Manager owns the session store document. Every mutating operation
// rewrites the whole document through the repository; persistence
// failures are logged and reported through the OnSaveError hook but
// never roll back the in-memory state.
type Manager struct {
	mu sync.Mutex

	store        store.Store
	data         StoreData
	defaultVoice string

	now   func() time.Time
	newID func() string

	// OnSaveError, when set, receives every failed persist. The
	// in-memory state is already updated by the time it fires.
	OnSaveError func(error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultVoice sets the voice used when CreateSession is called
// with an empty voice ID.
func WithDefaultVoice(voice string) Option {
	return func(m *Manager) { m.defaultVoice = voice }
}

// WithClock overrides the time source. Tests use it for deterministic
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager loads the persisted session document, migrating legacy
// records, or synthesizes a fresh store with a single active session
// when nothing is persisted or the document is corrupt.
func NewManager(st store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:        st,
		defaultVoice: "ash",
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}

	data, found, err := st.Load(store.KeySessions)
	if err != nil {
		return nil, err
	}

	if found {
		if err := json.Unmarshal(data, &m.data); err != nil {
			slog.Warn("Session store is corrupt, starting fresh", "error", err)
			m.data = StoreData{}
		}
	}

	if len(m.data.Sessions) == 0 {
		fresh := m.newSession(m.defaultVoice)
		m.data.Sessions = []Session{fresh}
		m.data.CurrentSessionID = fresh.ID
		m.persist()
		slog.Info("Created initial session", "sessionID", fresh.ID)
		return m, nil
	}

	// The current ID must reference an existing session; fall back to
	// the most recent one otherwise.
	if m.indexOf(m.data.CurrentSessionID) < 0 {
		latest := m.data.Sessions[len(m.data.Sessions)-1]
		m.data.CurrentSessionID = latest.ID
		m.persist()
	}

	slog.Info("Loaded sessions", "count", len(m.data.Sessions))
	return m, nil
}

func (m *Manager) newSession(voice string) Session {
	if voice == "" {
		voice = m.defaultVoice
	}
	now := m.now()
	return Session{
		ID:         m.newID(),
		Title:      generateTitle(nil, now),
		CreatedAt:  now,
		UpdatedAt:  now,
		Messages:   []Turn{},
		Voice:      voice,
		IsActive:   true,
		IsArchived: false,
		TitleAuto:  true,
	}
}

func (m *Manager) indexOf(id string) int {
	for i := range m.data.Sessions {
		if m.data.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) current() *Session {
	if i := m.indexOf(m.data.CurrentSessionID); i >= 0 {
		return &m.data.Sessions[i]
	}
	return nil
}

// persist serializes the whole document. Callers hold m.mu.
func (m *Manager) persist() {
	m.data.LastSaved = m.now()

	raw, err := json.Marshal(m.data)
	if err == nil {
		err = m.store.Save(store.KeySessions, raw)
	}
	if err != nil {
		slog.Warn("Failed to save sessions", "error", err)
		if m.OnSaveError != nil {
			m.OnSaveError(err)
		}
	}
}

// CreateSession archives the previously active session if it was not
// already archived, then creates and selects a new active session.
func (m *Manager) CreateSession(voice string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for i := range m.data.Sessions {
		s := &m.data.Sessions[i]
		if s.IsActive && !s.IsArchived {
			s.IsArchived = true
			s.EndedAt = &now
			s.UpdatedAt = now
		}
		s.IsActive = false
	}

	fresh := m.newSession(voice)
	m.data.Sessions = append(m.data.Sessions, fresh)
	m.data.CurrentSessionID = fresh.ID
	m.persist()

	slog.Info("Created session", "sessionID", fresh.ID, "voice", fresh.Voice)
	return fresh
}

// SelectSession makes the given session current and active. Callers
// are responsible for not switching sessions while a live voice
// interaction is in progress.
func (m *Manager) SelectSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) < 0 {
		return ErrSessionNotFound
	}

	for i := range m.data.Sessions {
		m.data.Sessions[i].IsActive = m.data.Sessions[i].ID == id
	}
	m.data.CurrentSessionID = id
	m.persist()
	return nil
}

// DeleteSession removes a session. Deleting the current session
// promotes the most recently created remaining session, or synthesizes
// a fresh one when the store would become empty.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	m.data.Sessions = append(m.data.Sessions[:idx], m.data.Sessions[idx+1:]...)

	if id == m.data.CurrentSessionID {
		if len(m.data.Sessions) > 0 {
			latest := &m.data.Sessions[len(m.data.Sessions)-1]
			m.data.CurrentSessionID = latest.ID
			for i := range m.data.Sessions {
				m.data.Sessions[i].IsActive = m.data.Sessions[i].ID == latest.ID
			}
		} else {
			fresh := m.newSession(m.defaultVoice)
			m.data.Sessions = []Session{fresh}
			m.data.CurrentSessionID = fresh.ID
		}
	}

	m.persist()
	slog.Info("Deleted session", "sessionID", id)
	return nil
}

// AddMessage appends a turn to the current session. While the title is
// still the generated default, the first non-empty user turn replaces
// it with a content-derived title.
func (m *Manager) AddMessage(turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current()
	if cur == nil {
		return ErrSessionNotFound
	}
	if cur.IsArchived {
		return ErrSessionArchived
	}

	cur.Messages = append(cur.Messages, turn)
	cur.MessageCount = len(cur.Messages)
	cur.UpdatedAt = m.now()

	if cur.TitleAuto && turn.Role == RoleUser && strings.TrimSpace(turn.Text) != "" {
		cur.Title = generateTitle([]Turn{turn}, m.now())
		cur.TitleAuto = false
	}

	m.persist()
	return nil
}

// TurnPatch selects the turn fields UpdateMessage replaces.
type TurnPatch struct {
	Text    *string
	IsFinal *bool
	Status  *TurnStatus
}

// UpdateMessage replaces fields of the turn with the given ID inside
// the current session; it is how a non-final turn is promoted to final.
func (m *Manager) UpdateMessage(turnID string, patch TurnPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current()
	if cur == nil {
		return ErrSessionNotFound
	}
	if cur.IsArchived {
		return ErrSessionArchived
	}

	for i := range cur.Messages {
		if cur.Messages[i].ID != turnID {
			continue
		}
		if patch.Text != nil {
			cur.Messages[i].Text = *patch.Text
		}
		if patch.IsFinal != nil {
			cur.Messages[i].IsFinal = *patch.IsFinal
		}
		if patch.Status != nil {
			cur.Messages[i].Status = *patch.Status
		}
		cur.UpdatedAt = m.now()
		m.persist()
		return nil
	}
	return ErrTurnNotFound
}

// ClearCurrent empties the current session's turns and resets its
// title to the generated default without deleting the session.
func (m *Manager) ClearCurrent() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current()
	if cur == nil {
		return ErrSessionNotFound
	}

	cur.Messages = []Turn{}
	cur.MessageCount = 0
	cur.UpdatedAt = m.now()
	cur.Title = generateTitle(nil, m.now())
	cur.TitleAuto = true

	m.persist()
	return nil
}

// UpdateTitle is a user-driven rename; it disables title
// auto-generation for the session.
func (m *Manager) UpdateTitle(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	m.data.Sessions[idx].Title = title
	m.data.Sessions[idx].TitleAuto = false
	m.data.Sessions[idx].UpdatedAt = m.now()

	m.persist()
	return nil
}

// ArchiveCurrent marks the current session read-only and closed,
// finalizing a still-default title from the full message history.
func (m *Manager) ArchiveCurrent() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current()
	if cur == nil {
		return ErrSessionNotFound
	}

	now := m.now()
	if cur.TitleAuto {
		cur.Title = generateTitle(cur.Messages, now)
		cur.TitleAuto = false
	}
	cur.IsArchived = true
	cur.EndedAt = &now
	cur.UpdatedAt = now

	m.persist()
	slog.Info("Archived session", "sessionID", cur.ID)
	return nil
}

// CurrentSession returns a copy of the current session.
func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current()
	if cur == nil {
		return Session{}, false
	}
	return copySession(*cur), true
}

// GetSession returns a copy of the session with the given ID.
func (m *Manager) GetSession(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return Session{}, false
	}
	return copySession(m.data.Sessions[idx]), true
}

// Sessions returns copies of all sessions in creation order.
func (m *Manager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.data.Sessions))
	for _, s := range m.data.Sessions {
		out = append(out, copySession(s))
	}
	return out
}

// CurrentSessionID returns the ID of the current session.
func (m *Manager) CurrentSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.CurrentSessionID
}

func copySession(s Session) Session {
	msgs := make([]Turn, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	if s.EndedAt != nil {
		ended := *s.EndedAt
		s.EndedAt = &ended
	}
	return s
}
