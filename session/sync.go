package session

import (
	"log/slog"
	"sync"
)

// defaultSyncWindow bounds the processed-id set so long sessions do
// not grow it without limit; the oldest ids are evicted first.
const defaultSyncWindow = 512

// TranscriptSync reconciles a push-based stream of turn fragments from
// the live voice channel into the Manager, forwarding each finalized
// turn at most once per session selection. Fragments for an archived
// session are dropped entirely, so stale channel output cannot leak
// into a closed conversation.
type TranscriptSync struct {
	mu sync.Mutex

	mgr    *Manager
	window int

	sessionID string
	seen      map[string]struct{}
	order     []string
}

func NewTranscriptSync(mgr *Manager) *TranscriptSync {
	return &TranscriptSync{
		mgr:    mgr,
		window: defaultSyncWindow,
		seen:   make(map[string]struct{}),
	}
}

// Push offers one turn fragment to the filter. It returns true when
// the turn was forwarded to the session manager.
func (t *TranscriptSync) Push(turn Turn) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.mgr.CurrentSession()
	if !ok {
		return false, ErrSessionNotFound
	}

	// A session switch invalidates the processed set: the same turn id
	// from a new channel instance must be deliverable again.
	if cur.ID != t.sessionID {
		t.sessionID = cur.ID
		t.seen = make(map[string]struct{})
		t.order = t.order[:0]
	}

	if cur.IsArchived {
		slog.Debug("Dropping turn for archived session",
			"sessionID", cur.ID,
			"turnID", turn.ID)
		return false, nil
	}

	if !turn.IsFinal {
		return false, nil
	}

	if _, dup := t.seen[turn.ID]; dup {
		return false, nil
	}

	if err := t.mgr.AddMessage(turn); err != nil {
		if err == ErrSessionArchived {
			return false, nil
		}
		return false, err
	}

	t.remember(turn.ID)
	return true, nil
}

func (t *TranscriptSync) remember(id string) {
	if len(t.order) >= t.window {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.seen, oldest)
	}
	t.seen[id] = struct{}{}
	t.order = append(t.order, id)
}

// Reset clears the processed-id set explicitly, independent of a
// session switch.
func (t *TranscriptSync) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = ""
	t.seen = make(map[string]struct{})
	t.order = t.order[:0]
}
