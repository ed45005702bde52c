package store

// Store is a keyed document repository. Each key maps to one JSON
// document that is always read and written whole; there are no partial
// updates and no cross-key transactions.
type Store interface {
	// Load returns the document for key. The second return is false
	// when no document exists for the key.
	Load(key string) ([]byte, bool, error)

	// Save replaces the document for key.
	Save(key string, data []byte) error

	// Delete removes the document for key. Deleting a missing key is
	// not an error.
	Delete(key string) error
}

// Collection keys used by the services in this repo.
const (
	KeySessions         = "voice-chat-sessions"
	KeyMeetingHistory   = "meeting-minutes-history"
	KeyTTSHistory       = "tts-history"
	KeyScenarioProgress = "aviation-scenarios-progress"
)
