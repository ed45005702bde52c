package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mwhitfield/skytalk/session"
	"github.com/mwhitfield/skytalk/store"
)

func newTestHub(t *testing.T) (*Hub, *session.Manager) {
	t.Helper()
	mgr, err := session.NewManager(store.NewMemStore())
	if err != nil {
		t.Fatal(err)
	}
	return NewHub(session.NewTranscriptSync(mgr)), mgr
}

func TestHubCommitsFinalTurn(t *testing.T) {
	hub, mgr := newTestHub(t)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleTranscript))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	turn := session.Turn{
		ID:        "t1",
		Role:      session.RoleUser,
		Text:      "Hello there",
		IsFinal:   true,
		Timestamp: time.Now(),
	}
	frame, _ := json.Marshal(Frame{Type: "turn", Turn: turn})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	// The committed frame comes back on the same connection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var got Frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "turn.committed" || got.Turn.ID != "t1" {
		t.Fatalf("frame = %+v", got)
	}

	current, ok := mgr.CurrentSession()
	if !ok {
		t.Fatal("no current session")
	}
	if len(current.Messages) != 1 || current.Messages[0].ID != "t1" {
		t.Fatalf("session messages = %+v", current.Messages)
	}
}

func TestHubIgnoresDuplicateAndNonFinal(t *testing.T) {
	hub, mgr := newTestHub(t)

	fragment, _ := json.Marshal(Frame{Type: "turn", Turn: session.Turn{
		ID: "t1", Role: session.RoleUser, Text: "partial", IsFinal: false, Timestamp: time.Now(),
	}})
	final, _ := json.Marshal(Frame{Type: "turn", Turn: session.Turn{
		ID: "t1", Role: session.RoleUser, Text: "full text", IsFinal: true, Timestamp: time.Now(),
	}})

	hub.handleFrame(fragment)
	hub.handleFrame(final)
	hub.handleFrame(final)
	hub.handleFrame([]byte("{malformed"))

	current, _ := mgr.CurrentSession()
	if len(current.Messages) != 1 {
		t.Fatalf("messages = %d, want exactly one committed turn", len(current.Messages))
	}
	if current.Messages[0].Text != "full text" {
		t.Fatalf("text = %q", current.Messages[0].Text)
	}
}
