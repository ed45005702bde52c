package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpstreamRelaysErrorStatus(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer provider.Close()

	u, err := NewUpstream(UpstreamConfig{BaseURL: provider.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = u.Summarize(context.Background(), strings.Repeat("a", 60), "")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", upErr.Status)
	}
	if !strings.Contains(string(upErr.Detail), "rate limited") {
		t.Fatalf("detail = %s", upErr.Detail)
	}
}

func TestUpstreamNoCredential(t *testing.T) {
	u, err := NewUpstream(UpstreamConfig{BaseURL: "http://127.0.0.1:0", APIKey: ""})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.Summarize(context.Background(), "transcript", ""); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestUpstreamRejectsMalformedSummary(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "not json at all"}},
			},
		}
		writeJSON(w, http.StatusOK, resp)
	}))
	defer provider.Close()

	u, err := NewUpstream(UpstreamConfig{BaseURL: provider.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := u.Summarize(context.Background(), "transcript", ""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "Connection to the voice service timed out. Please try again."},
		{errors.New("dial tcp: connection refused"), "Could not reach the voice service. Please check your network."},
		{errors.New("something else broke"), "Request to the voice service failed. Please try again."},
	}
	for _, tt := range tests {
		if got := FriendlyMessage(tt.err); got != tt.want {
			t.Errorf("FriendlyMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
