// Package gateway is the HTTP surface of the coaching backend: the
// provider proxy routes, the REST API over stored state, and the live
// transcript WebSocket.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mwhitfield/skytalk/live"
	"github.com/mwhitfield/skytalk/minutes"
	"github.com/mwhitfield/skytalk/scenario"
	"github.com/mwhitfield/skytalk/session"
	"github.com/mwhitfield/skytalk/speech"
)

// Config holds the server settings.
type Config struct {
	// Addr is the listen address.
	Addr string
}

// Deps are the collaborating services the handlers operate on.
type Deps struct {
	Sessions *session.Manager
	Minutes  *minutes.Service
	Speech   *speech.History
	Tracker  *scenario.Tracker
	Catalog  []scenario.Scenario
	Upstream *Upstream
	Hub      *live.Hub
}

// Server routes HTTP traffic to the services.
type Server struct {
	config Config
	deps   Deps
	server *http.Server
	now    func() time.Time
}

func New(cfg Config, deps Deps) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		now:    time.Now,
	}

	router := mux.NewRouter()

	// Provider proxy routes.
	router.HandleFunc("/api/meeting-minutes/transcribe", s.handleTranscribe).Methods("POST")
	router.HandleFunc("/api/meeting-minutes/generate-summary", s.handleGenerateSummary).Methods("POST")
	router.HandleFunc("/api/text-to-speech", s.handleTextToSpeech).Methods("POST")
	router.HandleFunc("/api/realtime", s.handleRealtime).Methods("POST")
	router.HandleFunc("/api/session", s.handleRealtimeSession).Methods("POST")

	// Conversation sessions.
	router.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	router.HandleFunc("/api/sessions", s.handleCreateSession).Methods("POST")
	router.HandleFunc("/api/sessions/current", s.handleCurrentSession).Methods("GET")
	router.HandleFunc("/api/sessions/current/archive", s.handleArchiveCurrent).Methods("POST")
	router.HandleFunc("/api/sessions/current/clear", s.handleClearCurrent).Methods("POST")
	router.HandleFunc("/api/sessions/current/messages", s.handleAddMessage).Methods("POST")
	router.HandleFunc("/api/sessions/current/messages/{turnId}", s.handleUpdateMessage).Methods("PATCH")
	router.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	router.HandleFunc("/api/sessions/{id}/select", s.handleSelectSession).Methods("POST")
	router.HandleFunc("/api/sessions/{id}/title", s.handleSessionTitle).Methods("PATCH")
	router.HandleFunc("/api/sessions/{id}/export", s.handleExportSession).Methods("GET")

	// Meeting minutes history and pipeline.
	router.HandleFunc("/api/meetings", s.handleListMeetings).Methods("GET")
	router.HandleFunc("/api/meetings", s.handleProcessMeeting).Methods("POST")
	router.HandleFunc("/api/meetings", s.handleClearMeetings).Methods("DELETE")
	router.HandleFunc("/api/meetings/{id}", s.handleGetMeeting).Methods("GET")
	router.HandleFunc("/api/meetings/{id}", s.handleDeleteMeeting).Methods("DELETE")
	router.HandleFunc("/api/meetings/{id}/title", s.handleMeetingTitle).Methods("PATCH")
	router.HandleFunc("/api/meetings/{id}/action-items/{index}/toggle", s.handleToggleActionItem).Methods("POST")
	router.HandleFunc("/api/meetings/{id}/export", s.handleExportMeeting).Methods("GET")

	// Speech generation history.
	router.HandleFunc("/api/text-to-speech/history", s.handleSpeechHistory).Methods("GET")
	router.HandleFunc("/api/text-to-speech/history/{id}", s.handleDeleteSpeechEntry).Methods("DELETE")

	// Training scenarios.
	router.HandleFunc("/api/scenarios", s.handleListScenarios).Methods("GET")
	router.HandleFunc("/api/scenarios/recommended", s.handleRecommendScenarios).Methods("GET")
	router.HandleFunc("/api/scenarios/progress", s.handleAllProgress).Methods("GET")
	router.HandleFunc("/api/scenarios/progress", s.handleResetAllProgress).Methods("DELETE")
	router.HandleFunc("/api/scenarios/progress/overall", s.handleOverallProgress).Methods("GET")
	router.HandleFunc("/api/scenarios/{id}/instructions", s.handleScenarioInstructions).Methods("GET")
	router.HandleFunc("/api/scenarios/{id}/start", s.handleStartScenario).Methods("POST")
	router.HandleFunc("/api/scenarios/{id}/complete", s.handleCompleteScenario).Methods("POST")
	router.HandleFunc("/api/scenarios/{id}/progress", s.handleScenarioProgress).Methods("GET")
	router.HandleFunc("/api/scenarios/{id}/stats", s.handleScenarioStats).Methods("GET")
	router.HandleFunc("/api/scenarios/{id}/progress", s.handleResetProgress).Methods("DELETE")

	if deps.Hub != nil {
		router.HandleFunc("/ws/transcript", deps.Hub.HandleTranscript)
	}

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		slog.Info("HTTP server listening", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
