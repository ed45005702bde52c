package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/mwhitfield/skytalk/audio"
	"github.com/mwhitfield/skytalk/minutes"
	"github.com/mwhitfield/skytalk/scenario"
	"github.com/mwhitfield/skytalk/session"
	"github.com/mwhitfield/skytalk/speech"
)

// minTranscriptChars is the shortest transcript accepted for summary
// generation.
const minTranscriptChars = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps provider-call failures onto the response:
// missing credential is a server misconfiguration, provider non-2xx
// is relayed with its detail payload, transport failures get the
// friendly classification, everything else gets the generic message.
func writeUpstreamError(w http.ResponseWriter, err error, generic string) {
	var ue *UpstreamError
	switch {
	case errors.Is(err, ErrNoCredential):
		writeError(w, http.StatusInternalServerError, ErrNoCredential.Error())
	case errors.As(err, &ue):
		slog.Error("Upstream API error", "status", ue.Status, "detail", string(ue.Detail))
		writeJSON(w, ue.Status, map[string]any{
			"error":   generic,
			"details": ue.Detail,
		})
	case strings.Contains(err.Error(), "upstream request failed"):
		slog.Error("Upstream transport error", "error", err)
		writeError(w, http.StatusBadGateway, FriendlyMessage(err))
	default:
		slog.Error("Upstream call failed", "error", err)
		writeError(w, http.StatusInternalServerError, generic)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- provider proxy routes ---

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	file, header, err := r.FormFile("audioFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer file.Close()

	if header.Size > minutes.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, "File size exceeds 100MB limit")
		return
	}
	if _, ok := audio.DetectFormat(header.Filename); !ok {
		writeError(w, http.StatusBadRequest, "Unsupported audio format. Please use mp3, m4a, wav, or webm")
		return
	}

	slog.Info("Transcribing upload",
		"file", header.Filename,
		"sizeBytes", header.Size)

	result, err := s.deps.Upstream.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		writeUpstreamError(w, err, "Failed to transcribe audio")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript   string `json:"transcript"`
		Title        string `json:"title"`
		CustomPrompt string `json:"customPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "Transcript is required and must be a string")
		return
	}
	if utf8.RuneCountInString(req.Transcript) < minTranscriptChars {
		writeError(w, http.StatusBadRequest, "Transcript is too short. Please provide a longer transcript.")
		return
	}

	summary, err := s.deps.Upstream.SummarizeWithPrompt(r.Context(), req.Transcript, req.Title, req.CustomPrompt)
	if err != nil {
		writeUpstreamError(w, err, "Failed to generate summary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]minutes.Summary{"summary": summary})
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req speech.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Text is required and must be a string")
		return
	}
	if err := req.Validate(); err != nil {
		switch {
		case errors.Is(err, speech.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "Text is required and must be a string")
		case errors.Is(err, speech.ErrTextTooLong):
			writeError(w, http.StatusBadRequest, "Text must be less than 4096 characters")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	stream, err := s.deps.Upstream.Speak(r.Context(), req)
	if err != nil {
		writeUpstreamError(w, err, "Failed to generate speech")
		return
	}
	defer stream.Close()

	if _, err := s.deps.Speech.Record(req); err != nil {
		slog.Warn("Failed to record speech history", "error", err)
	}

	filename := speech.AttachmentFilename(req.Format, s.now().UnixMilli())
	w.Header().Set("Content-Type", "audio/"+req.Format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream); err != nil {
		slog.Error("Failed to stream audio", "error", err)
	}
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	voice := r.URL.Query().Get("voice")

	offer, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read SDP offer")
		return
	}

	slog.Info("Proxying realtime negotiation", "model", model, "voice", voice)

	answer, err := s.deps.Upstream.Realtime(r.Context(), model, voice, offer)
	if err != nil {
		writeUpstreamError(w, err, "Failed to proxy realtime request")
		return
	}

	w.Header().Set("Content-Type", "application/sdp")
	w.WriteHeader(http.StatusOK)
	w.Write(answer)
}

func (s *Server) handleRealtimeSession(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Upstream.RealtimeSession(r.Context(), r.URL.Query().Get("voice"))
	if err != nil {
		writeUpstreamError(w, err, "Failed to fetch session data")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// --- conversation sessions ---

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":         s.deps.Sessions.Sessions(),
		"currentSessionId": s.deps.Sessions.CurrentSessionID(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Voice string `json:"voice"`
	}
	// An empty body means default voice.
	json.NewDecoder(r.Body).Decode(&req)

	created := s.deps.Sessions.CreateSession(req.Voice)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	current, ok := s.deps.Sessions.CurrentSession()
	if !ok {
		writeError(w, http.StatusNotFound, "No current session")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deps.Sessions.GetSession(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.DeleteSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.SelectSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	current, _ := s.deps.Sessions.CurrentSession()
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var turn session.Turn
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil || turn.ID == "" {
		writeError(w, http.StatusBadRequest, "A turn with an id is required")
		return
	}
	if err := s.deps.Sessions.AddMessage(turn); err != nil {
		if errors.Is(err, session.ErrSessionArchived) {
			writeError(w, http.StatusConflict, "Session is archived")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to add message")
		return
	}
	current, _ := s.deps.Sessions.CurrentSession()
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    *string             `json:"text"`
		IsFinal *bool               `json:"isFinal"`
		Status  *session.TurnStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message patch")
		return
	}
	err := s.deps.Sessions.UpdateMessage(mux.Vars(r)["turnId"], session.TurnPatch{
		Text:    req.Text,
		IsFinal: req.IsFinal,
		Status:  req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionArchived):
			writeError(w, http.StatusConflict, "Session is archived")
		case errors.Is(err, session.ErrTurnNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update message")
		}
		return
	}
	current, _ := s.deps.Sessions.CurrentSession()
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleClearCurrent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.ClearCurrent(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}
	current, _ := s.deps.Sessions.CurrentSession()
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleArchiveCurrent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.ArchiveCurrent(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to archive session")
		return
	}
	current, _ := s.deps.Sessions.CurrentSession()
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleSessionTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if err := s.deps.Sessions.UpdateTitle(mux.Vars(r)["id"], req.Title); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	sess, _ := s.deps.Sessions.GetSession(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deps.Sessions.GetSession(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "json":
		data, err := session.ExportJSON(sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to export session")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", session.ExportFilename("json", s.now())))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", session.ExportFilename("txt", s.now())))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, session.ExportText(sess))
	default:
		writeError(w, http.StatusBadRequest, "Unknown export format")
	}
}

// --- meeting minutes ---

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.deps.Minutes.History()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load meeting history")
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) handleProcessMeeting(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	file, header, err := r.FormFile("audioFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer file.Close()

	meeting, err := s.deps.Minutes.Process(r.Context(), minutes.ProcessInput{
		Name:    header.Filename,
		Content: file,
		Title:   r.FormValue("title"),
	})
	if err != nil {
		switch {
		case errors.Is(err, minutes.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Unsupported audio format. Please use mp3, m4a, wav, or webm")
		case errors.Is(err, minutes.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, "File size exceeds 100MB limit")
		default:
			writeUpstreamError(w, err, "Failed to process meeting")
		}
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (s *Server) handleClearMeetings(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Minutes.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear meeting history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	meeting, err := s.deps.Minutes.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Minutes.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMeetingTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if err := s.deps.Minutes.UpdateTitle(mux.Vars(r)["id"], req.Title); err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	meeting, _ := s.deps.Minutes.Get(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, meeting)
}

func (s *Server) handleToggleActionItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action item index")
		return
	}
	if err := s.deps.Minutes.ToggleActionItem(vars["id"], index); err != nil {
		if errors.Is(err, minutes.ErrNoActionItem) {
			writeError(w, http.StatusBadRequest, "Invalid action item index")
			return
		}
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}
	meeting, _ := s.deps.Minutes.Get(vars["id"])
	writeJSON(w, http.StatusOK, meeting)
}

func (s *Server) handleExportMeeting(w http.ResponseWriter, r *http.Request) {
	meeting, err := s.deps.Minutes.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Meeting not found")
		return
	}

	opts := minutes.ExportOptions{
		IncludeTranscript: r.URL.Query().Get("transcript") != "false",
	}
	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, minutes.ExportText(meeting))
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", minutes.ExportFilename(meeting)))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, minutes.ExportMarkdown(meeting, opts))
	default:
		writeError(w, http.StatusBadRequest, "Unknown export format")
	}
}

// --- speech history ---

func (s *Server) handleSpeechHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Speech.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load speech history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteSpeechEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Speech.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete speech entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- training scenarios ---

func (s *Server) findScenario(w http.ResponseWriter, r *http.Request) (scenario.Scenario, bool) {
	id := mux.Vars(r)["id"]
	sc, ok := scenario.Find(s.deps.Catalog, id)
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found")
	}
	return sc, ok
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog)
}

func (s *Server) handleRecommendScenarios(w http.ResponseWriter, r *http.Request) {
	limit := 3
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	recommended, err := s.deps.Tracker.Recommend(s.deps.Catalog, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recommended)
}

func (s *Server) handleScenarioInstructions(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"instructions": scenario.Instructions(sc),
		"opening":      scenario.Opening(sc),
	})
}

func (s *Server) handleStartScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	if err := s.deps.Tracker.Start(sc.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record training start")
		return
	}
	progress, _ := s.deps.Tracker.Progress(sc.ID)
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCompleteScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	var req struct {
		Summary        string   `json:"summary"`
		Strengths      []string `json:"strengths"`
		Improvements   []string `json:"improvements"`
		Score          int      `json:"score"`
		KeyPhrasesUsed []string `json:"keyPhrasesUsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid completion payload")
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, http.StatusBadRequest, "Score must be between 0 and 100")
		return
	}
	err := s.deps.Tracker.Complete(sc.ID, scenario.CompletionInput{
		Summary:        req.Summary,
		Strengths:      req.Strengths,
		Improvements:   req.Improvements,
		Score:          req.Score,
		KeyPhrasesUsed: req.KeyPhrasesUsed,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record training completion")
		return
	}
	progress, _ := s.deps.Tracker.Progress(sc.ID)
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleScenarioProgress(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	progress, err := s.deps.Tracker.Progress(sc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleScenarioStats(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	stats, err := s.deps.Tracker.Stats(sc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.findScenario(w, r)
	if !ok {
		return
	}
	if err := s.deps.Tracker.Reset(sc.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAllProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tracker.ResetAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAllProgress(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Tracker.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleOverallProgress(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Tracker.Overall()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
