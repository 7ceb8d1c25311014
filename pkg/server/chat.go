package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/kaimana/seachat/internal/prompt"
	"github.com/kaimana/seachat/pkg/engine"
	"github.com/kaimana/seachat/pkg/session"
)

// chatRequest is the decoded /chat body. The client sends its full view
// of the conversation; only the newest message drives the turn, the
// execution context holds the authoritative transcript.
type chatRequest struct {
	Messages  []engine.Message `json:"messages"`
	StationID string           `json:"station_id"`
}

// handleChat runs one streamed chat turn over SSE
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.checkRateLimit(s.chatLimiter, w, r) {
		return
	}

	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := validateChatBody(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	handle, err := s.registry.Resolve(r.Context(), sessionID)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	if !handle.TryBeginTurn() {
		writeMappedError(w, ErrTurnInFlight)
		return
	}
	defer handle.EndTurn()

	handle.Engine.SetInstructions(prompt.BuildInstructions(prompt.TurnParams{
		Today:     time.Now(),
		Host:      s.cfg.Server.ExternalHost,
		SessionID: sessionID,
		UploadDir: s.registry.UploadDir(sessionID),
		StationID: req.StationID,
	}))

	if err := s.store.SetLastActive(r.Context(), sessionID, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to refresh last-active timestamp")
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open event stream")
		return
	}

	latest := req.Messages[len(req.Messages)-1]
	fragments, errc := handle.Engine.Chat(r.Context(), latest)

	// The transcript is persisted exactly once per turn, after the
	// stream has fully drained, so partial replies survive faults.
	defer s.persistTranscript(sessionID, handle)

	for fragment := range fragments {
		if !s.sendEvent(sess, fragment) {
			return
		}
	}

	if fault := <-errc; fault != nil {
		s.logger.Error().Err(fault).Str("session_id", sessionID).Msg("Chat stream failed")
		s.sendEvent(sess, map[string]string{"error": fault.Error()})
	}
}

// sendEvent writes one JSON payload as an SSE data frame
func (s *Server) sendEvent(sess *sse.Session, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode stream event")
		return false
	}

	msg := &sse.Message{}
	msg.AppendData(string(data))
	if err := sess.Send(msg); err != nil {
		return false
	}
	return sess.Flush() == nil
}

func (s *Server) persistTranscript(sessionID string, handle *session.Handle) {
	// A destroy that raced this turn has already removed the durable
	// keys; writing now would resurrect the session.
	if !s.registry.Has(sessionID) {
		return
	}

	transcript, err := json.Marshal(handle.Engine.Messages())
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to encode transcript")
		return
	}
	// Request context may already be cancelled here
	if err := s.store.SetTranscript(context.Background(), sessionID, transcript); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to persist transcript")
	}
}
