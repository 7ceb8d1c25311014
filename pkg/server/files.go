package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/kaimana/seachat/pkg/engine"
	"github.com/kaimana/seachat/pkg/upload"
)

// handleHistory returns the session transcript. A live session answers
// from its execution context; otherwise the durable copy is served, so
// history survives process restarts.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if s.registry.Has(sessionID) {
		handle, err := s.registry.Resolve(r.Context(), sessionID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, handle.Engine.Messages())
		return
	}

	transcript, found, err := s.store.Transcript(r.Context(), sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read transcript")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, []engine.Message{})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(transcript)
}

// handleClear tears the session down entirely: execution context,
// durable keys, and uploaded files.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if err := s.registry.Destroy(r.Context(), sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to clear session")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "Chat history cleared"})
}

// handleUpload admits one multipart file into the session's upload
// directory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.checkRateLimit(s.uploadLimiter, w, r) {
		return
	}

	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	// Resolving keeps the session alive and owns the directory layout
	if _, err := s.registry.Resolve(r.Context(), sessionID); err != nil {
		writeMappedError(w, err)
		return
	}

	if err := s.store.SetLastActive(r.Context(), sessionID, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to refresh last-active timestamp")
	}

	artifact, err := s.guard.Admit(r.Context(), s.registry.UploadDir(sessionID), header.Filename, file)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("filename", header.Filename).
			Msg("Upload rejected")
		writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, artifact)
}

// handleListFiles lists the session's committed uploads
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	files, err := upload.List(s.registry.UploadDir(sessionID))
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to list uploads")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// handleDeleteAllFiles removes every upload in the session
func (s *Server) handleDeleteAllFiles(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	if _, err := upload.DeleteAll(s.registry.UploadDir(sessionID)); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to delete uploads")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "All files deleted successfully",
	})
}

// handleDeleteFile removes one named upload
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	filename := r.PathValue("filename")
	if err := upload.Delete(s.registry.UploadDir(sessionID), filename); err != nil {
		writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "File deleted successfully",
	})
}
