package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kaimana/seachat/pkg/upload"
)

// ErrTurnInFlight is returned when a second chat turn arrives while the
// session's execution context is already streaming one.
var ErrTurnInFlight = errors.New("a chat turn is already in progress for this session")

// errorBody is the JSON shape of every non-2xx response
type errorBody struct {
	Detail string `json:"detail"`
}

// statusFor maps a pipeline error onto an HTTP status code. The upload
// quota is a rate-style rejection (429) and containment failures are
// access denials (403); content rejections, size included, are plain
// bad requests.
func statusFor(err error) int {
	switch {
	case errors.Is(err, upload.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, upload.ErrUnsafeFilename):
		return http.StatusForbidden
	case errors.Is(err, upload.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, upload.ErrExtensionNotAllowed),
		errors.Is(err, upload.ErrExecutableContent),
		errors.Is(err, upload.ErrInfected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeMappedError picks the status from the error itself. Internal
// failures get a generic detail string; client errors echo the reason.
func writeMappedError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "Internal server error"
	}
	writeError(w, status, detail)
}
