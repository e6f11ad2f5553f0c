package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeLocalOnly tells the client to keep data in its local storage.
func writeLocalOnly(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, DataResponse{Data: []any{}, UseLocalStorage: true})
}

// writeServiceError maps a scoreboard error to its response. Store
// failures are logged and hidden behind msg.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, scoreboard.ErrLocalOnly):
		writeLocalOnly(w)
	case errors.Is(err, scoreboard.ErrUnknownBoard):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, scoreboard.ErrInvalidBallot):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(msg, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
