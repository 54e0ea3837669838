package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

// writeError answers with {"error": msg}, the shape of business failures.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, map[string]string{"error": msg}, status)
}

// writeDetail answers with {"detail": msg}, the shape of framework failures
// such as authentication and missing resources.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, map[string]string{"detail": msg}, status)
}

// writeFields answers 400 with per-field messages.
func writeFields(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, fields, http.StatusBadRequest)
}

func notFound(w http.ResponseWriter) {
	writeDetail(w, http.StatusNotFound, "Not found.")
}

func internalError(w http.ResponseWriter, msg string, err error) {
	logger.Error(msg, slog.Any("err", err))
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}
