package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	applog "salesdash/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Something went wrong"})
}

func writeMissingMonth(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Month parameter is required"})
}
