package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, logger *slog.Logger, code int, message string) {
	respondWithJSON(w, logger, code, errorResponse{Status: statusError, Message: message})
}
