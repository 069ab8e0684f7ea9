package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kidneystone/internal/dto"
	"kidneystone/internal/logger"
)

// respondJSON writes v as JSON with the given status code.
func respondJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// respondError writes the JSON error envelope.
func respondError(w http.ResponseWriter, logger *logger.Logger, status int, msg, detail string) {
	respondJSON(w, logger, status, dto.ErrorResponse{Error: msg, Message: detail})
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
