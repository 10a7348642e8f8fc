package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error messages returned to clients.
const (
	msgNotAuthenticated = "Not authenticated"
	msgExportNotAuth    = "Not authenticated. Please login first."
	msgExportFailed     = "Failed to export authentication data"
	msgAuthURLFailed    = "Failed to generate authorization URL"
	msgBearerMissing    = "Authorization header missing or invalid. Use: Bearer <access_token>"
	msgBearerInvalid    = "Invalid or expired access token"
	msgMessageNotFound  = "Message not found"
	msgListFailed       = "Failed to fetch messages"
	msgGetFailed        = "Failed to fetch message details"
)

// errorResponse is the JSON body of every failed API call.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// successResponse wraps data for the bearer API.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}
