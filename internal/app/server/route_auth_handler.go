package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/auth"
)

// issueToken exchanges the configured API key for a short-lived bearer
// token. The key travels in the X-API-Key header or the request body.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	if s.settings.APIKey == "" || s.settings.JWTSecret == "" {
		writeError(w, "Token auth is not configured", http.StatusServiceUnavailable)
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if key == "" {
		var payload dto.TokenRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&payload); decodeErr == nil {
			key = strings.TrimSpace(payload.APIKey)
		}
	}
	if key == "" {
		writeError(w, "Missing API key", http.StatusBadRequest)
		return
	}
	if key != s.settings.APIKey {
		writeError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := auth.IssueToken(s.settings.JWTSecret, auth.DefaultTokenLifetime)
	if err != nil {
		writeError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token, ExpiresAt: expiresAt})
}
