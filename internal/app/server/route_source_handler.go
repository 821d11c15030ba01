package server

import (
	"net/http"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/database"
)

func listSources(w http.ResponseWriter, _ *http.Request) {
	sources, err := database.ListSources()
	if err != nil {
		writeError(w, "Failed to load sources", http.StatusInternalServerError)
		return
	}

	counts, err := database.CountProxiesBySource()
	if err != nil {
		writeError(w, "Failed to load source counts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": dto.SourceInfosFrom(sources, counts)})
}
