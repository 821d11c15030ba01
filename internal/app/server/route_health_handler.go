package server

import (
	"errors"
	"net/http"

	"github.com/woedy/ProxyHome/internal/database"
)

// health reports liveness. A missing or unreachable redis degrades the
// report without failing it; only a dead database turns it into a 503.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":   "ok",
		"database": "up",
		"redis":    "up",
	}
	status := http.StatusOK

	if err := pingDatabase(); err != nil {
		payload["status"] = "down"
		payload["database"] = "down"
		status = http.StatusServiceUnavailable
	}

	switch {
	case s.redis == nil:
		payload["redis"] = "disabled"
		if payload["status"] == "ok" {
			payload["status"] = "degraded"
		}
	case s.redis.Ping(r.Context()).Err() != nil:
		payload["redis"] = "down"
		if payload["status"] == "ok" {
			payload["status"] = "degraded"
		}
	}

	writeJSON(w, status, payload)
}

func pingDatabase() error {
	if database.DB == nil {
		return errors.New("database connection was not initialised")
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
