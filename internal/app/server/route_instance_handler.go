package server

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/woedy/ProxyHome/internal/jobs/runtime"
)

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.discoverActiveInstances(r.Context())
	if err != nil {
		writeError(w, "Failed to load instances", http.StatusInternalServerError)
		return
	}

	sort.Slice(instances, func(i, j int) bool {
		left := strings.ToLower(instances[i].Region + ":" + instances[i].Name + ":" + instances[i].ID)
		right := strings.ToLower(instances[j].Region + ":" + instances[j].Name + ":" + instances[j].ID)
		return left < right
	})

	writeJSON(w, http.StatusOK, map[string]any{"instances": instances})
}

// discoverActiveInstances reads the heartbeat keys. Without redis, or when
// no heartbeat made it there yet, the process reports itself.
func (s *Server) discoverActiveInstances(ctx context.Context) ([]runtime.ActiveInstance, error) {
	if s.redis == nil {
		return []runtime.ActiveInstance{runtime.CurrentInstance()}, nil
	}

	instances, err := runtime.ListActiveInstances(ctx, s.redis)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return []runtime.ActiveInstance{runtime.CurrentInstance()}, nil
	}
	return instances, nil
}
