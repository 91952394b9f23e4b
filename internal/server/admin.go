package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vetintel/aigateway/internal/apierror"
	"github.com/vetintel/aigateway/internal/audit"
	"github.com/vetintel/aigateway/internal/limits"
	"github.com/vetintel/aigateway/internal/middleware"
)

type limitsReloadRequest struct {
	Rules []limitRule `json:"rules"`
}

type limitRule struct {
	Endpoint      string `json:"endpoint"`
	MaxRequests   int    `json:"max_requests"`
	WindowSeconds int    `json:"window_seconds"`
}

// handleLimitsReload replaces the active rate-limit rule set. Auth middleware
// has already run; reloads are themselves audited.
func (s *Server) handleLimitsReload(w http.ResponseWriter, r *http.Request) {
	var req limitsReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.New(apierror.KindBadRequest, "Invalid JSON"))
		return
	}

	rules := make([]limits.Rule, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, limits.Rule{
			Endpoint:    rule.Endpoint,
			MaxRequests: rule.MaxRequests,
			Window:      time.Duration(rule.WindowSeconds) * time.Second,
		})
	}

	if err := s.registry.Load(rules); err != nil {
		apierror.Write(w, apierror.New(apierror.KindBadRequest, err.Error()))
		return
	}

	actorID := ""
	if id := middleware.IdentityFrom(r.Context()); id != nil {
		actorID = id.ID
	}
	s.auditLog.Record(r.Context(), audit.Event{
		ActorID:      actorID,
		Action:       audit.ActionLimitsReload,
		ResourceType: "config",
		Details: map[string]interface{}{
			"rules": len(rules),
		},
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Limits updated"})
}
