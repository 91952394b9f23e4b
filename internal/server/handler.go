package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/vetintel/aigateway/internal/apierror"
	"github.com/vetintel/aigateway/internal/audit"
	"github.com/vetintel/aigateway/internal/circuitbreaker"
	"github.com/vetintel/aigateway/internal/gemini"
	"github.com/vetintel/aigateway/internal/limiter"
	"github.com/vetintel/aigateway/internal/middleware"
	"github.com/vetintel/aigateway/internal/reliability"
)

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// handleAIQuery is the gateway pipeline: validate -> rate limit -> audit
// attempt -> compose -> upstream -> audit outcome. Auth already ran as
// middleware. Any stage short-circuits with its taxonomy error.
func (s *Server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cfg.GeminiAPIKey == "" {
		log.Printf("ai-query: missing upstream API key")
		apierror.Write(w, apierror.New(apierror.KindInternal, "API configuration error"))
		return
	}

	id := middleware.IdentityFrom(ctx)
	if id == nil {
		apierror.Write(w, apierror.New(apierror.KindUnauthenticated, "Unauthorized"))
		return
	}
	clientIP := clientAddress(r)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.New(apierror.KindBadRequest, "Query is required and must be a string"))
		return
	}

	if err := s.validator.Query(ctx, req.Query, id.ID, clientIP); err != nil {
		apierror.Write(w, err)
		return
	}

	decision := s.checkRateLimit(r, id.ID, clientIP)
	if !decision.Allowed {
		apierror.WriteRateLimited(w,
			"Rate limit exceeded. Please wait before making another request.",
			decision.ResetAt.UnixMilli())
		return
	}

	s.auditLog.Record(ctx, audit.Event{
		ActorID:      id.ID,
		Action:       audit.ActionSearchQuery,
		ResourceType: "ai_search",
		Details: map[string]interface{}{
			"queryLength":   len(req.Query),
			"ip":            clientIP,
			"promptVersion": s.composer.Version(),
		},
	})

	fullPrompt := s.composer.Compose(req.Query)

	answer, err := s.generate(ctx, fullPrompt)
	if err != nil {
		s.writeUpstreamError(ctx, w, err, id.ID)
		return
	}

	s.auditLog.Record(ctx, audit.Event{
		ActorID:      id.ID,
		Action:       audit.ActionSearchSuccess,
		ResourceType: "ai_search",
		Details: map[string]interface{}{
			"responseLength": len(answer),
			"queryLength":    len(req.Query),
		},
	})

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queryResponse{Response: answer})
}

// checkRateLimit consults the record store and fails open when it is
// unreachable: infrastructure failure must not lock out legitimate traffic.
func (s *Server) checkRateLimit(r *http.Request, userID, clientIP string) limiter.Decision {
	rule := s.registry.Lookup(endpointName)

	decision, err := s.store.Allow(r.Context(), userID, endpointName, clientIP, rule)
	if err != nil {
		if reliability.ShouldAllow(reliability.FailOpen, err) {
			log.Printf("rate limiter unavailable (fail open): %v", err)
			return limiter.Decision{Allowed: true, Remaining: rule.MaxRequests}
		}
	}
	return decision
}

// generate performs the single upstream call, behind the shared circuit
// breaker when one is configured.
func (s *Server) generate(ctx context.Context, fullPrompt string) (string, error) {
	if s.breaker == nil {
		return s.ai.Generate(ctx, fullPrompt)
	}

	var answer string
	err := s.breaker.Execute(ctx, "gemini", func() error {
		var genErr error
		answer, genErr = s.ai.Generate(ctx, fullPrompt)
		return genErr
	})
	return answer, err
}

// writeUpstreamError maps upstream failures onto the taxonomy and records
// the ai_api_error event for non-success replies. The request was already
// counted against the caller's window; a failed upstream call still spends
// quota.
func (s *Server) writeUpstreamError(ctx context.Context, w http.ResponseWriter, err error, actorID string) {
	var statusErr *gemini.StatusError
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		apierror.Write(w, apierror.Wrap(apierror.KindUpstreamUnavailable,
			"AI service temporarily unavailable", err))

	case errors.As(err, &statusErr):
		s.auditLog.Record(ctx, audit.Event{
			ActorID:      actorID,
			Action:       audit.ActionAPIError,
			ResourceType: "ai_search",
			Details: map[string]interface{}{
				"error":  statusErr.Body,
				"status": statusErr.StatusCode,
			},
		})
		apierror.Write(w, apierror.Wrap(apierror.KindUpstreamUnavailable,
			"AI service temporarily unavailable", err))

	case errors.Is(err, gemini.ErrEmptyResponse):
		apierror.Write(w, apierror.Wrap(apierror.KindUpstreamEmptyResponse,
			"No response generated", err))

	default:
		log.Printf("ai-query: unexpected upstream error: %v", err)
		apierror.Write(w, apierror.New(apierror.KindInternal, "Internal server error"))
	}
}

// clientAddress picks the closest thing to the caller's address: proxy
// headers first, then the socket peer.
func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		addr = addr[:idx]
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
