package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/vetintel/aigateway/internal/apierror"
	"github.com/vetintel/aigateway/internal/audit"
)

const (
	// MaxQueryLength bounds a single query.
	MaxQueryLength = 500
	// auditFragmentLength bounds how much of a rejected query reaches the
	// audit trail.
	auditFragmentLength = 100
)

// DefaultDenylist is the fixed substring screen carried over from the
// production configuration. It is a defense-in-depth heuristic, not a
// security boundary; widening it changes observable behavior.
var DefaultDenylist = []string{"hack", "exploit", "injection", "script"}

// Validator enforces query shape and content constraints.
type Validator struct {
	maxLength int
	denylist  []string
	auditLog  audit.Logger
}

func New(auditLog audit.Logger) *Validator {
	return &Validator{
		maxLength: MaxQueryLength,
		denylist:  DefaultDenylist,
		auditLog:  auditLog,
	}
}

// Query checks one raw query. A denylist match records exactly one
// suspicious_query event (truncated fragment plus client address) before the
// error is returned; rejection is a side-effecting path here.
func (v *Validator) Query(ctx context.Context, query, actorID, clientIP string) error {
	if query == "" {
		return apierror.New(apierror.KindBadRequest, "Query is required and must be a string")
	}

	if len(query) > v.maxLength {
		return apierror.New(apierror.KindBadRequest,
			fmt.Sprintf("Query too long. Maximum %d characters allowed.", v.maxLength))
	}

	lower := strings.ToLower(query)
	for _, term := range v.denylist {
		if strings.Contains(lower, term) {
			v.auditLog.Record(ctx, audit.Event{
				ActorID:      actorID,
				Action:       audit.ActionSuspiciousQuery,
				ResourceType: "ai_search",
				Details: map[string]interface{}{
					"query": truncate(query, auditFragmentLength),
					"ip":    clientIP,
				},
			})
			return apierror.New(apierror.KindProhibitedContent, "Query contains prohibited content")
		}
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
