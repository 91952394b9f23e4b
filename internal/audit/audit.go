package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the gateway.
const (
	ActionSuspiciousQuery = "suspicious_query"
	ActionSearchQuery     = "ai_search_query"
	ActionAPIError        = "ai_api_error"
	ActionSearchSuccess   = "ai_search_success"
	ActionLimitsReload    = "limits_reload"
)

// Event is an append-only record of a security- or usage-relevant action.
type Event struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	ActorID      string                 `json:"actor_id,omitempty"` // empty for pre-auth failures
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// Logger records events fire-and-forget. Implementations must never let a
// write failure surface to the caller; the request path does not depend on
// the audit trail.
type Logger interface {
	Record(ctx context.Context, event Event)
}

// stamp fills in the fields every sink needs.
func stamp(e *Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// JSONLogger writes one JSON object per line to an io.Writer.
type JSONLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{out: w}
}

func (l *JSONLogger) Record(ctx context.Context, event Event) {
	stamp(&event)
	if event.Details != nil {
		maskSensitive(event.Details)
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: marshal failed: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(bytes)
	l.out.Write([]byte("\n"))
}

var sensitiveKeys = []string{"api_key", "password", "token", "secret", "authorization"}

func maskSensitive(m map[string]interface{}) {
	for k := range m {
		lowerK := strings.ToLower(k)
		for _, s := range sensitiveKeys {
			if strings.Contains(lowerK, s) {
				m[k] = "***REDACTED***"
				break
			}
		}
	}
}

// MultiLogger fans an event out to several sinks.
type MultiLogger []Logger

func (m MultiLogger) Record(ctx context.Context, event Event) {
	stamp(&event)
	for _, l := range m {
		l.Record(ctx, event)
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Record(ctx context.Context, event Event) {}
