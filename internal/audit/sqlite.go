package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	actor_id TEXT,
	action TEXT NOT NULL,
	resource_type TEXT,
	resource_id TEXT,
	details TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_log_actor ON audit_log(actor_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
`

// SQLiteLogger persists events to a local SQLite database. Inserts run on a
// single background goroutine so the request path never waits on disk, and
// insert failures are reported to stderr only.
type SQLiteLogger struct {
	db     *sql.DB
	events chan Event
	done   chan struct{}
}

func NewSQLiteLogger(path string) (*SQLiteLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &SQLiteLogger{
		db:     db,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

func (l *SQLiteLogger) Record(ctx context.Context, event Event) {
	stamp(&event)
	if event.Details != nil {
		maskSensitive(event.Details)
	}
	select {
	case l.events <- event:
	default:
		// Queue full. Dropping beats blocking the request.
		fmt.Fprintf(os.Stderr, "audit: queue full, dropped %s\n", event.Action)
	}
}

func (l *SQLiteLogger) run() {
	defer close(l.done)
	for event := range l.events {
		l.insert(event)
	}
}

func (l *SQLiteLogger) insert(event Event) {
	var details []byte
	if event.Details != nil {
		details, _ = json.Marshal(event.Details)
	}

	_, err := l.db.Exec(
		`INSERT INTO audit_log (id, timestamp, actor_id, action, resource_type, resource_id, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp,
		event.ActorID,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		string(details),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: insert failed: %v\n", err)
	}
}

// Close drains the queue and closes the database.
func (l *SQLiteLogger) Close() error {
	close(l.events)
	<-l.done
	return l.db.Close()
}
