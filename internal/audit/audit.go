// Package audit implements the write-only execution audit log (SPEC_FULL
// §5.9): a sqlite3-backed table of node-progress and execution-complete
// events, subscribed to the progress sink. It is never read back to
// resume or replay a run — purely a post-hoc debugging history, disabled
// unless a path is configured.
package audit

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"

	"github.com/localflow/core/internal/errs"
	"github.com/localflow/core/progress"
)

// Log writes every progress.Event it observes as one row.
type Log struct {
	db *sql.DB
}

// Open creates (if absent) the sqlite3 database at path and its schema.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &errs.ResourceError{Component: "audit", Action: "Open", Message: "failed to open audit database", Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS execution_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_id TEXT NOT NULL,
		node_id TEXT,
		status TEXT,
		ts DATETIME NOT NULL,
		detail TEXT
	)`); err != nil {
		db.Close()
		return nil, &errs.ResourceError{Component: "audit", Action: "Open", Message: "failed to create audit schema", Err: err}
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error { return l.db.Close() }

// Emit implements progress.Sink, recording node-progress and
// execution-complete events; execution-start and log events are not
// durable history, so they are not written.
func (l *Log) Emit(e progress.Event) {
	switch e.Type {
	case progress.EventNodeProgress:
		l.insert(e.WorkflowID, e.NodeID, string(e.Status), e.Data)
	case progress.EventExecutionComplete:
		detail := map[string]any{"success": e.Success}
		if e.Error != "" {
			detail["error"] = e.Error
		}
		l.insert(e.WorkflowID, "", "execution-complete", detail)
	}
}

func (l *Log) insert(workflowID, nodeID, status string, data map[string]any) {
	var detail string
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			detail = string(b)
		}
	}
	// Best-effort: a write-only audit log must never block or fail the
	// run it observes.
	_, _ = l.db.Exec(`INSERT INTO execution_events (workflow_id, node_id, status, ts, detail) VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)`,
		workflowID, nodeID, status, detail)
}
