package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/localflow/core/progress"
	"github.com/stretchr/testify/require"
)

func TestLog_EmitWritesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	log.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: "wf1", NodeID: "n1", Status: progress.NodeComplete})
	log.Emit(progress.Event{Type: progress.EventExecutionComplete, Time: time.Now(), WorkflowID: "wf1", Success: true})

	var count int
	require.NoError(t, log.db.QueryRow(`SELECT COUNT(*) FROM execution_events WHERE workflow_id = ?`, "wf1").Scan(&count))
	require.Equal(t, 2, count)
}
