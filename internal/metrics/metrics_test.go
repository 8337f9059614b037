package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP_AppearsInHandlerOutput(t *testing.T) {
	m := New()
	m.ObserveHTTP("/health", "GET", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `localflow_http_requests_total{method="GET",route="/health",status="2xx"}`))
}

func TestObserveWorkflowAndTool_DoNotPanic(t *testing.T) {
	m := New()
	assert.NotPanics(t, func() {
		m.ObserveWorkflow(true, time.Millisecond)
		m.ObserveWorkflow(false, time.Millisecond)
		m.ObserveTool("add_node", true)
		m.ObserveTool("add_node", false)
	})
}
