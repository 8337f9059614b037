package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBuiltins_RegistersEveryType(t *testing.T) {
	nodes := NewNodeRegistry()
	RegisterBuiltins(nodes)

	for _, id := range []string{
		"manual-trigger", "cron-trigger", "text-input", "ai-chat",
		"ai-transform", "debug", "http-request", "file-read",
		"file-write", "json-parse", "loop",
	} {
		_, ok := nodes.GetNode(id)
		assert.True(t, ok, "expected %q to be registered", id)
	}
}

func TestHTTPRequestType_SendsConfiguredMethodHeadersAndBody(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	def := httpRequestType()
	config := map[string]any{
		"url":     srv.URL,
		"method":  http.MethodPost,
		"headers": map[string]string{"X-Test": "yes"},
		"body":    "payload",
	}

	out, err := def.Execute(context.Background(), map[string]any{}, config, nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, "payload", gotBody)
	assert.Equal(t, http.StatusCreated, out["status"])
	assert.Equal(t, "ok", out["body"])
}

func TestCronTriggerType_EmitsFiredAt(t *testing.T) {
	def := cronTriggerType()
	out, err := def.Execute(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out["fired_at"])
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("*/5 * * * *"))
	assert.Error(t, ValidateCronSchedule("not-a-schedule"))
}
