package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/localflow/core/config"
	"github.com/localflow/core/internal/app"
	"github.com/localflow/core/llm"
)

func newTestCore(t *testing.T) *app.Core {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Store.Dir = t.TempDir()

	core, err := app.New(cfg, llm.NewFakeProvider().WithResponse("ok"), slog.Default())
	require.NoError(t, err)
	return core
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestListTemplates(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewHandler(core, nil, slog.Default()))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{ID: "1", Type: "workflow:listTemplates"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "1", resp.ID)
	require.NotNil(t, resp.Success)
	require.True(t, *resp.Success)
}

func TestUnknownMessageWithNoRelayErrors(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewHandler(core, nil, slog.Default()))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{ID: "2", Type: "chat:send"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.False(t, *resp.Success)
	require.Contains(t, resp.Error, "unknown message type")
}

type echoRelay struct{}

func (echoRelay) Handle(ctx context.Context, msgType string, payload json.RawMessage) (any, error) {
	return map[string]string{"echo": msgType}, nil
}

func TestRelayedMessageUsesRelay(t *testing.T) {
	core := newTestCore(t)
	srv := httptest.NewServer(NewHandler(core, echoRelay{}, slog.Default()))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(Message{ID: "3", Type: "chat:send"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.True(t, *resp.Success)
}
