// Package ws implements the WebSocket control plane named in spec §6.5:
// a JSON-message protocol of {id,type,payload} requests answered with
// {id,success,result|error}. Grounded on the teacher's nexus-derived
// gateway.wsControlPlane (read/write pump over gorilla/websocket),
// trimmed to this module's two directly-handled methods plus a generic
// relay for everything else.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/localflow/core/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 45 * time.Second
	relayDeadline  = 30 * time.Second
	maxPayloadSize = 1 << 20
)

// Message is one control-plane request or response (spec §6.5).
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Relay lets a caller answer any message type this package doesn't handle
// directly, with a 30-second deadline on the caller's response (spec
// §6.5's "relayed to the UI with a 30-second response deadline").
type Relay interface {
	Handle(ctx context.Context, msgType string, payload json.RawMessage) (any, error)
}

// Handler upgrades HTTP connections to the WS control plane.
type Handler struct {
	core     *app.Core
	relay    Relay
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds a Handler bound to core; relay may be nil, in which
// case any message type other than the two handled directly here fails
// with an error result.
func NewHandler(core *app.Core, relay Relay, log *slog.Logger) *Handler {
	return &Handler{
		core:  core,
		relay: relay,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	sess := &session{
		handler: h,
		conn:    conn,
		send:    make(chan []byte, 32),
		ctx:     ctx,
		cancel:  cancel,
	}
	sess.run()
}

type session struct {
	handler *Handler
	conn    *websocket.Conn
	send    chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (s *session) run() {
	defer s.close()
	s.wg.Add(1)
	go s.writeLoop()
	s.readLoop()
	s.wg.Wait()
}

func (s *session) close() {
	s.cancel()
	close(s.send)
	_ = s.conn.Close()
}

func (s *session) readLoop() {
	s.conn.SetReadLimit(maxPayloadSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.respondError("", "invalid message: "+err.Error())
			continue
		}
		go s.handle(msg)
	}
}

func (s *session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case data, ok := <-s.send:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// handle dispatches one request by type, directly for the two workflow
// methods the core owns, otherwise through the relay with a 30-second
// deadline.
func (s *session) handle(msg Message) {
	switch msg.Type {
	case "workflow:listTemplates":
		out := make([]map[string]any, 0, len(s.handler.core.Dispatcher.Templates))
		for id, doc := range s.handler.core.Dispatcher.Templates {
			out = append(out, map[string]any{"id": id, "name": doc.Name})
		}
		s.respond(msg.ID, out)
	case "workflow:runTemplate":
		s.handleRunTemplate(msg)
	default:
		s.handleRelay(msg)
	}
}

type runTemplatePayload struct {
	TemplateID string         `json:"templateId"`
	Params     map[string]any `json:"params"`
}

func (s *session) handleRunTemplate(msg Message) {
	var payload runTemplatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.respondError(msg.ID, "invalid payload: "+err.Error())
		return
	}
	tmpl, ok := s.handler.core.Dispatcher.Templates[payload.TemplateID]
	if !ok {
		s.respondError(msg.ID, "unknown template: "+payload.TemplateID)
		return
	}
	doc := tmpl.Clone()
	if task, ok := payload.Params["task"]; ok {
		for i := range doc.Nodes {
			if doc.Nodes[i].Data.TypeID == "text-input" {
				doc.Nodes[i].Data.Config["text"] = task
				break
			}
		}
	}

	start := time.Now()
	res, err := s.handler.core.Engine.Execute(s.ctx, doc, s.handler.core.Sink(nil))
	if err != nil {
		s.handler.core.Metrics.ObserveWorkflow(false, time.Since(start))
		s.respondError(msg.ID, err.Error())
		return
	}
	s.handler.core.Metrics.ObserveWorkflow(res.Success, time.Since(start))
	if !res.Success {
		s.respondError(msg.ID, res.Error)
		return
	}
	s.respond(msg.ID, map[string]any{"outputs": res.Outputs})
}

func (s *session) handleRelay(msg Message) {
	if s.handler.relay == nil {
		s.respondError(msg.ID, "unknown message type: "+msg.Type)
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, relayDeadline)
	defer cancel()
	result, err := s.handler.relay.Handle(ctx, msg.Type, msg.Payload)
	if err != nil {
		s.respondError(msg.ID, err.Error())
		return
	}
	s.respond(msg.ID, result)
}

func (s *session) respond(id string, result any) {
	success := true
	s.enqueue(Message{ID: id, Success: &success, Result: result})
}

func (s *session) respondError(id string, message string) {
	success := false
	s.enqueue(Message{ID: id, Success: &success, Error: message})
}

func (s *session) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	case <-s.ctx.Done():
	}
}
