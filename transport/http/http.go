// Package http implements the REST surface named in spec §6.5, a
// go-chi router over the process-wide Core value (grounded on the
// teacher's pkg/transport, which also builds its routes over chi).
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/localflow/core/builder"
	"github.com/localflow/core/chat"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/internal/app"
)

// ServiceName is reported by GET /health.
const ServiceName = "localflow"

// NewRouter builds the full HTTP surface described in spec §6.5, bound to
// core for every handler.
func NewRouter(core *app.Core) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(corsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(core))

	h := &handlers{core: core}

	r.Get("/metrics", h.metrics)
	r.Get("/health", h.health)
	r.Get("/tools", h.listTools)
	r.Post("/tools/{name}", h.executeTool)
	r.Get("/templates", h.listTemplates)
	r.Get("/templates/{id}", h.getTemplate)
	r.Post("/run", h.run)
	r.Post("/chat", h.chat)
	r.Get("/chat/sessions", h.listChatSessions)
	r.Post("/chat/new", h.newChatSession)
	r.Get("/chat/{id}", h.getChatSession)
	r.Delete("/chat/{id}", h.deleteChatSession)
	r.Get("/chat/{id}/workflow", h.getChatWorkflow)
	r.Get("/workflows", h.listWorkflows)
	r.Post("/workflows", h.saveWorkflow)
	r.Get("/workflows/{id}", h.getWorkflow)
	r.Put("/workflows/{id}", h.updateWorkflow)
	r.Delete("/workflows/{id}", h.deleteWorkflow)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type handlers struct {
	core *app.Core
}

// metricsMiddleware records one observation per request on core.Metrics,
// reading the matched route pattern off chi's RouteContext the way the
// teacher's metrics middleware does (no manual regex matching).
func metricsMiddleware(core *app.Core) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			core.Metrics.ObserveHTTP(route, r.Method, wrapped.status, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	h.core.Metrics.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError surfaces a TransportError as {error:<string>} (spec §7's
// TransportError kind: malformed HTTP payload, 4xx/5xx).
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (h *handlers) listTools(w http.ResponseWriter, r *http.Request) {
	tools := h.core.Tools.ListTools()
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"schema":      t.Schema(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) executeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tool, ok := h.core.Tools.GetTool(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}

	var body map[string]any
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err.Error() != "EOF" {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := tool.Execute(r.Context(), body)
	if err != nil {
		h.core.Metrics.ObserveTool(name, false)
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	h.core.Metrics.ObserveTool(name, true)
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(h.core.Dispatcher.Templates))
	for id, doc := range h.core.Dispatcher.Templates {
		out = append(out, map[string]any{"id": id, "name": doc.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, ok := h.core.Dispatcher.Templates[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown template: "+id)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type runRequest struct {
	TemplateID string         `json:"templateId"`
	WorkflowID string         `json:"workflowId"`
	Params     map[string]any `json:"params"`
}

// run implements POST /run (spec §6.5): resolves a template or stored
// workflow, injects params.task into the first text-input node, executes,
// and returns {success,result}.
func (h *handlers) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var doc *engine.WorkflowDocument
	switch {
	case req.TemplateID != "":
		tmpl, ok := h.core.Dispatcher.Templates[req.TemplateID]
		if !ok {
			writeError(w, http.StatusNotFound, "unknown template: "+req.TemplateID)
			return
		}
		doc = tmpl.Clone()
	case req.WorkflowID != "":
		saved, ok, err := h.core.Store.Get(req.WorkflowID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "unknown workflow: "+req.WorkflowID)
			return
		}
		doc, err = chat.DecodeSavedDocument(saved)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "templateId or workflowId is required")
		return
	}

	if task, ok := req.Params["task"]; ok {
		for i := range doc.Nodes {
			if doc.Nodes[i].Data.TypeID == "text-input" {
				doc.Nodes[i].Data.Config["text"] = task
				break
			}
		}
	}

	start := time.Now()
	res, err := h.core.Engine.Execute(r.Context(), doc, h.core.Sink(nil))
	if err != nil {
		h.core.Metrics.ObserveWorkflow(false, time.Since(start))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.core.Metrics.ObserveWorkflow(res.Success, time.Since(start))
	if !res.Success {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "result": res.Error})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": builder.ExtractResult(doc, res)})
}

type chatRequest struct {
	SessionID       string `json:"sessionId"`
	Message         string `json:"message"`
	ExecuteCommands *bool  `json:"executeCommands"`
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.core.Dispatcher.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listChatSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Sessions.List())
}

func (h *handlers) newChatSession(w http.ResponseWriter, r *http.Request) {
	sess := h.core.Sessions.GetOrCreate("")
	writeJSON(w, http.StatusOK, sess)
}

func (h *handlers) getChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := h.core.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown or expired session: "+id)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handlers) deleteChatSession(w http.ResponseWriter, r *http.Request) {
	h.core.Sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getChatWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.core.Sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, "unknown or expired session: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id})
}

func (h *handlers) listWorkflows(w http.ResponseWriter, r *http.Request) {
	list, err := h.core.Store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type saveWorkflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Nodes       []any  `json:"nodes"`
	Edges       []any  `json:"edges"`
}

func (h *handlers) saveWorkflow(w http.ResponseWriter, r *http.Request) {
	var req saveWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	saved, err := h.core.Store.Save(req.Name, req.Nodes, req.Edges, req.Description, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *handlers) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	saved, ok, err := h.core.Store.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown workflow: "+id)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handlers) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req saveWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	saved, err := h.core.Store.Save(req.Name, req.Nodes, req.Edges, req.Description, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handlers) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.core.Store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NewServer wraps NewRouter in an *http.Server bound to addr, matching the
// teacher's pattern of a configured net/http.Server rather than bare
// http.ListenAndServe (request timeouts are the module's, not the
// default zero-value ones).
func NewServer(addr string, core *app.Core) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(core),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
