package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/paperatlas/internal/action"
	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/event"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
	"github.com/gyaneshwarpardhi/paperatlas/internal/render"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
)

const (
	maxBatchSize = 100
	maxBodyBytes = 1 << 20
)

// GraphService is the Graph Data Service in its wire form. It is served
// under /api when the server owns the paper store.
type GraphService interface {
	Daily(ctx context.Context) (*source.Response, error)
	Expansion(ctx context.Context, id string) (*source.Response, error)
	Detail(ctx context.Context, id string) (*source.Detail, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	mgr      *explorer.Manager
	graphs   GraphService
	eng      *engine.Engine
	loader   *config.Loader
	commands *action.Registry
	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates an HTTP handler and registers all routes. graphs may be nil,
// in which case /api is not served.
func New(mgr *explorer.Manager, graphs GraphService, eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{
		mgr:      mgr,
		graphs:   graphs,
		eng:      eng,
		loader:   loader,
		commands: action.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	if graphs != nil {
		r.Get("/api/graph/daily", h.daily)
		r.Get("/api/graph/expand/{id}", h.expand)
		r.Get("/api/papers/{id}/detail", h.detail)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/commands", h.listCommands)
		r.Post("/config/reload", h.reloadConfig)
		r.Get("/sessions", h.listSessions)
		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.sessionState)
			r.Delete("/", h.deleteSession)
			r.Post("/events", h.postEvents)
			r.Get("/frame.svg", h.frameSVG)
			r.Get("/frame.png", h.framePNG)
			r.Get("/ws", h.stream)
		})
	})

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	h.router = r
	return h
}

// ServeHTTP implements http.Handler by delegating to the chi router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*explorer.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := h.mgr.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return nil, false
	}
	return s, true
}

// POST /v1/sessions creates a session and loads its initial graph.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Create(r.Context())
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": s.ID(),
	})
}

// GET /v1/sessions lists live session ids.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.mgr.IDs(),
	})
}

// GET /v1/sessions/{id} returns the session state.
func (h *Handler) sessionState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var st explorer.State
	if err := s.Do(r.Context(), func() { st = s.State() }); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DELETE /v1/sessions/{id} closes a session.
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mgr.Remove(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// eventResult reports the outcome of one posted event.
type eventResult struct {
	Index  int            `json:"index"`
	Type   event.Type     `json:"type"`
	Result *action.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// POST /v1/sessions/{id}/events applies one event or an array of them, in order.
func (h *Handler) postEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := event.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}
	for i, ev := range events {
		if ev.Type != event.Command {
			continue
		}
		if err := h.commands.Check(ev.Command, ev.Params); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("event %d: %s", i, err))
			return
		}
	}

	results := h.apply(r.Context(), s, events)
	if len(results) == 1 && results[0].Error != "" && results[0].Result == nil {
		writeError(w, http.StatusUnprocessableEntity, results[0].Error)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": len(results),
		"results": results,
	})
}

func (h *Handler) apply(ctx context.Context, s *explorer.Session, events []event.Event) []eventResult {
	results := make([]eventResult, len(events))
	err := s.Do(ctx, func() {
		for i, ev := range events {
			res, err := s.HandleEvent(ctx, ev)
			results[i] = eventResult{Index: i, Type: ev.Type, Result: res}
			if err != nil {
				results[i].Error = err.Error()
			}
		}
	})
	if err != nil {
		for i := range results {
			results[i] = eventResult{Index: i, Type: events[i].Type, Error: err.Error()}
		}
	}
	return results
}

// GET /v1/sessions/{id}/frame.svg renders the latest frame as SVG.
func (h *Handler) frameSVG(w http.ResponseWriter, r *http.Request) {
	h.frame(w, r, "svg", "image/svg+xml", render.EncodeSVG)
}

// GET /v1/sessions/{id}/frame.png rasterizes the latest frame.
func (h *Handler) framePNG(w http.ResponseWriter, r *http.Request) {
	h.frame(w, r, "png", "image/png", render.EncodePNG)
}

func (h *Handler) frame(w http.ResponseWriter, r *http.Request, format, contentType string, encode func(io.Writer, render.Frame) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.Snapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	if err := encode(w, f); err != nil {
		// Headers are gone; the client sees a truncated body.
		return
	}
	metrics.FramesRendered.WithLabelValues(format).Inc()
}

// GET /v1/commands lists the session commands.
func (h *Handler) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": h.commands.Types()})
}

// POST /v1/config/reload re-reads the config file and pushes it to every session.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"version":  cfg.Version,
		"sessions": h.mgr.Count(),
	})
}

// GET /api/graph/daily returns today's graph.
func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	resp, err := h.graphs.Daily(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/graph/expand/{id} returns the neighbourhood of one paper.
func (h *Handler) expand(w http.ResponseWriter, r *http.Request) {
	resp, err := h.graphs.Expansion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/papers/{id}/detail returns the full record for one paper.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	d, err := h.graphs.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GET /healthz always answers 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz answers 503 while the expansion queue is over 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
		"sessions":          h.mgr.Count(),
	})
}
