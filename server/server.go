// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dickeyy/bundle-dashboard/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const pageTitle = "Bundle Size Dashboard"

// Controller is the part of dashboard.Controller the handlers use.
type Controller interface {
	State() dashboard.State
	Reload(ctx context.Context) error
}

type Options struct {
	// Refresh is the page's meta refresh in seconds; zero disables it.
	Refresh  int
	Gatherer prometheus.Gatherer
}

type handler struct {
	ctrl    Controller
	surface *dashboard.HTMLSurface
	refresh int
}

func NewRouter(ctrl Controller, surface *dashboard.HTMLSurface, opts Options) http.Handler {
	h := &handler{ctrl: ctrl, surface: surface, refresh: opts.Refresh}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handlePage)
	r.Get("/api/rows", h.handleRows)
	r.Get("/healthz", h.handleHealth)
	r.Post("/reload", h.handleReload)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) handlePage(w http.ResponseWriter, r *http.Request) {
	snap := h.surface.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, pageData{
		Title:   pageTitle,
		Refresh: h.refresh,
		TBodyID: dashboard.TableBodyID,
		TBody:   snap.TBody,
		Fields:  snap.Fields,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to render dashboard page")
	}
}

type rowsResponse struct {
	State  string            `json:"state"`
	Fields map[string]string `json:"fields"`
	Rows   []dashboard.Row   `json:"rows"`
}

func (h *handler) handleRows(w http.ResponseWriter, r *http.Request) {
	snap := h.surface.Snapshot()
	writeJSON(w, http.StatusOK, rowsResponse{
		State:  h.ctrl.State().String(),
		Fields: snap.Fields,
		Rows:   snap.Rows,
	})
}

type stateResponse struct {
	State string `json:"state"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.ctrl.State()
	status := http.StatusOK
	if state != dashboard.StateLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, stateResponse{State: state.String()})
}

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	// The reload outlives a client that hangs up; the controller still
	// cancels it on Stop.
	ctx := context.WithoutCancel(r.Context())
	status := http.StatusOK
	if err := h.ctrl.Reload(ctx); err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, stateResponse{State: h.ctrl.State().String()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// NewHTTPServer wraps handler with the timeouts used in production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
