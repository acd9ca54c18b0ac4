package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/backtest"
	"github.com/STTM-NSU/portfolio-dashboard/internal/dashboard"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/md"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	refresher *Refresher
	builder   SnapshotBuilder
	logger    logger.Logger
}

func NewRouter(refresher *Refresher, builder SnapshotBuilder, logger logger.Logger) http.Handler {
	h := &Handler{
		refresher: refresher,
		builder:   builder,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Get("/", h.dashboard)
	r.Get("/charts/{file}", h.chart)
	r.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", h.portfolio)
		r.Get("/backtest/{code}", h.backtest)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) dashboard(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.refresher.Snapshot()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.Render(&buf, snap); err != nil {
		h.logger.Errorf("%s: can't render dashboard", err)
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) portfolio(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.refresher.Snapshot()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	code, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".svg")
	if !ok || code == "" {
		http.NotFound(w, r)
		return
	}

	snap, err := h.refresher.Snapshot()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	card, found := snap.Card(code)
	if !found || len(card.Chart) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(card.Chart)
}

func (h *Handler) backtest(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	res, err := h.builder.Backtest(r.Context(), code)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, res)
	case errors.Is(err, backtest.ErrInsufficientData), errors.Is(err, backtest.ErrInvalidInput):
		h.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, md.ErrNoHistory):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.logger.Errorf("%s: backtest failed for %s", err, code)
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Errorf("%s: can't encode response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debugf("%s %s %d %dB %s request_id=%s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}
