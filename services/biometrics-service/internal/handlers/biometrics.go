package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/visadesk/libs/httpx"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/listing"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/metrics"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/page"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/session"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
)

type BiometricsHandler struct {
	deps     *page.Deps
	sessions *session.Store
	listing  *listing.Service
	metrics  *metrics.SchedulingMetrics
	logger   *slog.Logger
}

func NewBiometricsHandler(deps *page.Deps, sessions *session.Store, list *listing.Service, m *metrics.SchedulingMetrics, logger *slog.Logger) *BiometricsHandler {
	return &BiometricsHandler{deps: deps, sessions: sessions, listing: list, metrics: m, logger: logger}
}

// Register mounts every route on mux.
func (h *BiometricsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/biometrics", h.Load)
	mux.HandleFunc("/api/v1/biometrics/view", h.View)
	mux.HandleFunc("/api/v1/biometrics/draft", h.Draft)
	mux.HandleFunc("/api/v1/biometrics/quick-pick", h.QuickPick)
	mux.HandleFunc("/api/v1/biometrics/submit", h.Submit)
	mux.HandleFunc("/api/v1/biometrics/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/biometrics/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/biometrics/notices/dismiss", h.Dismiss)
	mux.HandleFunc("/api/v1/admin/biometrics/appointments", h.AdminList)
}

type quickPickRequest struct {
	Index int `json:"index"`
}

type dismissRequest struct {
	ID string `json:"id"`
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.UserIDHeader))
}

func requestContext(r *http.Request) context.Context {
	return appointments.WithBearerToken(r.Context(), r.Header.Get("Authorization"))
}

// Load starts a new page for the applicant: gate read and list fetch.
func (h *BiometricsHandler) Load(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	p := page.Load(requestContext(r), h.deps, uid)
	h.sessions.Put(uid, p)
	httpx.WriteJSON(w, http.StatusOK, p.View())
}

func (h *BiometricsHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p.View())
}

func (h *BiometricsHandler) Draft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	var req page.DraftInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.respond(w, p, p.SetDraft(req))
}

func (h *BiometricsHandler) QuickPick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	var req quickPickRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	h.respond(w, p, p.QuickPick(req.Index))
}

func (h *BiometricsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	err := p.Submit()
	var ve *workflow.ValidationError
	if errors.As(err, &ve) || errors.Is(err, eligibility.ErrIneligibleDate) {
		h.metrics.ObserveSubmission(metrics.SubmissionValidation)
	}
	h.respond(w, p, err)
}

func (h *BiometricsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	_, err := p.Confirm(requestContext(r))
	if errors.Is(err, workflow.ErrSubmissionInFlight) {
		h.metrics.ObserveSubmission(metrics.SubmissionInFlight)
	}
	h.respond(w, p, err)
}

func (h *BiometricsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	h.respond(w, p, p.Cancel())
}

func (h *BiometricsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	var req dismissRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.ID) == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if !p.Dismiss(req.ID) {
		http.Error(w, "notice not found", http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p.View())
}

func (h *BiometricsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filter, pagination, err := listing.ParseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.listing.List(requestContext(r), filter, pagination))
}

func (h *BiometricsHandler) current(w http.ResponseWriter, r *http.Request) (*page.Page, bool) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return nil, false
	}
	p, ok := h.sessions.Get(uid)
	if !ok {
		http.Error(w, "no active scheduling page; reload", http.StatusNotFound)
		return nil, false
	}
	return p, true
}

// respond writes the page view with a status derived from err. Validation problems
// are already on the view as notices.
func (h *BiometricsHandler) respond(w http.ResponseWriter, p *page.Page, err error) {
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, page.ErrGateClosed):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, page.ErrUnknownQuickPick):
		status = http.StatusBadRequest
	default:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusConflict {
		h.logger.Info("scheduling action rejected", "user_id", p.UserID(), "status", status, "err", err)
	}
	httpx.WriteJSON(w, status, p.View())
}
