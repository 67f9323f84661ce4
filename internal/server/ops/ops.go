// Package ops serves the operational HTTP endpoints of the portal server:
// liveness, readiness and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Check states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Probe is one readiness dependency. A failing critical probe makes the
// server not ready; a failing non-critical one only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type readyResponse struct {
	liveResponse
	Checks map[string]checkResult `json:"checks"`
}

// Handler serves the ops endpoints.
type Handler struct {
	version string
	probes  []Probe
	timeout time.Duration
	log     *zap.Logger
}

// NewHandler builds a Handler. Each probe gets timeout to answer.
func NewHandler(version string, probes []Probe, timeout time.Duration, log *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{version: version, probes: probes, timeout: timeout, log: log.Named("ops")}
}

// Router mounts /health/live, /health/ready and /metrics.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *Handler) base(status string) liveResponse {
	return liveResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Service:   "portaljuridico",
	}
}

// Live answers 200 while the process runs.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.base(StatusOK))
}

// Ready runs every probe; 503 when a critical one fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Checks: make(map[string]checkResult, len(h.probes))}
	overall := StatusOK
	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := p.Check(ctx)
		cancel()

		if err == nil {
			resp.Checks[p.Name] = checkResult{Status: StatusOK}
			continue
		}
		h.log.Warn("readiness probe failed", zap.String("probe", p.Name), zap.Error(err))
		if p.Critical {
			resp.Checks[p.Name] = checkResult{Status: StatusFail, Message: err.Error()}
			overall = StatusFail
			continue
		}
		resp.Checks[p.Name] = checkResult{Status: StatusDegraded, Message: err.Error()}
		if overall == StatusOK {
			overall = StatusDegraded
		}
	}
	resp.liveResponse = h.base(overall)

	code := http.StatusOK
	if overall == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
