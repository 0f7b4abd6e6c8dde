package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"legalintel/internal/core"
	"legalintel/internal/log"
)

// handleDashboard renders the full page. Source failures never fail the
// page; the affected sections render empty.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	perspective := core.Perspective(strings.ToLower(strings.TrimSpace(q.Get("pov"))))
	filter := strings.TrimSpace(q.Get("filter"))

	data := s.dashboard.Load(ctx, s.now(), perspective, filter)

	// render into a buffer so a template error can still produce a 500
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTemplate).LogError(ctx, "Dashboard template execution failed", err, log.OpRender,
			log.LogFields{"template": "dashboard.html"})
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and, when the backend has one, its Pinger.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"templates": "ok",
		"cache":     map[string]any{"entries": s.snapshots.Size()},
		"ingest":    s.events.Enabled(),
	}

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes request, cache and security counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	cs := s.snapshots.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	metric := func(name, help, kind string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, v)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "Requests currently being served", "gauge", traceMetrics.InFlight)
	metric("snapshot_cache_hits_total", "Snapshot cache hits", "counter", cs.Hits)
	metric("snapshot_cache_misses_total", "Snapshot cache misses", "counter", cs.Misses)
	metric("snapshot_cache_entries", "Current snapshot cache entries", "gauge", cs.Size)
	metric("rate_limit_rejections_total", "Requests rejected by the rate limiter", "counter", rl.Rejected)
	metric("rate_limit_clients", "Clients tracked by the rate limiter", "gauge", rl.ClientCount)
	metric("suspicious_requests_total", "Requests blocked as suspicious", "counter", s.detector.SuspiciousCount())
	metric("uptime_seconds", "Process uptime in seconds", "gauge", int64(time.Since(s.started).Seconds()))
}
