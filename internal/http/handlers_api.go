package http

import (
	"errors"
	"net/http"
	"strings"

	"legalintel/internal/core"
	"legalintel/internal/log"
	"legalintel/internal/middleware/trace"
	"legalintel/internal/services"
	"legalintel/internal/sources"
)

// handleTimeline serves the timeline, optionally narrowed by ?type=.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("type"))
	if filter == "" {
		filter = core.FilterAll
	}

	payload, err := s.reader.ReadTimeline(r.Context())
	if err != nil {
		s.fetchFailed(w, r, "timeline", err, "Failed to fetch timeline data")
		return
	}
	writeJSON(w, r, http.StatusOK, sources.TimelinePayload{
		Events: services.TimelineView(payload.Events, filter),
	})
}

func (s *Server) handleLoanDetails(w http.ResponseWriter, r *http.Request) {
	loan, err := s.reader.ReadLoanDetails(r.Context())
	if err != nil {
		s.fetchFailed(w, r, "loan-details", err, "Failed to fetch loan details")
		return
	}
	writeJSON(w, r, http.StatusOK, loan)
}

func (s *Server) handlePOVAnalysis(w http.ResponseWriter, r *http.Request) {
	p, err := core.ParsePerspective(r.PathValue("perspective"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "Unknown perspective")
		return
	}

	analysis, err := s.reader.ReadAnalysis(r.Context(), p)
	if err != nil {
		s.fetchFailed(w, r, "pov-analysis", err, "Failed to fetch POV analysis")
		return
	}
	analysis = analysis.Normalize()
	analysis.Perspective = p
	writeJSON(w, r, http.StatusOK, analysis)
}

func (s *Server) handleFinancialData(w http.ResponseWriter, r *http.Request) {
	payload, err := s.reader.ReadFinancials(r.Context())
	if err != nil {
		s.fetchFailed(w, r, "financial-data", err, "Failed to fetch financial data")
		return
	}
	writeJSON(w, r, http.StatusOK, payload)
}

func (s *Server) handleCaseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.reader.ReadCaseStatus(r.Context())
	if err != nil {
		s.fetchFailed(w, r, "case-status", err, "Failed to fetch case status")
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleChart serves the paired chart points with layout and summary.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	payload, err := s.reader.ReadFinancials(r.Context())
	if err != nil {
		s.fetchFailed(w, r, "financial-data", err, "Failed to fetch financial data")
		return
	}
	writeJSON(w, r, http.StatusOK, services.BuildChart(payload.FinancialSeries))
}

type createEventRequest struct {
	Title       string     `json:"title"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Color       core.Color `json:"color"`
	Source      string     `json:"source"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(ctx, "Invalid event payload", "error", err)
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	e := core.Event{
		Title:       sanitizeInput(req.Title),
		Date:        req.Date,
		Description: sanitizeInput(req.Description),
		Type:        sanitizeInput(req.Type),
		Color:       req.Color,
		Source:      sanitizeInput(req.Source),
	}

	res, err := s.events.Ingest(ctx, e, trace.GetRequestID(ctx))
	switch {
	case errors.Is(err, core.ErrInvalidEvent):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrIngestUnavailable):
		writeError(w, r, http.StatusNotImplemented, "Event ingest is not available for this data backend")
		return
	case err != nil:
		logger.LogError(ctx, "Failed to ingest event", err, log.OpIngest,
			log.NewFields().WithEvent(0, e.Type))
		writeError(w, r, http.StatusServiceUnavailable, "Failed to ingest event")
		return
	}

	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	logger.InfoContext(ctx, "Event accepted",
		log.NewFields().WithEvent(res.ID, e.Type).WithOperation(log.OpIngest).ToSlice()...)
	writeJSON(w, r, status, res)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// fetchFailed logs a source error and answers with msg.
func (s *Server) fetchFailed(w http.ResponseWriter, r *http.Request, resource string, err error, msg string) {
	log.FromContext(r.Context()).LogError(r.Context(), "Source fetch failed", err, log.OpRead,
		log.LogFields{log.FieldResource: resource})
	writeError(w, r, http.StatusInternalServerError, msg)
}
