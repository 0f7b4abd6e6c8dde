package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"legalintel/internal/core"
	"legalintel/internal/sources"
)

// ErrIngestUnavailable is returned when the backend can neither queue nor
// store events (read-only sources).
var ErrIngestUnavailable = errors.New("event ingest not available for this backend")

// Publisher queues an event for the ingest worker.
type Publisher interface {
	PublishEventIngest(ctx context.Context, e core.Event, requestID string) error
}

// IngestResult reports where an accepted event went.
type IngestResult struct {
	ID     int64 `json:"id,omitempty"`
	Queued bool  `json:"queued"`
}

// EventService accepts new timeline events. With a publisher the event goes
// through the broker; without one, or when publishing fails, it is written
// directly.
type EventService struct {
	writer    sources.EventWriter
	publisher Publisher
	onChange  func()
}

// NewEventService wires the ingest paths. writer and publisher may be nil;
// onChange, if set, runs after every direct write.
func NewEventService(writer sources.EventWriter, publisher Publisher, onChange func()) *EventService {
	return &EventService{writer: writer, publisher: publisher, onChange: onChange}
}

// Enabled reports whether Ingest can accept anything at all.
func (s *EventService) Enabled() bool {
	return s.writer != nil || s.publisher != nil
}

// Ingest normalizes and validates e, then queues or stores it.
func (s *EventService) Ingest(ctx context.Context, e core.Event, requestID string) (IngestResult, error) {
	e.ID = 0
	e.Title = strings.TrimSpace(e.Title)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	if err := e.Validate(); err != nil {
		return IngestResult{}, err
	}
	if !s.Enabled() {
		return IngestResult{}, ErrIngestUnavailable
	}

	if s.publisher != nil {
		err := s.publisher.PublishEventIngest(ctx, e, requestID)
		if err == nil {
			return IngestResult{Queued: true}, nil
		}
		if s.writer == nil {
			return IngestResult{}, fmt.Errorf("queue event: %w", err)
		}
		slog.WarnContext(ctx, "Publish failed, writing event directly",
			"request_id", requestID,
			"error", err)
	}

	id, err := s.writer.AppendEvent(ctx, e)
	if err != nil {
		return IngestResult{}, fmt.Errorf("store event: %w", err)
	}
	if s.onChange != nil {
		s.onChange()
	}
	return IngestResult{ID: id}, nil
}
