package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"legalintel/internal/amqp"
	"legalintel/internal/sources"
)

// IngestWorker persists timeline events received over AMQP.
type IngestWorker struct {
	writer sources.EventWriter

	processed atomic.Int64
	rejected  atomic.Int64
}

func NewIngestWorker(writer sources.EventWriter) *IngestWorker {
	return &IngestWorker{writer: writer}
}

// HandleIngestMessage validates and stores one event. Validation failures
// wrap amqp.ErrReject so the message is dropped; write failures are returned
// as-is and the delivery is requeued.
func (w *IngestWorker) HandleIngestMessage(ctx context.Context, msg *amqp.EventIngestMessage) error {
	e := msg.Event
	e.ID = 0
	e.Title = strings.TrimSpace(e.Title)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))

	if err := e.Validate(); err != nil {
		w.rejected.Add(1)
		slog.WarnContext(ctx, "Rejecting invalid event",
			"request_id", msg.RequestID,
			"title", e.Title,
			"error", err)
		return fmt.Errorf("%w: %v", amqp.ErrReject, err)
	}

	id, err := w.writer.AppendEvent(ctx, e)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	w.processed.Add(1)

	slog.InfoContext(ctx, "Event ingested",
		"id", id,
		"event_type", e.Type,
		"request_id", msg.RequestID,
		"queued_at", msg.Timestamp)
	return nil
}

// Stats returns the number of stored and rejected events since start.
func (w *IngestWorker) Stats() (processed, rejected int64) {
	return w.processed.Load(), w.rejected.Load()
}
