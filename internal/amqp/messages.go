package amqp

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"legalintel/internal/core"
)

// EventIngestMessage carries a timeline event from the API to the ingest worker.
type EventIngestMessage struct {
	Event     core.Event `json:"event"`
	RequestID string     `json:"requestId,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewEventIngestMessage(e core.Event, requestID string) *EventIngestMessage {
	return &EventIngestMessage{
		Event:     e,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

func (m *EventIngestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventIngestMessageFromJSON(data []byte) (*EventIngestMessage, error) {
	var msg EventIngestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode event ingest message: %w", err)
	}
	return &msg, nil
}
