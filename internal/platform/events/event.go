// Package events fans record changes out to WebSocket subscribers and,
// when configured, to Kafka.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Type names a record change.
type Type string

const (
	PatientCreated      Type = "patient.created"
	PatientUpdated      Type = "patient.updated"
	PatientDeleted      Type = "patient.deleted"
	VisitCreated        Type = "visit.created"
	PrescriptionCreated Type = "prescription.created"
)

// Event is one record change. Every event belongs to a patient.
type Event struct {
	Type       Type        `json:"type"`
	PatientID  string      `json:"patientId"`
	ResourceID string      `json:"resourceId"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

func New(t Type, patientID, resourceID string, data interface{}) Event {
	return Event{
		Type:       t,
		PatientID:  patientID,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events to one destination.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Sink is what services emit to. Emit never fails the caller.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Dispatcher forwards each event to every publisher and logs failures.
type Dispatcher struct {
	publishers []Publisher
	logger     zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: publishers, logger: logger.With().Str("component", "events").Logger()}
}

func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	for _, p := range d.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			d.logger.Warn().Err(err).
				Str("event_type", string(ev.Type)).
				Str("patient_id", ev.PatientID).
				Str("resource_id", ev.ResourceID).
				Msg("publish event failed")
		}
	}
}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Discard drops every event.
var Discard Sink = discard{}
