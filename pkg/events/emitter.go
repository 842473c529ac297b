// Package events emits load and invoice lifecycle events for downstream
// consumers (billing exports, dispatch dashboards). Emission is best-effort:
// a publish failure is logged and never fails the mutation that raised it.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/kafka"
	"github.com/freightly/manifest/pkg/models"
)

// Event types
const (
	EventLoadCreated      = "load.created"
	EventLoadUpdated      = "load.updated"
	EventLoadCancelled    = "load.cancelled"
	EventInvoiceGenerated = "invoice.generated"
)

// LoadEvent is the payload published for load lifecycle events
type LoadEvent struct {
	EventType string       `json:"event_type"`
	TenantID  string       `json:"tenant_id"`
	Load      *models.Load `json:"load"`
	Timestamp time.Time    `json:"timestamp"`
}

// InvoiceEvent is the payload published for invoice lifecycle events
type InvoiceEvent struct {
	EventType string          `json:"event_type"`
	TenantID  string          `json:"tenant_id"`
	Invoice   *models.Invoice `json:"invoice"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher is the slice of the Kafka producer the emitter needs
type Publisher interface {
	Publish(ctx context.Context, eventType string, tenantID string, entityID string, payload any) error
}

// Emitter publishes lifecycle events
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil producer disables emission,
// which keeps local setups working without a broker.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	e := &Emitter{logger: logger}
	if producer != nil {
		e.producer = producer
	}
	return e
}

// EmitLoad publishes a load lifecycle event
func (e *Emitter) EmitLoad(ctx context.Context, eventType string, load *models.Load) {
	if e.producer == nil {
		return
	}

	event := LoadEvent{
		EventType: eventType,
		TenantID:  load.TenantID,
		Load:      load,
		Timestamp: time.Now().UTC(),
	}

	if err := e.producer.Publish(ctx, eventType, load.TenantID, load.ID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"load_id":    load.ID,
		}).Error("Failed to emit load event")
	}
}

// EmitInvoice publishes an invoice lifecycle event
func (e *Emitter) EmitInvoice(ctx context.Context, eventType string, invoice *models.Invoice) {
	if e.producer == nil {
		return
	}

	event := InvoiceEvent{
		EventType: eventType,
		TenantID:  invoice.TenantID,
		Invoice:   invoice,
		Timestamp: time.Now().UTC(),
	}

	if err := e.producer.Publish(ctx, eventType, invoice.TenantID, invoice.ID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"invoice_id": invoice.ID,
		}).Error("Failed to emit invoice event")
	}
}
