// Package processor consumes extracted load documents off Kafka and turns
// them into loads. Carrier and driver are resolved by name and created on the
// fly when unknown, matching how the OCR pipeline sees the world.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/internal/repositories/carrier"
	"github.com/freightly/manifest/internal/repositories/driver"
	"github.com/freightly/manifest/pkg/dates"
	"github.com/freightly/manifest/pkg/kafka"
	"github.com/freightly/manifest/pkg/loads"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// ExtractedDocument is the payload published by the document extraction
// pipeline. Dates arrive as strings in whatever format the OCR produced;
// "NOT_FOUND" marks fields the extractor could not locate.
type ExtractedDocument struct {
	DocumentName    string   `json:"document_name"`
	PickupDate      string   `json:"pickup_date"`
	DeliveryDate    string   `json:"delivery_date"`
	Origin          string   `json:"origin"`
	Destination     string   `json:"destination"`
	Amount          *float64 `json:"amount"`
	ReferenceNumber string   `json:"reference_number"`
	CompanyName     string   `json:"company_name"`
	DriverName      string   `json:"driver_name"`
}

const notFound = "NOT_FOUND"

// Processor handles extracted document messages
type Processor struct {
	loadService *loads.Service
	carrierRepo *carrier.Repository
	driverRepo  *driver.Repository
	logger      ectologger.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(loadService *loads.Service, carrierRepo *carrier.Repository, driverRepo *driver.Repository, logger ectologger.Logger) *Processor {
	return &Processor{
		loadService: loadService,
		carrierRepo: carrierRepo,
		driverRepo:  driverRepo,
		logger:      logger,
	}
}

// HandleMessage processes one extracted document message
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	tenantID := msg.TenantID()
	if tenantID == "" {
		return fmt.Errorf("message missing tenant_id header")
	}

	var doc ExtractedDocument
	if err := json.Unmarshal(msg.Value, &doc); err != nil {
		return fmt.Errorf("failed to parse extracted document: %w", err)
	}

	load, err := p.CreateLoadFromDocument(ctx, tenantID, &doc)
	if err != nil {
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"load_id":  load.ID,
		"document": doc.DocumentName,
	}).Info("Created load from extracted document")

	return nil
}

// CreateLoadFromDocument resolves the document's carrier and driver and
// creates the load through the full mutation pipeline.
func (p *Processor) CreateLoadFromDocument(ctx context.Context, tenantID string, doc *ExtractedDocument) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.CreateLoadFromDocument")
	defer span.End()

	req := models.CreateLoadRequest{
		Source: models.LoadSourceOCRUpload,
	}
	if doc.DocumentName != "" {
		req.DocumentName = &doc.DocumentName
	}

	if v := fieldValue(doc.ReferenceNumber); v != "" {
		req.LoadNumber = &v
	}
	if v := fieldValue(doc.Origin); v != "" {
		req.Origin = &v
	}
	if v := fieldValue(doc.Destination); v != "" {
		req.Destination = &v
	}
	req.Rate = doc.Amount

	if v := fieldValue(doc.PickupDate); v != "" {
		parsed, err := dates.ParseDateish(v)
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document": doc.DocumentName}).Warn("Unparseable pickup date, leaving empty")
		} else {
			req.PickupDate = &parsed
		}
	}
	if v := fieldValue(doc.DeliveryDate); v != "" {
		parsed, err := dates.ParseDateish(v)
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document": doc.DocumentName}).Warn("Unparseable delivery date, leaving empty")
		} else {
			req.DeliveryDate = &parsed
		}
	}

	if v := fieldValue(doc.CompanyName); v != "" {
		c, err := p.resolveCarrier(ctx, tenantID, v)
		if err != nil {
			return nil, err
		}
		req.CarrierID = &c.ID
	}

	if v := fieldValue(doc.DriverName); v != "" {
		d, err := p.resolveDriver(ctx, tenantID, v, req.CarrierID)
		if err != nil {
			return nil, err
		}
		req.DriverID = &d.ID
	}

	return p.loadService.Create(ctx, tenantID, req)
}

func (p *Processor) resolveCarrier(ctx context.Context, tenantID string, name string) (*models.Carrier, error) {
	existing, err := p.carrierRepo.GetByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return p.carrierRepo.Create(ctx, &models.Carrier{
		TenantID: tenantID,
		Name:     name,
	})
}

func (p *Processor) resolveDriver(ctx context.Context, tenantID string, name string, carrierID *string) (*models.Driver, error) {
	existing, err := p.driverRepo.GetByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return p.driverRepo.Create(ctx, &models.Driver{
		TenantID:  tenantID,
		CarrierID: carrierID,
		Name:      name,
	})
}

// fieldValue trims an extracted field and blanks the extractor's NOT_FOUND
// marker.
func fieldValue(s string) string {
	v := strings.TrimSpace(s)
	if strings.EqualFold(v, notFound) {
		return ""
	}
	return v
}
