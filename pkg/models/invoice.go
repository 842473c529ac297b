package models

import (
	"time"

	"github.com/lib/pq"
)

// Invoice status values
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusPaid  = "paid"
)

// Invoice is one weekly billing document for a carrier: every load in it
// shares the carrier and the invoice week.
type Invoice struct {
	ID            string         `json:"id" db:"id"`
	TenantID      string         `json:"tenant_id" db:"tenant_id"`
	CarrierID     string         `json:"carrier_id" db:"carrier_id"`
	InvoiceNumber string         `json:"invoice_number" db:"invoice_number"`
	InvoiceMonday time.Time      `json:"invoice_monday" db:"invoice_monday"`
	InvoiceWeekID string         `json:"invoice_week_id" db:"invoice_week_id"`
	LoadIDs       pq.StringArray `json:"load_ids" db:"load_ids"`
	TotalAmount   float64        `json:"total_amount" db:"total_amount"`
	InvoiceDate   time.Time      `json:"invoice_date" db:"invoice_date"`
	DueDate       time.Time      `json:"due_date" db:"due_date"`
	Status        string         `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// GenerateInvoicesRequest is the request for generating weekly invoices for a carrier.
type GenerateInvoicesRequest struct {
	CarrierID string   `json:"carrier_id" validate:"required"`
	LoadIDs   []string `json:"load_ids,omitempty"` // optional explicit subset; default is all eligible loads
}

// GenerateInvoicesResponse reports the invoices created by one generation request.
type GenerateInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// ImportInvoiceLine is a single load line from an imported legacy invoice.
type ImportInvoiceLine struct {
	LoadNumber   *string    `json:"load_number,omitempty"`
	Origin       *string    `json:"origin,omitempty"`
	Destination  *string    `json:"destination,omitempty"`
	Rate         *float64   `json:"rate,omitempty"`
	PickupDate   *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

// ImportInvoiceGroup is a driver section from an imported legacy invoice.
type ImportInvoiceGroup struct {
	DriverName string              `json:"driver_name" validate:"required"`
	Lines      []ImportInvoiceLine `json:"lines" validate:"required,dive"`
}

// ImportInvoiceRequest mirrors the structure produced by the old-invoice
// extraction pipeline: Bill To, invoice metadata, and driver sections.
type ImportInvoiceRequest struct {
	CarrierName   string               `json:"carrier_name" validate:"required"`
	InvoiceNumber string               `json:"invoice_number" validate:"required"`
	InvoiceDate   time.Time            `json:"invoice_date" validate:"required"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	Groups        []ImportInvoiceGroup `json:"groups" validate:"required,dive"`
}

// UpdateInvoiceStatusRequest moves an invoice between statuses.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid"`
}

// InvoiceListResponse is the response for listing invoices
type InvoiceListResponse struct {
	Items      []Invoice `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
