package models

import (
	"time"

	"github.com/lib/pq"
)

// Load source values
const (
	LoadSourceManual           = "manual"
	LoadSourceOCRUpload        = "ocr_upload"
	LoadSourceOldInvoiceImport = "old_invoice_import"
)

// Load represents a single freight shipment record.
// Field order matches schema: id, tenant_id, load_number, carrier_id, driver_id, ...
//
// The conflict columns (driver_conflict*, duplicate_conflict*, date_conflict_ids)
// and the invoice week columns (invoice_monday, invoice_week_id) are derived
// state owned by the engines in pkg/conflicts and pkg/invoicing. CRUD code
// must never hand-edit them.
type Load struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	LoadNumber   *string    `json:"load_number,omitempty" db:"load_number"`
	CarrierID    *string    `json:"carrier_id,omitempty" db:"carrier_id"`
	DriverID     *string    `json:"driver_id,omitempty" db:"driver_id"`
	Origin       *string    `json:"origin,omitempty" db:"origin"`
	Destination  *string    `json:"destination,omitempty" db:"destination"`
	Rate         *float64   `json:"rate,omitempty" db:"rate"`
	PickupDate   *time.Time `json:"pickup_date,omitempty" db:"pickup_date"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty" db:"delivery_date"`

	Cancelled bool `json:"cancelled" db:"cancelled"`
	Confirmed bool `json:"confirmed" db:"confirmed"`
	Invoiced  bool `json:"invoiced" db:"invoiced"`

	// Derived conflict state, full-replaced by the engines.
	DriverConflict       bool           `json:"driver_conflict" db:"driver_conflict"`
	DriverConflictIDs    pq.StringArray `json:"driver_conflict_ids" db:"driver_conflict_ids"`
	DuplicateConflict    bool           `json:"duplicate_conflict" db:"duplicate_conflict"`
	DuplicateConflictIDs pq.StringArray `json:"duplicate_conflict_ids" db:"duplicate_conflict_ids"`
	DateConflictIDs      pq.StringArray `json:"date_conflict_ids" db:"date_conflict_ids"`

	// Derived invoice grouping; cache of invoicing.ComputeInvoiceWeek.
	InvoiceMonday *time.Time `json:"invoice_monday,omitempty" db:"invoice_monday"`
	InvoiceWeekID *string    `json:"invoice_week_id,omitempty" db:"invoice_week_id"`

	Source       string    `json:"source" db:"source"`
	DocumentName *string   `json:"document_name,omitempty" db:"document_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// HasDates reports whether both scheduling dates are present.
func (l *Load) HasDates() bool {
	return l.PickupDate != nil && l.DeliveryDate != nil
}

// CreateLoadRequest is the request for creating a load
type CreateLoadRequest struct {
	LoadNumber   *string    `json:"load_number,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	DriverID     *string    `json:"driver_id,omitempty"`
	Origin       *string    `json:"origin,omitempty"`
	Destination  *string    `json:"destination,omitempty"`
	Rate         *float64   `json:"rate,omitempty"`
	PickupDate   *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Confirmed    bool       `json:"confirmed"`
	Source       string     `json:"source" validate:"omitempty,oneof=manual ocr_upload old_invoice_import"`
	DocumentName *string    `json:"document_name,omitempty"`
}

// UpdateLoadRequest is the request for updating a load. Pointer fields left
// nil are not changed; the Clear* flags null a column out explicitly.
type UpdateLoadRequest struct {
	LoadNumber   *string    `json:"load_number,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	DriverID     *string    `json:"driver_id,omitempty"`
	Origin       *string    `json:"origin,omitempty"`
	Destination  *string    `json:"destination,omitempty"`
	Rate         *float64   `json:"rate,omitempty"`
	PickupDate   *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Confirmed    *bool      `json:"confirmed,omitempty"`
	ClearDriver  bool       `json:"clear_driver,omitempty"`
	ClearCarrier bool       `json:"clear_carrier,omitempty"`
}

// ReassignDriverRequest is the request body for the driver reassignment PATCH.
type ReassignDriverRequest struct {
	DriverID *string `json:"driver_id"`
}

// ReassignCarrierRequest is the request body for the carrier reassignment PATCH.
type ReassignCarrierRequest struct {
	CarrierID *string `json:"carrier_id"`
}

// LoadListResponse is the response for listing loads
type LoadListResponse struct {
	Items      []Load `json:"items"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// LoadWeekGroup is one (carrier, invoice week) bucket in the grouped view.
type LoadWeekGroup struct {
	CarrierID     string `json:"carrier_id"`
	InvoiceWeekID string `json:"invoice_week_id"`
	Loads         []Load `json:"loads"`
}

// BackfillResult reports the outcome of an invoice week backfill run.
type BackfillResult struct {
	Scanned int  `json:"scanned"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	Failed  int  `json:"failed"`
	DryRun  bool `json:"dry_run"`
}
