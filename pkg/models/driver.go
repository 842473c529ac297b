package models

import "time"

// Driver is an individual hauling loads for a carrier.
type Driver struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	CarrierID *string   `json:"carrier_id,omitempty" db:"carrier_id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateDriverRequest is the request for creating a driver
type CreateDriverRequest struct {
	CarrierID *string `json:"carrier_id,omitempty"`
	Name      string  `json:"name" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

// UpdateDriverRequest is the request for updating a driver
type UpdateDriverRequest struct {
	CarrierID *string `json:"carrier_id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// DriverListResponse is the response for listing drivers
type DriverListResponse struct {
	Items      []Driver `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
