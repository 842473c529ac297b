package models

import "time"

// Carrier is the trucking company being invoiced.
type Carrier struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	MCNumber  *string   `json:"mc_number,omitempty" db:"mc_number"`
	Address   *string   `json:"address,omitempty" db:"address"`
	Email     *string   `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateCarrierRequest is the request for creating a carrier
type CreateCarrierRequest struct {
	Name     string  `json:"name" validate:"required"`
	MCNumber *string `json:"mc_number,omitempty"`
	Address  *string `json:"address,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateCarrierRequest is the request for updating a carrier
type UpdateCarrierRequest struct {
	Name     *string `json:"name,omitempty"`
	MCNumber *string `json:"mc_number,omitempty"`
	Address  *string `json:"address,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// CarrierListResponse is the response for listing carriers
type CarrierListResponse struct {
	Items      []Carrier `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
