package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

// CreateRegistrationRequest is the citizen submission payload.
type CreateRegistrationRequest struct {
	FullName             string  `json:"full_name" validate:"required,max=200"`
	MobileNumber         string  `json:"mobile_number" validate:"required,numeric,len=10"`
	Address              string  `json:"address" validate:"required,max=500"`
	Ward                 string  `json:"ward" validate:"required,max=50"`
	Agent                *string `json:"agent,omitempty" validate:"omitempty,max=200"`
	CategoryID           string  `json:"category_id" validate:"required,uuid"`
	PreferenceCategoryID *string `json:"preference_category_id,omitempty" validate:"omitempty,uuid"`
	PanchayathID         *string `json:"panchayath_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateRegistrationRequest is the admin edit payload. Nil fields are left unchanged.
type UpdateRegistrationRequest struct {
	FullName             *string          `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	MobileNumber         *string          `json:"mobile_number,omitempty" validate:"omitempty,numeric,len=10"`
	Address              *string          `json:"address,omitempty" validate:"omitempty,max=500"`
	Ward                 *string          `json:"ward,omitempty" validate:"omitempty,max=50"`
	Agent                *string          `json:"agent,omitempty" validate:"omitempty,max=200"`
	CategoryID           *string          `json:"category_id,omitempty" validate:"omitempty,uuid"`
	PreferenceCategoryID *string          `json:"preference_category_id,omitempty" validate:"omitempty,uuid"`
	PanchayathID         *string          `json:"panchayath_id,omitempty" validate:"omitempty,uuid"`
	Fee                  *decimal.Decimal `json:"fee,omitempty"`
}

// BulkApproveRequest lists registrations to approve together.
type BulkApproveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

// BulkApproveResponse reports the shared approval instant.
type BulkApproveResponse struct {
	Approved   int    `json:"approved"`
	ApprovedAt string `json:"approved_at"`
	ApprovedBy string `json:"approved_by"`
}

// RegistrationListResponse wraps a page of registrations.
type RegistrationListResponse struct {
	Items      []models.RegistrationDetail `json:"items"`
	Pagination models.Pagination           `json:"pagination"`
}
