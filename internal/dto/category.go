package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRequest is used for both create and update.
type CategoryRequest struct {
	NameEnglish    string          `json:"name_english" validate:"required,max=200"`
	NameMalayalam  string          `json:"name_malayalam" validate:"required,max=200"`
	Description    *string         `json:"description,omitempty"`
	ActualFee      decimal.Decimal `json:"actual_fee"`
	OfferFee       decimal.Decimal `json:"offer_fee"`
	ExpiryDays     *int            `json:"expiry_days,omitempty" validate:"omitempty,min=1,max=3650"`
	OfferStartDate *time.Time      `json:"offer_start_date,omitempty"`
	OfferEndDate   *time.Time      `json:"offer_end_date,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

// SetActiveRequest toggles the active flag of a catalog entry.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PanchayathRequest is used for both create and update.
type PanchayathRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	District string `json:"district" validate:"required,max=200"`
	IsActive *bool  `json:"is_active,omitempty"`
}
