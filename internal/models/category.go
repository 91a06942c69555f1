package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultExpiryDays applies when a category carries no expiry policy.
const DefaultExpiryDays = 30

// Category is a fee-bearing self-employment program.
type Category struct {
	ID             string          `db:"id" json:"id"`
	NameEnglish    string          `db:"name_english" json:"name_english"`
	NameMalayalam  string          `db:"name_malayalam" json:"name_malayalam"`
	Description    *string         `db:"description" json:"description,omitempty"`
	ActualFee      decimal.Decimal `db:"actual_fee" json:"actual_fee"`
	OfferFee       decimal.Decimal `db:"offer_fee" json:"offer_fee"`
	ExpiryDays     *int            `db:"expiry_days" json:"expiry_days,omitempty"`
	OfferStartDate *time.Time      `db:"offer_start_date" json:"offer_start_date,omitempty"`
	OfferEndDate   *time.Time      `db:"offer_end_date" json:"offer_end_date,omitempty"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	QRCodeURL      *string         `db:"qr_code_url" json:"qr_code_url,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ChargeableFee is the amount snapshotted onto a registration: the offer fee
// when positive, otherwise the actual fee.
func (c *Category) ChargeableFee() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if c.OfferFee.IsPositive() {
		return c.OfferFee
	}
	if c.ActualFee.IsPositive() {
		return c.ActualFee
	}
	return decimal.Zero
}

// ValidityDays returns the category expiry window, defaulting to 30 days.
func (c *Category) ValidityDays() int {
	if c == nil || c.ExpiryDays == nil || *c.ExpiryDays <= 0 {
		return DefaultExpiryDays
	}
	return *c.ExpiryDays
}

// IsOfferActive reports whether the advertised offer window covers now. A
// window with either bound missing is considered open.
func (c *Category) IsOfferActive(now time.Time) bool {
	if c == nil || c.OfferStartDate == nil || c.OfferEndDate == nil {
		return true
	}
	return !now.Before(*c.OfferStartDate) && !now.After(endOfDay(*c.OfferEndDate))
}

// OfferDaysRemaining returns the whole days left in the offer window, or nil
// when the window has no end or is not running.
func (c *Category) OfferDaysRemaining(now time.Time) *int {
	if c == nil || c.OfferEndDate == nil || !c.IsOfferActive(now) {
		return nil
	}
	days := int(math.Ceil(endOfDay(*c.OfferEndDate).Sub(now).Hours() / 24))
	return &days
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// CategoryView decorates a category with values derived at read time.
type CategoryView struct {
	Category
	ChargeableFee      decimal.Decimal `json:"chargeable_fee"`
	OfferActive        bool            `json:"offer_active"`
	OfferDaysRemaining *int            `json:"offer_days_remaining,omitempty"`
}

// NewCategoryView derives the read-only offer fields for now.
func NewCategoryView(c Category, now time.Time) CategoryView {
	return CategoryView{
		Category:           c,
		ChargeableFee:      c.ChargeableFee(),
		OfferActive:        c.IsOfferActive(now),
		OfferDaysRemaining: c.OfferDaysRemaining(now),
	}
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	ActiveOnly bool
	NameLike   string
}

// Panchayath is a local self-government area.
type Panchayath struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	District  string    `db:"district" json:"district"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
