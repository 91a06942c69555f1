package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationStatus enumerates lifecycle states.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Valid reports whether the status is one of the known states.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected:
		return true
	}
	return false
}

// Label returns the bilingual label shown to citizens.
func (s RegistrationStatus) Label() string {
	switch s {
	case RegistrationApproved:
		return "Approved / അംഗീകരിച്ചു"
	case RegistrationRejected:
		return "Rejected / നിരസിച്ചു"
	default:
		return "Pending / കാത്തിരിക്കുന്നു"
	}
}

// Registration is a citizen's application to a category.
type Registration struct {
	ID                   string             `db:"id" json:"id"`
	CustomerID           string             `db:"customer_id" json:"customer_id"`
	FullName             string             `db:"full_name" json:"full_name"`
	MobileNumber         string             `db:"mobile_number" json:"mobile_number"`
	Address              string             `db:"address" json:"address"`
	Ward                 string             `db:"ward" json:"ward"`
	Agent                *string            `db:"agent" json:"agent,omitempty"`
	CategoryID           string             `db:"category_id" json:"category_id"`
	PreferenceCategoryID *string            `db:"preference_category_id" json:"preference_category_id,omitempty"`
	PanchayathID         *string            `db:"panchayath_id" json:"panchayath_id,omitempty"`
	Fee                  decimal.Decimal    `db:"fee" json:"fee"`
	Status               RegistrationStatus `db:"status" json:"status"`
	ApprovedDate         *time.Time         `db:"approved_date" json:"approved_date,omitempty"`
	ApprovedBy           *string            `db:"approved_by" json:"approved_by,omitempty"`
	ExpiryDate           *time.Time         `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationDetail joins display names for admin listings and exports.
type RegistrationDetail struct {
	Registration
	CategoryName       *string `db:"category_name" json:"category_name,omitempty"`
	CategoryMalayalam  *string `db:"category_name_malayalam" json:"category_name_malayalam,omitempty"`
	CategoryExpiryDays *int    `db:"category_expiry_days" json:"-"`
	CategoryQRCodeURL  *string `db:"category_qr_code_url" json:"category_qr_code_url,omitempty"`
	PanchayathName     *string `db:"panchayath_name" json:"panchayath_name,omitempty"`
	PanchayathDistrict *string `db:"panchayath_district" json:"panchayath_district,omitempty"`
}

// RegistrationFilter captures admin listing criteria.
type RegistrationFilter struct {
	Search       string
	Status       *RegistrationStatus
	CategoryID   string
	PanchayathID string
	// ExpiringWithinDays restricts to pending registrations; 0 selects already
	// expired rows, N selects rows with 0..N days left.
	ExpiringWithinDays *int
	ApprovedFrom       *time.Time
	ApprovedTo         *time.Time
	PaidOnly           bool
	Now                time.Time
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}

// ApproveParams carries the single-row approval update.
type ApproveParams struct {
	ID         string
	ApprovedAt time.Time
	ApprovedBy string
	ExpiryDate time.Time
}

// BulkApproveParams carries a batch approval update; every row receives the
// same ApprovedAt.
type BulkApproveParams struct {
	IDs         []string
	ApprovedAt  time.Time
	ApprovedBy  string
	ExpiryDates map[string]time.Time
}

// StatusCheckResult is the public answer to a status lookup.
type StatusCheckResult struct {
	Registration    RegistrationDetail       `json:"registration"`
	StatusLabel     string                   `json:"status_label"`
	PendingTransfer *CategoryTransferRequest `json:"pending_transfer,omitempty"`
}
