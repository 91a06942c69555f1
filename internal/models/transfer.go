package models

import "time"

// TransferStatus enumerates category transfer request states.
type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

// CategoryTransferRequest is a citizen's ask to move a registration to
// another category. CustomerID, FullName and MobileNumber are copied from the
// registration when the request is made and are never resynchronised.
type CategoryTransferRequest struct {
	ID             string         `db:"id" json:"id"`
	RegistrationID string         `db:"registration_id" json:"registration_id"`
	FromCategoryID string         `db:"from_category_id" json:"from_category_id"`
	ToCategoryID   string         `db:"to_category_id" json:"to_category_id"`
	CustomerID     string         `db:"customer_id" json:"customer_id"`
	FullName       string         `db:"full_name" json:"full_name"`
	MobileNumber   string         `db:"mobile_number" json:"mobile_number"`
	Reason         *string        `db:"reason" json:"reason,omitempty"`
	Status         TransferStatus `db:"status" json:"status"`
	RequestedAt    time.Time      `db:"requested_at" json:"requested_at"`
	ProcessedAt    *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy    *string        `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// TransferRequestView adds category display names.
type TransferRequestView struct {
	CategoryTransferRequest
	FromCategoryName string `json:"from_category_name"`
	ToCategoryName   string `json:"to_category_name"`
}

// TransferFilter narrows transfer request listings.
type TransferFilter struct {
	Status         *TransferStatus
	RegistrationID string
	Limit          int
	Offset         int
}
