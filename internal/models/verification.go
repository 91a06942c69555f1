package models

import "time"

// RegistrationVerification is the ledger row recording whether an approved
// registration's fee was reconciled. One row per registration.
type RegistrationVerification struct {
	ID             string     `db:"id" json:"id"`
	RegistrationID string     `db:"registration_id" json:"registration_id"`
	Verified       bool       `db:"verified" json:"verified"`
	VerifiedBy     *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	RestoredBy     *string    `db:"restored_by" json:"restored_by,omitempty"`
	RestoredAt     *time.Time `db:"restored_at" json:"restored_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Restored reports whether the row records an undone verification.
func (v *RegistrationVerification) Restored() bool {
	return v != nil && !v.Verified && v.RestoredAt != nil
}
