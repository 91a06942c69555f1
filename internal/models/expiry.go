package models

import "time"

// ExpiryEntry is one classified registration.
type ExpiryEntry struct {
	Registration    RegistrationDetail `json:"registration"`
	EffectiveExpiry time.Time          `json:"effective_expiry"`
	DaysRemaining   int                `json:"days_remaining"`
}

// ExpiryClassification partitions pending registrations by expiry.
type ExpiryClassification struct {
	Expired      []ExpiryEntry `json:"expired"`
	ExpiringSoon []ExpiryEntry `json:"expiring_soon"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
