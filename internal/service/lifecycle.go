package service

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/noah-isme/sep-portal-api/internal/models"
)

// DefaultAlertWindowDays is the upper bound of the expiring-soon bucket.
const DefaultAlertWindowDays = 3

const customerIDPrefix = "ESEP"

// ComputeExpiry returns reference plus the category's validity days. A nil
// category or missing policy uses the 30 day default.
func ComputeExpiry(category *models.Category, reference time.Time) time.Time {
	return reference.AddDate(0, 0, category.ValidityDays())
}

// DaysRemaining is ceil((expiry - now) / 24h).
func DaysRemaining(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// EffectiveExpiry is the stored expiry date, or created_at plus the category
// validity when none is stored yet.
func EffectiveExpiry(reg models.Registration, category *models.Category) time.Time {
	if reg.ExpiryDate != nil {
		return *reg.ExpiryDate
	}
	return ComputeExpiry(category, reg.CreatedAt)
}

// canTransition encodes the registration state machine.
func canTransition(from, to models.RegistrationStatus) bool {
	switch from {
	case models.RegistrationPending:
		return to == models.RegistrationApproved || to == models.RegistrationRejected
	case models.RegistrationApproved, models.RegistrationRejected:
		return to == models.RegistrationPending
	}
	return false
}

// ClassifyByExpiry partitions pending registrations into expired (days
// remaining <= 0) and expiring soon (0 < days <= window). Approved and
// rejected registrations land in neither bucket. categories is keyed by id;
// when a registration's category is absent the joined expiry days are used.
// Each bucket is sorted by effective expiry ascending.
func ClassifyByExpiry(regs []models.RegistrationDetail, categories map[string]models.Category, now time.Time, window int) models.ExpiryClassification {
	if window <= 0 {
		window = DefaultAlertWindowDays
	}
	result := models.ExpiryClassification{
		Expired:      []models.ExpiryEntry{},
		ExpiringSoon: []models.ExpiryEntry{},
		GeneratedAt:  now,
	}
	for _, reg := range regs {
		if reg.Status != models.RegistrationPending {
			continue
		}
		var category *models.Category
		if c, ok := categories[reg.CategoryID]; ok {
			category = &c
		} else if reg.CategoryExpiryDays != nil {
			category = &models.Category{ExpiryDays: reg.CategoryExpiryDays}
		}
		expiry := EffectiveExpiry(reg.Registration, category)
		days := DaysRemaining(expiry, now)
		entry := models.ExpiryEntry{Registration: reg, EffectiveExpiry: expiry, DaysRemaining: days}
		switch {
		case days <= 0:
			result.Expired = append(result.Expired, entry)
		case days <= window:
			result.ExpiringSoon = append(result.ExpiringSoon, entry)
		}
	}
	byExpiry := func(entries []models.ExpiryEntry) {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].EffectiveExpiry.Before(entries[j].EffectiveExpiry)
		})
	}
	byExpiry(result.Expired)
	byExpiry(result.ExpiringSoon)
	return result
}

// GenerateCustomerID builds the human readable id printed on receipts:
// ESEP, the mobile number and the upper-cased first letter of the name.
func GenerateCustomerID(mobile, fullName string) string {
	var b strings.Builder
	b.WriteString(customerIDPrefix)
	b.WriteString(strings.TrimSpace(mobile))
	for _, r := range strings.TrimSpace(fullName) {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}
