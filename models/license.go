package models

import (
	"slices"
	"time"
)

// LicenseStatus is the stored lifecycle state of a license.
type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "ACTIVE"
	LicenseExpired   LicenseStatus = "EXPIRED"
	LicenseSuspended LicenseStatus = "SUSPENDED"
)

// IsValid reports whether s is one of the known statuses.
func (s LicenseStatus) IsValid() bool {
	switch s {
	case LicenseActive, LicenseExpired, LicenseSuspended:
		return true
	}
	return false
}

// LicenseType classifies a license. The set is open; these are the values
// the tooling creates.
type LicenseType string

const (
	LicenseEnterprise LicenseType = "ENTERPRISE"
	LicenseDepartment LicenseType = "DEPARTMENT"
	LicenseIndividual LicenseType = "INDIVIDUAL"
)

// License binds a user to a validity window and a set of features.
type License struct {
	// Key is unique, in the form XXXXX-XXXXX-XXXXX-XXXXX over [A-Z0-9].
	Key    string        `json:"license_key"`
	UserID int64         `json:"user_id"`
	Type   LicenseType   `json:"type"`
	Status LicenseStatus `json:"status"`

	// StartDate and EndDate are inclusive calendar days.
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`

	// Features are sealed at rest.
	Features []string `json:"-"`
	MaxUsers int      `json:"max_users,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of l.
func (l License) Clone() License {
	c := l
	c.Features = slices.Clone(l.Features)
	return c
}

// ExpiredOn reports whether the validity window has passed on today.
func (l License) ExpiredOn(today Date) bool {
	return today.After(l.EndDate)
}

// DaysRemaining returns the whole days from today to the end date.
func (l License) DaysRemaining(today Date) int {
	return today.DaysUntil(l.EndDate)
}

// EffectiveStatus derives the status from the stored status and the date.
// Suspension wins over expiry.
func (l License) EffectiveStatus(today Date) LicenseStatus {
	switch {
	case l.Status == LicenseSuspended:
		return LicenseSuspended
	case l.Status == LicenseExpired || l.ExpiredOn(today):
		return LicenseExpired
	default:
		return LicenseActive
	}
}

// HasFeature reports whether the license carries feature.
func (l License) HasFeature(feature string) bool {
	return slices.Contains(l.Features, feature)
}

// IssueRequest describes a license to issue. Key is optional; when empty a
// random key is generated.
type IssueRequest struct {
	UserID       int64
	DurationDays int
	Features     []string
	Type         LicenseType
	MaxUsers     int
	Key          string
}

// LicensePatch is applied by bulk updates. Nil or zero fields are left as is.
type LicensePatch struct {
	Status     *LicenseStatus
	Type       *LicenseType
	MaxUsers   *int
	Features   []string
	ExtendDays int
}

// IsEmpty reports whether the patch changes nothing.
func (p LicensePatch) IsEmpty() bool {
	return p.Status == nil && p.Type == nil && p.MaxUsers == nil && p.Features == nil && p.ExtendDays == 0
}

// LicenseFilter narrows license listings. Zero values match everything.
// Status is compared against the effective status.
type LicenseFilter struct {
	UserID int64
	Status LicenseStatus
	Type   LicenseType
}

// Match reports whether l passes the filter on today.
func (f LicenseFilter) Match(l License, today Date) bool {
	if f.UserID != 0 && l.UserID != f.UserID {
		return false
	}
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.Status != "" && l.EffectiveStatus(today) != f.Status {
		return false
	}
	return true
}

// ValidationOutcome is the result of validating a license key.
type ValidationOutcome string

const (
	OutcomeValid     ValidationOutcome = "VALID"
	OutcomeExpired   ValidationOutcome = "EXPIRED"
	OutcomeSuspended ValidationOutcome = "SUSPENDED"
)
