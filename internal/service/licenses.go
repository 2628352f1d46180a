// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/validators"
	"github.com/MKhiriev/go-license-keeper/models"
)

// SoonToExpireWindow is the number of days ahead Statistics looks for
// licenses about to expire.
const SoonToExpireWindow = 30

type licenseManager struct {
	state     *state
	keys      *keyGenerator
	validator validators.Validator

	logger *logger.Logger
}

func newLicenseManager(st *state, validator validators.Validator, log *logger.Logger) *licenseManager {
	return &licenseManager{
		state:     st,
		keys:      newKeyGenerator(),
		validator: validator,
		logger:    log,
	}
}

func (m *licenseManager) Issue(ctx context.Context, userID int64, durationDays int, features []string) (string, error) {
	return m.IssueWithOptions(ctx, models.IssueRequest{
		UserID:       userID,
		DurationDays: durationDays,
		Features:     features,
	})
}

func (m *licenseManager) IssueWithOptions(ctx context.Context, req models.IssueRequest) (string, error) {
	event := models.AuditEvent{UserID: req.UserID, Subject: req.Key}

	key, err := m.issue(ctx, req)
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditIssueLicense, event, err)
		return "", err
	}

	event.Subject = key
	m.state.auditor.Success(ctx, models.AuditIssueLicense, event)
	return key, nil
}

func (m *licenseManager) issue(ctx context.Context, req models.IssueRequest) (string, error) {
	if req.DurationDays <= 0 {
		return "", ErrInvalidDuration
	}
	if err := m.validator.Validate(ctx, req, validators.FieldUserID, validators.FieldMaxUsers); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := m.validator.Validate(ctx, req, validators.FieldKey); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidLicenseKey, err)
	}
	if req.Type == "" {
		req.Type = models.LicenseIndividual
	}

	var key string
	err := m.state.update(ctx, func(snap *models.Snapshot) error {
		if findUser(snap.Users, req.UserID) < 0 {
			return ErrUserNotFound
		}

		taken := func(k string) bool { return findLicense(snap.Licenses, k) >= 0 }
		switch {
		case req.Key == "":
			generated, err := m.keys.Generate(taken)
			if err != nil {
				return err
			}
			key = generated
		case taken(req.Key):
			return fmt.Errorf("%w: %q", ErrDuplicateLicenseKey, req.Key)
		default:
			key = req.Key
		}

		now := m.state.clock.Now().UTC()
		today := models.DateOf(now)
		end, ok := today.Extend(req.DurationDays)
		if !ok {
			return fmt.Errorf("%w: %d days from %s passes %s", ErrInvalidDuration, req.DurationDays, today, models.MaxDate)
		}
		snap.Licenses = append(snap.Licenses, models.License{
			Key:       key,
			UserID:    req.UserID,
			Type:      req.Type,
			Status:    models.LicenseActive,
			StartDate: today,
			EndDate:   end,
			Features:  dedupe(req.Features),
			MaxUsers:  req.MaxUsers,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Debug().Str("func", "licenseManager.issue").Str("license_key", key).Int64("user_id", req.UserID).Msg("license issued")
	return key, nil
}

// Validate reports the outcome for key. An ACTIVE license past its end date
// is flipped to EXPIRED and persisted; the outcome is Expired either way,
// and a failed save is returned alongside it.
func (m *licenseManager) Validate(ctx context.Context, key string) (models.ValidationOutcome, error) {
	var (
		license models.License
		found   bool
	)
	today := m.state.now()
	m.state.read(func(snap *models.Snapshot) {
		if i := findLicense(snap.Licenses, key); i >= 0 {
			license = snap.Licenses[i]
			found = true
		}
	})
	if !found {
		return "", ErrLicenseNotFound
	}

	switch license.EffectiveStatus(today) {
	case models.LicenseSuspended:
		return models.OutcomeSuspended, nil
	case models.LicenseActive:
		return models.OutcomeValid, nil
	}

	if license.Status == models.LicenseActive {
		if _, err := m.expire(ctx, []string{key}, today); err != nil {
			return models.OutcomeExpired, err
		}
	}
	return models.OutcomeExpired, nil
}

func (m *licenseManager) Renew(ctx context.Context, key string, durationDays int) error {
	event := models.AuditEvent{Subject: key}

	err := m.renew(ctx, key, durationDays)
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditRenewLicense, event, err)
		return err
	}

	m.state.auditor.Success(ctx, models.AuditRenewLicense, event)
	return nil
}

func (m *licenseManager) renew(ctx context.Context, key string, durationDays int) error {
	if durationDays <= 0 {
		return ErrInvalidDuration
	}

	return m.state.update(ctx, func(snap *models.Snapshot) error {
		i := findLicense(snap.Licenses, key)
		if i < 0 {
			return ErrLicenseNotFound
		}

		l := &snap.Licenses[i]
		now := m.state.clock.Now().UTC()
		end, err := renewedEnd(*l, models.DateOf(now), durationDays)
		if err != nil {
			return err
		}
		l.EndDate = end
		l.Status = models.LicenseActive
		l.UpdatedAt = now
		return nil
	})
}

// renewedEnd extends from the current end date while the license has not
// expired, and from today otherwise.
func renewedEnd(l models.License, today models.Date, days int) (models.Date, error) {
	from := l.EndDate
	if l.Status == models.LicenseExpired || l.ExpiredOn(today) {
		from = today
	}
	end, ok := from.Extend(days)
	if !ok {
		return models.Date{}, fmt.Errorf("%w: %d days from %s passes %s", ErrInvalidDuration, days, from, models.MaxDate)
	}
	return end, nil
}

func (m *licenseManager) Suspend(ctx context.Context, key string) error {
	event := models.AuditEvent{Subject: key}

	err := m.state.update(ctx, func(snap *models.Snapshot) error {
		i := findLicense(snap.Licenses, key)
		if i < 0 {
			return ErrLicenseNotFound
		}

		l := &snap.Licenses[i]
		if l.Status == models.LicenseSuspended {
			return errUnchanged
		}
		l.Status = models.LicenseSuspended
		l.UpdatedAt = m.state.clock.Now().UTC()
		return nil
	})
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditSuspendLicense, event, err)
		return err
	}

	m.state.auditor.Success(ctx, models.AuditSuspendLicense, event)
	return nil
}

// BulkUpdate applies patch to every known key in a single save and returns
// how many licenses were updated. Unknown and repeated keys are skipped.
func (m *licenseManager) BulkUpdate(ctx context.Context, keys []string, patch models.LicensePatch) (int, error) {
	event := models.AuditEvent{Subject: strings.Join(keys, ",")}

	count, err := m.bulkUpdate(ctx, keys, patch)
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditBulkUpdate, event, err)
		return 0, err
	}

	event.Reason = fmt.Sprintf("updated %d of %d", count, len(keys))
	m.state.auditor.Success(ctx, models.AuditBulkUpdate, event)
	return count, nil
}

func (m *licenseManager) bulkUpdate(ctx context.Context, keys []string, patch models.LicensePatch) (int, error) {
	switch {
	case patch.ExtendDays < 0:
		return 0, ErrInvalidDuration
	case patch.Status != nil && !patch.Status.IsValid():
		return 0, fmt.Errorf("%w: %w: %q", ErrInvalidInput, validators.ErrInvalidStatus, *patch.Status)
	case patch.MaxUsers != nil && *patch.MaxUsers < 0:
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, validators.ErrInvalidMaxUsers)
	case patch.IsEmpty() || len(keys) == 0:
		return 0, nil
	}

	count := 0
	err := m.state.update(ctx, func(snap *models.Snapshot) error {
		now := m.state.clock.Now().UTC()
		today := models.DateOf(now)

		for _, key := range dedupe(keys) {
			i := findLicense(snap.Licenses, key)
			if i < 0 {
				m.logger.Debug().Str("func", "licenseManager.bulkUpdate").Str("license_key", key).Msg("skipping unknown license")
				continue
			}

			l := &snap.Licenses[i]
			if patch.ExtendDays > 0 {
				end, err := renewedEnd(*l, today, patch.ExtendDays)
				if err != nil {
					return fmt.Errorf("license %s: %w", key, err)
				}
				l.EndDate = end
				if l.Status == models.LicenseExpired {
					l.Status = models.LicenseActive
				}
			}
			if patch.Status != nil {
				l.Status = *patch.Status
			}
			if patch.Type != nil {
				l.Type = *patch.Type
			}
			if patch.MaxUsers != nil {
				l.MaxUsers = *patch.MaxUsers
			}
			if patch.Features != nil {
				l.Features = dedupe(patch.Features)
			}
			l.UpdatedAt = now
			count++
		}

		if count == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (m *licenseManager) Statistics(_ context.Context) models.Statistics {
	today := m.state.now()
	stats := models.Statistics{
		ByType:       make(map[models.LicenseType]int),
		SoonToExpire: []models.ExpiringLicense{},
	}

	m.state.read(func(snap *models.Snapshot) {
		for _, l := range snap.Licenses {
			stats.Total++
			stats.ByType[l.Type]++

			switch l.EffectiveStatus(today) {
			case models.LicenseSuspended:
				stats.Suspended++
			case models.LicenseExpired:
				stats.Expired++
			default:
				stats.Active++
				if days := l.DaysRemaining(today); days >= 0 && days <= SoonToExpireWindow {
					stats.SoonToExpire = append(stats.SoonToExpire, models.ExpiringLicense{
						Key:           l.Key,
						UserID:        l.UserID,
						EndDate:       l.EndDate,
						DaysRemaining: days,
					})
				}
			}
		}
	})

	slices.SortFunc(stats.SoonToExpire, func(a, b models.ExpiringLicense) int {
		return cmp.Or(cmp.Compare(a.DaysRemaining, b.DaysRemaining), strings.Compare(a.Key, b.Key))
	})
	return stats
}

// Get returns the license with its effective status.
func (m *licenseManager) Get(_ context.Context, key string) (models.License, error) {
	var (
		license models.License
		found   bool
	)
	today := m.state.now()
	m.state.read(func(snap *models.Snapshot) {
		if i := findLicense(snap.Licenses, key); i >= 0 {
			license = effective(snap.Licenses[i], today)
			found = true
		}
	})
	if !found {
		return models.License{}, ErrLicenseNotFound
	}
	return license, nil
}

func (m *licenseManager) ListByUser(ctx context.Context, userID int64) []models.License {
	if userID <= 0 {
		return []models.License{}
	}
	return m.List(ctx, models.LicenseFilter{UserID: userID})
}

// List returns the licenses matching filter with their effective status,
// ordered by creation time.
func (m *licenseManager) List(_ context.Context, filter models.LicenseFilter) []models.License {
	today := m.state.now()
	licenses := []models.License{}
	m.state.read(func(snap *models.Snapshot) {
		for _, l := range snap.Licenses {
			if filter.Match(l, today) {
				licenses = append(licenses, effective(l, today))
			}
		}
	})
	slices.SortStableFunc(licenses, func(a, b models.License) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return licenses
}

// EffectiveLicense returns the most recently issued license of the user
// that is currently active.
func (m *licenseManager) EffectiveLicense(_ context.Context, userID int64) (models.License, error) {
	var (
		best  models.License
		found bool
	)
	today := m.state.now()
	m.state.read(func(snap *models.Snapshot) {
		for _, l := range snap.Licenses {
			if l.UserID != userID || l.EffectiveStatus(today) != models.LicenseActive {
				continue
			}
			if !found || !l.CreatedAt.Before(best.CreatedAt) {
				best = l.Clone()
				found = true
			}
		}
	})
	if !found {
		return models.License{}, ErrLicenseNotFound
	}
	return best, nil
}

func (m *licenseManager) HasFeature(ctx context.Context, userID int64, feature string) bool {
	l, err := m.EffectiveLicense(ctx, userID)
	return err == nil && l.HasFeature(feature)
}

func (m *licenseManager) Delete(ctx context.Context, key string) error {
	event := models.AuditEvent{Subject: key}

	err := m.state.update(ctx, func(snap *models.Snapshot) error {
		i := findLicense(snap.Licenses, key)
		if i < 0 {
			return ErrLicenseNotFound
		}
		event.UserID = snap.Licenses[i].UserID
		snap.Licenses = slices.Delete(snap.Licenses, i, i+1)
		return nil
	})
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditDeleteLicense, event, err)
		return err
	}

	m.state.auditor.Success(ctx, models.AuditDeleteLicense, event)
	return nil
}

// Sweep flips every ACTIVE license past its end date to EXPIRED and returns
// how many were flipped. Candidates are collected under the read lock; the
// write lock is taken only when something needs to change.
func (m *licenseManager) Sweep(ctx context.Context) (int, error) {
	today := m.state.now()

	var candidates []string
	m.state.read(func(snap *models.Snapshot) {
		for _, l := range snap.Licenses {
			if needsExpiry(l, today) {
				candidates = append(candidates, l.Key)
			}
		}
	})
	if len(candidates) == 0 {
		return 0, nil
	}

	flipped, err := m.expire(ctx, candidates, today)
	if err != nil {
		m.logger.Err(err).Str("func", "licenseManager.Sweep").Msg("error persisting expired licenses")
		return 0, err
	}
	if flipped > 0 {
		m.logger.Info().Str("func", "licenseManager.Sweep").Int("expired", flipped).Msg("licenses expired")
	}
	return flipped, nil
}

// expire flips the given licenses to EXPIRED when they still need it.
func (m *licenseManager) expire(ctx context.Context, keys []string, today models.Date) (int, error) {
	var flipped []string
	err := m.state.update(ctx, func(snap *models.Snapshot) error {
		now := m.state.clock.Now().UTC()
		for _, key := range keys {
			i := findLicense(snap.Licenses, key)
			// re-checked: the license may have changed since it was read
			if i < 0 || !needsExpiry(snap.Licenses[i], today) {
				continue
			}
			snap.Licenses[i].Status = models.LicenseExpired
			snap.Licenses[i].UpdatedAt = now
			flipped = append(flipped, key)
		}
		if len(flipped) == 0 {
			return errUnchanged
		}
		return nil
	})

	event := models.AuditEvent{Subject: strings.Join(keys, ",")}
	if err != nil {
		m.state.auditor.Failure(ctx, models.AuditExpireLicenses, event, err)
		return 0, err
	}
	if len(flipped) > 0 {
		event.Subject = strings.Join(flipped, ",")
		m.state.auditor.Success(ctx, models.AuditExpireLicenses, event)
	}
	return len(flipped), nil
}

func needsExpiry(l models.License, today models.Date) bool {
	return l.Status == models.LicenseActive && l.ExpiredOn(today)
}

func effective(l models.License, today models.Date) models.License {
	c := l.Clone()
	c.Status = l.EffectiveStatus(today)
	return c
}
