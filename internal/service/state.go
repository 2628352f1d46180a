// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MKhiriev/go-license-keeper/internal/audit"
	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/store"
	"github.com/MKhiriev/go-license-keeper/models"
)

// state owns the in-memory snapshot shared by all services.
//
// Readers hold mu for reading. Writers clone the snapshot, mutate the clone,
// persist it and only then swap it in, so a failed save leaves the previous
// snapshot untouched. sync.RWMutex blocks new readers once a writer is
// waiting, which keeps the expiry sweep from being starved by readers.
type state struct {
	mu   sync.RWMutex
	snap models.Snapshot

	repo    store.Repository
	clock   clock.Clock
	auditor *audit.Auditor
	logger  *logger.Logger
}

func newState(ctx context.Context, repo store.Repository, clk clock.Clock, auditor *audit.Auditor, log *logger.Logger) (*state, error) {
	snap, err := repo.Load(ctx)
	if err != nil {
		log.Err(err).Str("func", "newState").Msg("error loading persisted state")
		return nil, err
	}

	s := &state{repo: repo, clock: clk, auditor: auditor, logger: log}

	seeded, changed := seedRoles(snap)
	if changed {
		if err := s.save(ctx, seeded); err != nil {
			return nil, err
		}
		log.Info().Str("func", "newState").Msg("seeded built-in roles")
	}
	s.snap = seeded

	return s, nil
}

// seedRoles adds every missing built-in role.
func seedRoles(snap models.Snapshot) (models.Snapshot, bool) {
	changed := false
	for _, role := range models.DefaultRoles() {
		if findRole(snap.Roles, role.Name) >= 0 {
			continue
		}
		if !changed {
			snap = snap.Clone()
			changed = true
		}
		snap.Roles = append(snap.Roles, role)
	}
	if snap.NextUserID < 1 {
		if !changed {
			snap = snap.Clone()
		}
		snap.NextUserID = 1
		changed = true
	}
	return snap, changed
}

// read runs fn with the current snapshot under the read lock. fn must not
// retain or modify the snapshot.
func (s *state) read(fn func(snap *models.Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.snap)
}

// update runs fn on a clone of the snapshot under the write lock and
// persists the clone. When fn returns errUnchanged nothing is saved and nil
// is returned.
func (s *state) update(ctx context.Context, fn func(snap *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.snap = next
	return nil
}

// exclusive runs fn under the write lock without saving.
func (s *state) exclusive(fn func(snap models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.snap)
}

// replace swaps in the snapshot returned by fn, which runs under the write
// lock with the current snapshot. The result is persisted first.
func (s *state) replace(ctx context.Context, fn func(current models.Snapshot) (models.Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.snap)
	if err != nil {
		return err
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.snap = next
	return nil
}

func (s *state) save(ctx context.Context, snap models.Snapshot) error {
	// a save in progress is not interrupted by the caller going away
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.Save(ctx, snap); err != nil {
		s.logger.Err(err).Str("func", "state.save").Msg("error persisting state")
		if errors.Is(err, ErrStorage) || errors.Is(err, ErrIntegrity) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (s *state) now() models.Date {
	return models.DateOf(s.clock.Now())
}

func findUser(users []models.User, id int64) int {
	return slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
}

func findUsername(users []models.User, username string) int {
	return slices.IndexFunc(users, func(u models.User) bool { return u.Username == username })
}

func findRole(roles []models.Role, name string) int {
	return slices.IndexFunc(roles, func(r models.Role) bool { return r.Name == name })
}

func findLicense(licenses []models.License, key string) int {
	return slices.IndexFunc(licenses, func(l models.License) bool { return l.Key == key })
}
