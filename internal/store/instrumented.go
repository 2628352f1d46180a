package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-license-keeper/models"
)

// InstrumentedRepository reports the duration and outcome of every save to
// an observer.
type InstrumentedRepository struct {
	Repository
	observer SaveObserver
}

// Instrument wraps repo. A nil observer returns repo unchanged.
func Instrument(repo Repository, observer SaveObserver) Repository {
	if observer == nil {
		return repo
	}
	return &InstrumentedRepository{Repository: repo, observer: observer}
}

// Save implements [Repository].
func (r *InstrumentedRepository) Save(ctx context.Context, snapshot models.Snapshot) error {
	start := time.Now()
	err := r.Repository.Save(ctx, snapshot)
	r.observer.ObserveSave(time.Since(start), err)
	return err
}
