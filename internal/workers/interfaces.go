// Package workers runs the keeper's background jobs: the license expiry
// sweep and the periodic auto-backup.
//
// A job is a [Task]. [Periodic] drives a task on a ticker, but RunOnce is
// exported so that any other scheduler (cron, a test, an admin command) can
// drive the same task without the ticker.
package workers

import (
	"context"

	"github.com/MKhiriev/go-license-keeper/models"
)

// Worker is a background job started with the process.
//
// Start must not block; the job runs until ctx is cancelled or Stop is
// called. Stop blocks until the job has exited.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// LicenseSweeper expires licenses past their end date.
type LicenseSweeper interface {
	Sweep(ctx context.Context) (int, error)
	Statistics(ctx context.Context) models.Statistics
}

// Backuper writes a backup of the current state.
type Backuper interface {
	Backup(ctx context.Context) (string, error)
}

// StatisticsObserver receives license statistics after every sweep.
type StatisticsObserver interface {
	ObserveStatistics(stats models.Statistics)
}
