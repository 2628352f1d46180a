package workers

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-license-keeper/internal/config"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

// Job names.
const (
	SweepJobName  = "license-sweep"
	BackupJobName = "auto-backup"
)

type Workers struct {
	workers []Worker
}

// NewWorkers builds the sweep and auto-backup jobs. A nil backuper leaves
// the auto-backup out; a nil observer skips publishing statistics.
func NewWorkers(cfg config.Workers, licenses LicenseSweeper, backups Backuper, observer StatisticsObserver, log *logger.Logger) *Workers {
	w := &Workers{}

	w.workers = append(w.workers, NewPeriodic(SweepJobName, cfg.SweepInterval, SweepTask(licenses, observer, log), log))
	if backups != nil {
		w.workers = append(w.workers, NewPeriodic(BackupJobName, cfg.BackupInterval, BackupTask(backups, log), log))
	}

	return w
}

// Start starts every worker.
func (w *Workers) Start(ctx context.Context) {
	for _, worker := range w.workers {
		worker.Start(ctx)
	}
}

// Stop stops every worker and waits for them to exit.
func (w *Workers) Stop() {
	for _, worker := range w.workers {
		worker.Stop()
	}
}

// SweepTask expires overdue licenses and publishes fresh statistics.
func SweepTask(licenses LicenseSweeper, observer StatisticsObserver, log *logger.Logger) Task {
	return func(ctx context.Context) error {
		n, err := licenses.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep licenses: %w", err)
		}
		if n > 0 {
			log.Info().Str("func", "SweepTask").Int("expired", n).Msg("expired overdue licenses")
		}
		if observer != nil {
			observer.ObserveStatistics(licenses.Statistics(ctx))
		}
		return nil
	}
}

// BackupTask writes a backup of the current state.
func BackupTask(backups Backuper, log *logger.Logger) Task {
	return func(ctx context.Context) error {
		name, err := backups.Backup(ctx)
		if err != nil {
			return fmt.Errorf("auto-backup: %w", err)
		}
		log.Info().Str("func", "BackupTask").Str("backup", name).Msg("auto-backup written")
		return nil
	}
}
