package workers

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

// Periodic runs a Task every interval. A non-positive interval disables it.
type Periodic struct {
	name     string
	interval time.Duration
	task     Task

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	runMu  sync.Mutex

	logger *logger.Logger
}

// NewPeriodic creates a Periodic job. It is idle until Start is called.
func NewPeriodic(name string, interval time.Duration, task Task, log *logger.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		logger:   log,
	}
}

// Name returns the job name used in logs.
func (p *Periodic) Name() string {
	return p.name
}

// Enabled reports whether Start will schedule the job.
func (p *Periodic) Enabled() bool {
	return p.interval > 0
}

// RunOnce runs the task a single time. Runs never overlap.
func (p *Periodic) RunOnce(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	started := time.Now()
	err := p.task(ctx)
	if err != nil {
		p.logger.Err(err).Str("func", "Periodic.RunOnce").Str("job", p.name).Msg("periodic job failed")
		return err
	}

	p.logger.Debug().Str("func", "Periodic.RunOnce").Str("job", p.name).
		Dur("took", time.Since(started)).Msg("periodic job finished")
	return nil
}

// Start implements Worker. It stops any previously running loop, then
// launches a goroutine that calls RunOnce every interval. The goroutine
// exits when ctx is cancelled or Stop is called.
func (p *Periodic) Start(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Info().Str("func", "Periodic.Start").Str("job", p.name).Msg("periodic job disabled")
		return
	}

	p.Stop()

	p.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Info().Str("func", "Periodic.Start").Str("job", p.name).
		Dur("interval", p.interval).Msg("periodic job started")

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				_ = p.RunOnce(jobCtx)
			}
		}
	}()
}

// Stop implements Worker. It cancels the loop and blocks until it has
// fully exited. Safe to call when the job is not running.
func (p *Periodic) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}
