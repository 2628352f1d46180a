package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/stretchr/testify/assert"
)

func countingTask(counter *atomic.Int32, err error) Task {
	return func(context.Context) error {
		counter.Add(1)
		return err
	}
}

func TestPeriodic_RunOnce(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("job", -1, countingTask(&runs, nil), logger.Nop())

	assert.NoError(t, p.RunOnce(context.Background()))
	assert.Equal(t, int32(1), runs.Load())

	boom := errors.New("boom")
	p = NewPeriodic("job", -1, countingTask(&runs, boom), logger.Nop())
	assert.ErrorIs(t, p.RunOnce(context.Background()), boom)
}

func TestPeriodic_TicksUntilStopped(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("job", 5*time.Millisecond, countingTask(&runs, nil), logger.Nop())

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	p.Stop()

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestPeriodic_KeepsTickingAfterFailure(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("job", 5*time.Millisecond, countingTask(&runs, errors.New("boom")), logger.Nop())

	p.Start(context.Background())
	defer p.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestPeriodic_StopsWithContext(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("job", 5*time.Millisecond, countingTask(&runs, nil), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the context was cancelled")
	}
}

func TestPeriodic_Disabled(t *testing.T) {
	var runs atomic.Int32
	for _, interval := range []time.Duration{0, -time.Second} {
		p := NewPeriodic("job", interval, countingTask(&runs, nil), logger.Nop())
		assert.False(t, p.Enabled())

		p.Start(context.Background())
		time.Sleep(10 * time.Millisecond)
		p.Stop()
	}
	assert.Zero(t, runs.Load())
}

func TestPeriodic_RestartReplacesLoop(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("job", 5*time.Millisecond, countingTask(&runs, nil), logger.Nop())

	p.Start(context.Background())
	p.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	p.Stop()

	// Stop is idempotent
	p.Stop()
}
