package annotate

import (
	"context"
	"time"
)

// pacer enforces a minimum interval between batch starts. The clock and
// sleep functions are fields so tests can run without waiting.
type pacer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous call, then records the current time as the new batch start.
// The first call never blocks.
func (p *pacer) Wait(ctx context.Context) error {
	if p.interval > 0 && !p.last.IsZero() {
		if wait := p.interval - p.now().Sub(p.last); wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	p.last = p.now()
	return nil
}

// sleepContext sleeps for d with context awareness.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
