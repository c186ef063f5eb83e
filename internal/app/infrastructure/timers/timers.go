package timers

import (
	"context"
	"time"
)

// Task is one run of a periodic job. It should honour ctx cancellation.
type Task func(ctx context.Context)

// Periodic runs a task on a fixed interval until its context is cancelled.
// Runs never overlap: a tick that fires while the task is still running is
// dropped by the ticker.
type Periodic struct {
	name       string
	interval   time.Duration
	task       Task
	runAtStart bool
}

type Option func(p *Periodic)

// RunAtStart makes Serve run the task once before waiting for the first tick.
func RunAtStart() Option {
	return func(p *Periodic) {
		p.runAtStart = true
	}
}

func NewPeriodic(name string, interval time.Duration, task Task, opts ...Option) *Periodic {
	p := &Periodic{
		name:     name,
		interval: interval,
		task:     task,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Periodic) String() string {
	return p.name
}

func (p *Periodic) Interval() time.Duration {
	return p.interval
}

func (p *Periodic) Serve(ctx context.Context) error {
	if p.runAtStart {
		p.task(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.task(ctx)
		}
	}
}
