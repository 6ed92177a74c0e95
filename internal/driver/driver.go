package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	DefaultTickLength = time.Second
)

var ErrStopped = errors.New("driver is not running")

// Ticker is advanced once per timestep.
type Ticker interface {
	Tick(context.Context) error
}

// TaskFunc runs on the driver goroutine.
type TaskFunc func(context.Context) error

type task struct {
	fn   TaskFunc
	done chan error
}

// Driver owns the single goroutine that mutates simulation state. Timesteps
// and tasks submitted through Do are serialized on it.
type Driver struct {
	tickLength time.Duration
	tickers    []Ticker
	tasks      chan task
	stopped    chan struct{}
	paused     atomic.Bool
}

func NewDriver(tickers []Ticker, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		tickers:    tickers,
		tasks:      make(chan task),
		stopped:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start runs the loop until ctx is cancelled. A tick length of zero or less
// disables automatic timesteps; Step still works.
func (d *Driver) Start(ctx context.Context) error {
	defer close(d.stopped)

	var tick <-chan time.Time
	if d.tickLength > 0 {
		ticker := time.NewTicker(d.tickLength)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.InfoContext(ctx, "driver started", "tick", d.tickLength, "paused", d.paused.Load())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if d.paused.Load() {
				continue
			}
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		case t := <-d.tasks:
			t.done <- t.fn(ctx)
		}
	}
}

// Tick advances every ticker once. It must only be called on the driver goroutine.
func (d *Driver) Tick(ctx context.Context) error {
	for _, t := range d.tickers {
		if err := t.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Do runs fn on the driver goroutine and waits for its result.
func (d *Driver) Do(ctx context.Context, fn TaskFunc) error {
	t := task{fn: fn, done: make(chan error, 1)}

	select {
	case d.tasks <- t:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the task always completes, so wait for it even if ctx ends.
	return <-t.done
}

// Pause stops automatic timesteps.
func (d *Driver) Pause() {
	d.paused.Store(true)
}

// Resume restarts automatic timesteps.
func (d *Driver) Resume() {
	d.paused.Store(false)
}

func (d *Driver) Paused() bool {
	return d.paused.Load()
}

// Step advances one timestep regardless of the paused state.
func (d *Driver) Step(ctx context.Context) error {
	return d.Do(ctx, d.Tick)
}
