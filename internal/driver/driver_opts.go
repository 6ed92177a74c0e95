package driver

import "time"

type DriverOpt func(*Driver)

func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}

func WithStartPaused(paused bool) DriverOpt {
	return func(d *Driver) {
		d.paused.Store(paused)
	}
}
