package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-gridworld/internal/driver"
	"github.com/pixil98/go-gridworld/internal/listener"
	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/session"
	"github.com/pixil98/go-gridworld/internal/sim"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Event bus
	bus, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Terrain and world
	world, err := cfg.World.buildWorld()
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}

	simulation := sim.NewSimulation(world, messaging.NewNatsPublisher(bus))

	drv := driver.NewDriver(
		[]driver.Ticker{simulation},
		driver.WithTickLength(cfg.tickLength()),
		driver.WithStartPaused(cfg.StartPaused),
	)

	// Agent sessions
	sessions := session.NewManager(drv, simulation, bus)
	cm := listener.NewConnectionManager(sessions)

	listeners := service.WorkerList{}
	for i, l := range cfg.listeners() {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = w
	}

	workers := service.WorkerList{
		"nats":      bus,
		"driver":    afterNats(bus, drv),
		"listeners": afterNats(bus, &listeners),
	}

	if !cfg.Observer.Disabled {
		workers["observer"] = afterNats(bus, cfg.Observer.buildServer(drv, simulation, bus))
	}

	if rec := cfg.Journal.buildRecorder(bus); rec != nil {
		workers["journal"] = afterNats(bus, rec)
	}

	return workers, nil
}

// natsGate holds a worker back until the embedded bus accepts clients.
type natsGate struct {
	bus *messaging.NatsServer
	w   service.Worker
}

func afterNats(bus *messaging.NatsServer, w service.Worker) *natsGate {
	return &natsGate{bus: bus, w: w}
}

func (g *natsGate) Start(ctx context.Context) error {
	if err := g.bus.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return g.w.Start(ctx)
}
