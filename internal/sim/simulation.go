package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/protocol"
	"github.com/pixil98/go-gridworld/internal/terrain"
)

// Simulation couples the world to its timestep and publishes what changes.
// None of its methods are safe for concurrent use; callers serialize them on
// the driver goroutine.
type Simulation struct {
	world      *game.World
	pub        Publisher
	dispatcher *protocol.Dispatcher
	step       int
	now        func() time.Time
}

type SimulationOpt func(*Simulation)

func WithClock(now func() time.Time) SimulationOpt {
	return func(s *Simulation) {
		s.now = now
	}
}

func NewSimulation(world *game.World, pub Publisher, opts ...SimulationOpt) *Simulation {
	s := &Simulation{
		world: world,
		pub:   pub,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = protocol.NewDispatcher(s, protocol.WithClock(s.now))
	return s
}

func (s *Simulation) TimeStep() int {
	return s.step
}

func (s *Simulation) Size() int {
	return s.world.Size()
}

func (s *Simulation) PerceptionRadius() int {
	return s.world.PerceptionRadius()
}

func (s *Simulation) AgentCount() int {
	return s.world.AgentCount()
}

func (s *Simulation) TileAt(p game.Position) (terrain.Type, bool) {
	return s.world.TileAt(p)
}

// MoveAgent moves the agent and announces the move.
func (s *Simulation) MoveAgent(ctx context.Context, id string, target game.Position) error {
	before, ok := s.world.Agent(id)
	if !ok {
		return game.ErrAgentNotFound
	}
	if err := s.world.MoveAgent(id, target); err != nil {
		return err
	}

	from := before.Position
	s.publishEvent(ctx, Event{
		Kind:     EventAgentMoved,
		AgentID:  id,
		Color:    before.Color,
		From:     &from,
		Position: &target,
	})
	return nil
}

// Join places a new agent and returns its first observation.
func (s *Simulation) Join(ctx context.Context, id string) (*protocol.Observation, error) {
	pos, err := s.world.PlaceAgent(id)
	if err != nil {
		return nil, fmt.Errorf("placing agent %q: %w", id, err)
	}

	obs := s.world.CreateObservation(id, 0)
	if obs == nil {
		s.world.RemoveAgent(id)
		return nil, fmt.Errorf("observing agent %q: %w", id, game.ErrAgentNotFound)
	}

	info, _ := s.world.Agent(id)
	slog.InfoContext(ctx, "agent joined", "agent", id, "x", pos.X, "y", pos.Y, "agents", s.world.AgentCount())
	s.publishEvent(ctx, Event{
		Kind:     EventAgentConnected,
		AgentID:  id,
		Color:    info.Color,
		Position: &pos,
	})

	return protocol.NewObservation(obs), nil
}

// Leave removes the agent. It reports whether the agent was present.
func (s *Simulation) Leave(ctx context.Context, id string) bool {
	info, ok := s.world.Agent(id)
	if !ok || !s.world.RemoveAgent(id) {
		return false
	}

	slog.InfoContext(ctx, "agent left", "agent", id, "agents", s.world.AgentCount())
	pos := info.Position
	s.publishEvent(ctx, Event{
		Kind:     EventAgentDisconnected,
		AgentID:  id,
		Color:    info.Color,
		Position: &pos,
	})
	return true
}

// Handle answers one raw request from an agent.
func (s *Simulation) Handle(ctx context.Context, id string, raw []byte) protocol.Response {
	return s.dispatcher.Dispatch(ctx, id, raw)
}

// Register adds a request handler alongside the built-in ones.
func (s *Simulation) Register(kind protocol.Kind, name string, fn protocol.HandlerFunc) error {
	return s.dispatcher.Register(kind, name, fn)
}

// Tick is called by the driver once per timestep.
func (s *Simulation) Tick(ctx context.Context) error {
	return s.AdvanceTimestep(ctx)
}

// AdvanceTimestep moves the world one timestep forward and sends every
// connected agent a fresh observation. It is the only path that delivers
// observations after the one sent on join.
func (s *Simulation) AdvanceTimestep(ctx context.Context) error {
	s.step++

	sent := 0
	for _, id := range s.world.AgentIDs() {
		obs := s.world.CreateObservation(id, s.step)
		if obs == nil {
			slog.WarnContext(ctx, "skipping observation for agent with invalid state", "agent", id)
			continue
		}

		b, err := protocol.Encode(protocol.NewObservation(obs))
		if err != nil {
			return err
		}
		if err := s.pub.PublishToAgent(id, b); err != nil {
			slog.WarnContext(ctx, "delivering observation", "agent", id, "error", err)
			continue
		}
		sent++
	}

	slog.DebugContext(ctx, "timestep advanced", "step", s.step, "observations", sent)
	s.publishEvent(ctx, Event{Kind: EventTimestep})
	return nil
}

// State returns a copy of the world for renderers.
func (s *Simulation) State() State {
	return State{TimeStep: s.step, World: s.world.Snapshot()}
}

func (s *Simulation) publishEvent(ctx context.Context, e Event) {
	e.TimeStep = s.step
	e.Time = s.now().UTC()
	e.Agents = s.world.AgentCount()

	b, err := json.Marshal(e)
	if err != nil {
		slog.ErrorContext(ctx, "encoding event", "kind", e.Kind, "error", err)
		return
	}
	if err := s.pub.PublishEvent(string(e.Kind), b); err != nil {
		slog.WarnContext(ctx, "publishing event", "kind", e.Kind, "error", err)
	}
}
