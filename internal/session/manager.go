package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-gridworld/internal/driver"
	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/protocol"
)

const (
	DefaultBufferSize   = 16
	DefaultLeaveTimeout = 5 * time.Second
)

// Loop runs work on the goroutine that owns the simulation.
type Loop interface {
	Do(ctx context.Context, fn driver.TaskFunc) error
}

type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Simulation is what a session needs from the world. Calls are made through Loop.
type Simulation interface {
	Join(ctx context.Context, id string) (*protocol.Observation, error)
	Leave(ctx context.Context, id string) bool
	Handle(ctx context.Context, id string, raw []byte) protocol.Response
}

type Manager struct {
	loop   Loop
	sim    Simulation
	bus    Subscriber
	active atomic.Int64

	bufferSize   int
	leaveTimeout time.Duration
	newID        func() string
}

type ManagerOpt func(*Manager)

// WithBufferSize sets how many undelivered observations a session may queue.
func WithBufferSize(n int) ManagerOpt {
	return func(m *Manager) {
		m.bufferSize = n
	}
}

func WithLeaveTimeout(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.leaveTimeout = d
	}
}

// WithIDFunc overrides agent id generation.
func WithIDFunc(fn func() string) ManagerOpt {
	return func(m *Manager) {
		m.newID = fn
	}
}

func NewManager(loop Loop, sim Simulation, bus Subscriber, opts ...ManagerOpt) *Manager {
	m := &Manager{
		loop:         loop,
		sim:          sim,
		bus:          bus,
		bufferSize:   DefaultBufferSize,
		leaveTimeout: DefaultLeaveTimeout,
		newID: func() string {
			return "agent-" + uuid.NewString()
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// RunSession places a new agent for conn and serves it until the connection
// ends or ctx is cancelled. The agent is removed from the world on return.
func (m *Manager) RunSession(ctx context.Context, conn io.ReadWriter) error {
	s := &Session{
		id:   m.newID(),
		conn: conn,
		m:    m,
		msgs: make(chan []byte, m.bufferSize),
	}

	// Subscribe before joining so no timestep is missed.
	unsub, err := m.bus.Subscribe(messaging.AgentSubject(s.id), s.deliver)
	if err != nil {
		return fmt.Errorf("subscribing agent %q: %w", s.id, err)
	}
	defer unsub()

	var first *protocol.Observation
	err = m.loop.Do(ctx, func(ctx context.Context) error {
		var err error
		first, err = m.sim.Join(ctx, s.id)
		return err
	})
	if err != nil {
		if errors.Is(err, game.ErrNoPlacement) {
			if writeErr := s.send(protocol.NewError("Unable to place agent: no valid tile available")); writeErr != nil {
				slog.WarnContext(ctx, "failed to write placement error", "agent", s.id, "error", writeErr)
			}
		}
		return fmt.Errorf("joining agent %q: %w", s.id, err)
	}
	defer m.leave(ctx, s.id)

	m.active.Add(1)
	defer m.active.Add(-1)
	slog.InfoContext(ctx, "agent session started", "agent", s.id, "sessions", m.Active())

	if err := s.send(first); err != nil {
		return err
	}

	return s.play(ctx)
}

func (m *Manager) leave(ctx context.Context, id string) {
	// The session context may already be cancelled; removal must still happen.
	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.leaveTimeout)
	defer cancel()

	err := m.loop.Do(leaveCtx, func(ctx context.Context) error {
		m.sim.Leave(ctx, id)
		return nil
	})
	if err != nil && !errors.Is(err, driver.ErrStopped) {
		slog.WarnContext(ctx, "removing agent", "agent", id, "error", err)
	}
}
