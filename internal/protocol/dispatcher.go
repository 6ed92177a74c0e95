package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/terrain"
)

// World is the view of the simulation that request handlers operate on.
type World interface {
	MoveAgent(ctx context.Context, id string, target game.Position) error
	TileAt(p game.Position) (terrain.Type, bool)
	AgentCount() int
	Size() int
	PerceptionRadius() int
	TimeStep() int
}

// HandlerFunc answers one classified request for one agent.
type HandlerFunc func(ctx context.Context, agentID string, req *Request) (Response, error)

type Dispatcher struct {
	world    World
	handlers map[Kind]map[string]HandlerFunc
	unknown  map[Kind]string
	now      func() time.Time
}

type DispatcherOpt func(*Dispatcher)

// WithClock overrides the time source used by ping.
func WithClock(now func() time.Time) DispatcherOpt {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(world World, opts ...DispatcherOpt) *Dispatcher {
	d := &Dispatcher{
		world:    world,
		handlers: make(map[Kind]map[string]HandlerFunc),
		unknown: map[Kind]string{
			KindAction: tmplUnknownAction,
			KindQuery:  tmplUnknownQuery,
			KindSystem: tmplUnknownSystem,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	// Register built-in handlers
	d.mustRegister(KindAction, "move", d.move)
	d.mustRegister(KindAction, "interact", d.interact)
	d.mustRegister(KindQuery, "observation", d.observation)
	d.mustRegister(KindQuery, "status", d.status)
	d.mustRegister(KindSystem, "ping", d.ping)
	d.mustRegister(KindSystem, "info", d.info)
	return d
}

// Register adds a handler for a request kind and name. Names are matched case-insensitively.
func (d *Dispatcher) Register(kind Kind, name string, fn HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, ok := d.unknown[kind]; !ok {
		return fmt.Errorf("unknown request kind %q", kind)
	}
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[string]HandlerFunc)
	}
	name = normalizeName(name)
	if _, exists := d.handlers[kind][name]; exists {
		return fmt.Errorf("%s handler %q already registered", kind, name)
	}
	d.handlers[kind][name] = fn
	return nil
}

func (d *Dispatcher) mustRegister(kind Kind, name string, fn HandlerFunc) {
	if err := d.Register(kind, name, fn); err != nil {
		panic(err)
	}
}

// Dispatch parses raw bytes from an agent and returns the response to send back.
// It never fails; every problem becomes an ErrorResponse.
func (d *Dispatcher) Dispatch(ctx context.Context, agentID string, raw []byte) Response {
	req, err := DecodeRequest(raw)
	if err != nil {
		slog.DebugContext(ctx, "unparsable request", "agent", agentID, "error", err)
		return NewError(tmplInvalidFormat)
	}

	fn, ok := d.handlers[req.Kind][req.Name]
	if !ok {
		return NewError(expand(d.unknown[req.Kind], req))
	}

	resp, err := fn(ctx, agentID, req)
	if err != nil {
		var agentErr *AgentError
		if errors.As(err, &agentErr) {
			return NewError(agentErr.Message)
		}
		slog.ErrorContext(ctx, "handling request", "agent", agentID, "kind", req.Kind, "name", req.Name, "error", err)
		return NewError("Internal server error")
	}
	return resp
}

func (d *Dispatcher) move(ctx context.Context, agentID string, req *Request) (Response, error) {
	if req.TargetTile == nil {
		return nil, NewAgentError("Move action requires targetTile")
	}

	target := game.Position{X: req.TargetTile.X, Y: req.TargetTile.Y}
	err := d.world.MoveAgent(ctx, agentID, target)
	if err != nil {
		if errors.Is(err, game.ErrAgentNotFound) || errors.Is(err, game.ErrOutOfBounds) ||
			errors.Is(err, game.ErrNotAdjacent) || errors.Is(err, game.ErrBlocked) {
			return nil, NewAgentError(expand(tmplInvalidMove, map[string]string{"Reason": err.Error()}))
		}
		return nil, fmt.Errorf("moving agent %q: %w", agentID, err)
	}

	tile, _ := d.world.TileAt(target)
	return NewSuccess("Moved", map[string]string{
		"x":        strconv.Itoa(target.X),
		"y":        strconv.Itoa(target.Y),
		"tileType": tile.String(),
	}), nil
}

func (d *Dispatcher) interact(context.Context, string, *Request) (Response, error) {
	return nil, NewAgentError("Interact action not yet implemented")
}

func (d *Dispatcher) observation(context.Context, string, *Request) (Response, error) {
	step := d.world.TimeStep()
	return NewSuccess(expand(tmplWaitTimestep, map[string]int{"TimeStep": step}), map[string]string{
		"timeStep": strconv.Itoa(step),
	}), nil
}

func (d *Dispatcher) status(context.Context, string, *Request) (Response, error) {
	return NewSuccess("Server status", map[string]string{
		"status":          "running",
		"connectedAgents": strconv.Itoa(d.world.AgentCount()),
		"timeStep":        strconv.Itoa(d.world.TimeStep()),
	}), nil
}

func (d *Dispatcher) ping(context.Context, string, *Request) (Response, error) {
	return NewSuccess("pong", map[string]string{
		"timestamp": d.now().UTC().Format(time.RFC3339Nano),
	}), nil
}

func (d *Dispatcher) info(context.Context, string, *Request) (Response, error) {
	return NewSuccess("Server info", map[string]string{
		"worldSize":        strconv.Itoa(d.world.Size()),
		"agentCount":       strconv.Itoa(d.world.AgentCount()),
		"perceptionRadius": strconv.Itoa(d.world.PerceptionRadius()),
	}), nil
}
