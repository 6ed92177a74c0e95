package game

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/pixil98/go-gridworld/internal/terrain"
)

const (
	DefaultPerceptionRadius = 5
	MaxPlacementAttempts    = 100
)

// World is the single source of truth for the grid and the agents on it.
// It is not safe for concurrent use; callers serialize access through the driver.
type World struct {
	grid   *terrain.Grid
	rng    *rand.Rand
	radius int

	agents   map[string]AgentInfo
	occupied map[Position]string
}

type WorldOpt func(*World)

// WithPerceptionRadius sets the half-width of the square each agent observes.
func WithPerceptionRadius(r int) WorldOpt {
	return func(w *World) {
		w.radius = r
	}
}

// NewWorld wraps a generated grid. The random source drives agent placement and colors.
func NewWorld(grid *terrain.Grid, rng *rand.Rand, opts ...WorldOpt) *World {
	w := &World{
		grid:     grid,
		rng:      rng,
		radius:   DefaultPerceptionRadius,
		agents:   make(map[string]AgentInfo),
		occupied: make(map[Position]string),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *World) Size() int {
	return w.grid.Size()
}

func (w *World) PerceptionRadius() int {
	return w.radius
}

// TileAt returns the terrain at p. Out of bounds positions report false.
func (w *World) TileAt(p Position) (terrain.Type, bool) {
	return w.grid.At(p.X, p.Y)
}

// Agent returns the registry entry for id.
func (w *World) Agent(id string) (AgentInfo, bool) {
	a, ok := w.agents[id]
	return a, ok
}

// AgentCount returns the number of agents in the world.
func (w *World) AgentCount() int {
	return len(w.agents)
}

// AgentIDs returns every registered agent id in sorted order.
func (w *World) AgentIDs() []string {
	ids := make([]string, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsValidForAgent reports whether an agent could stand on (x, y) right now.
func (w *World) IsValidForAgent(x, y int) bool {
	t, ok := w.grid.At(x, y)
	if !ok || !t.Passable() {
		return false
	}
	_, taken := w.occupied[Position{X: x, Y: y}]
	return !taken
}

// PlaceAgent drops a new agent on a random free passable tile.
func (w *World) PlaceAgent(id string) (Position, error) {
	if _, exists := w.agents[id]; exists {
		return Position{}, ErrAgentExists
	}

	size := w.grid.Size()
	if size <= 0 {
		return Position{}, ErrNoPlacement
	}

	for i := 0; i < MaxPlacementAttempts; i++ {
		p := Position{X: w.rng.IntN(size), Y: w.rng.IntN(size)}
		if !w.IsValidForAgent(p.X, p.Y) {
			continue
		}

		w.put(AgentInfo{ID: id, Position: p, Color: randomColor(w.rng)})
		return p, nil
	}

	return Position{}, ErrNoPlacement
}

// PlaceAgentAt drops a new agent on a specific tile.
func (w *World) PlaceAgentAt(id string, p Position) error {
	if _, exists := w.agents[id]; exists {
		return ErrAgentExists
	}
	if !w.grid.InBounds(p.X, p.Y) {
		return ErrOutOfBounds
	}
	if !w.IsValidForAgent(p.X, p.Y) {
		return ErrBlocked
	}

	w.put(AgentInfo{ID: id, Position: p, Color: randomColor(w.rng)})
	return nil
}

// RemoveAgent deletes the agent from the registry, freeing its tile.
func (w *World) RemoveAgent(id string) bool {
	a, ok := w.agents[id]
	if !ok {
		return false
	}

	delete(w.agents, id)
	if w.occupied[a.Position] == id {
		delete(w.occupied, a.Position)
	}
	return true
}

// MoveAgent moves an agent to an adjacent free passable tile. Nothing changes
// when an error is returned.
func (w *World) MoveAgent(id string, target Position) error {
	a, ok := w.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	if !w.grid.InBounds(target.X, target.Y) {
		return ErrOutOfBounds
	}
	if a.Position.Chebyshev(target) > 1 {
		return ErrNotAdjacent
	}
	if !w.IsValidForAgent(target.X, target.Y) {
		return ErrBlocked
	}

	delete(w.occupied, a.Position)
	w.put(a.movedTo(target))
	return nil
}

func (w *World) put(a AgentInfo) {
	w.agents[a.ID] = a
	w.occupied[a.Position] = a.ID
}

// Surroundings returns every in-bounds tile within the perception radius of the
// agent, annotated with the id of any agent standing on it.
func (w *World) Surroundings(id string) ([]TileInfo, bool) {
	a, ok := w.agents[id]
	if !ok {
		return nil, false
	}

	var tiles []TileInfo
	for y := a.Position.Y - w.radius; y <= a.Position.Y+w.radius; y++ {
		for x := a.Position.X - w.radius; x <= a.Position.X+w.radius; x++ {
			t, ok := w.grid.At(x, y)
			if !ok {
				continue
			}
			p := Position{X: x, Y: y}
			tiles = append(tiles, TileInfo{
				Position: p,
				Type:     t,
				AgentID:  w.occupied[p],
			})
		}
	}
	return tiles, true
}

// CreateObservation builds what the agent sees at the given step. It returns nil
// for unknown agents and for agents whose recorded position is off the grid.
func (w *World) CreateObservation(id string, step int) *Observation {
	a, ok := w.agents[id]
	if !ok {
		return nil
	}

	current, ok := w.grid.At(a.Position.X, a.Position.Y)
	if !ok {
		return nil
	}

	tiles, _ := w.Surroundings(id)

	obs := &Observation{
		AgentID:  id,
		Position: a.Position,
		Tile:     current,
		Tiles:    make([]TileInfo, 0, len(tiles)),
		TimeStep: step,
	}
	for _, t := range tiles {
		obs.Tiles = append(obs.Tiles, TileInfo{Position: t.Position, Type: t.Type})
		if t.AgentID != "" && t.AgentID != id {
			obs.Agents = append(obs.Agents, VisibleAgent{ID: t.AgentID, Position: t.Position})
		}
	}
	return obs
}

// Snapshot copies the grid and registry for read-only consumers.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Size:             w.grid.Size(),
		PerceptionRadius: w.radius,
		Tiles:            w.grid.Rows(),
		Agents:           make([]AgentInfo, 0, len(w.agents)),
	}
	for _, id := range w.AgentIDs() {
		s.Agents = append(s.Agents, w.agents[id])
	}
	return s
}

func randomColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%02x%02x%02x", rng.IntN(256), rng.IntN(256), rng.IntN(256))
}
