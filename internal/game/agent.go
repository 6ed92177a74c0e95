package game

import "github.com/pixil98/go-gridworld/internal/terrain"

// Position is an integer grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chebyshev returns the king-move distance between two positions.
func (p Position) Chebyshev(o Position) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AgentInfo is the registry entry for one connected agent. Color is assigned at
// placement and never changes.
type AgentInfo struct {
	ID       string   `json:"agent_id"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
}

func (a AgentInfo) movedTo(p Position) AgentInfo {
	a.Position = p
	return a
}

// TileInfo describes one tile inside an agent's perception square.
type TileInfo struct {
	Position Position
	Type     terrain.Type
	AgentID  string
}

// VisibleAgent is another agent inside the perception square.
type VisibleAgent struct {
	ID       string
	Position Position
}

// Observation is a value snapshot of what one agent sees at one time step.
type Observation struct {
	AgentID  string
	Position Position
	Tile     terrain.Type
	Tiles    []TileInfo
	Agents   []VisibleAgent
	TimeStep int
}

// Snapshot is a deep copy of the world for renderers.
type Snapshot struct {
	Size             int              `json:"size"`
	PerceptionRadius int              `json:"perception_radius"`
	Tiles            [][]terrain.Type `json:"tiles"`
	Agents           []AgentInfo      `json:"agents"`
}
