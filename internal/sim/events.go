package sim

import (
	"time"

	"github.com/pixil98/go-gridworld/internal/game"
)

type EventKind string

const (
	EventAgentConnected    EventKind = "agent_connected"
	EventAgentDisconnected EventKind = "agent_disconnected"
	EventAgentMoved        EventKind = "agent_moved"
	EventTimestep          EventKind = "timestep"
)

// Event is a change notification for renderers and the journal.
type Event struct {
	Kind     EventKind      `json:"kind"`
	TimeStep int            `json:"timeStep"`
	Time     time.Time      `json:"time"`
	AgentID  string         `json:"agent_id,omitempty"`
	Color    string         `json:"color,omitempty"`
	From     *game.Position `json:"from,omitempty"`
	Position *game.Position `json:"position,omitempty"`
	Agents   int            `json:"agents"`
}

// Publisher delivers simulation output to agents and event subscribers.
type Publisher interface {
	PublishToAgent(agentID string, data []byte) error
	PublishEvent(kind string, data []byte) error
}

// State is the observer view of the simulation.
type State struct {
	TimeStep int           `json:"timeStep"`
	World    game.Snapshot `json:"world"`
}
