package messaging

import (
	"fmt"
)

// AllEventsSubject matches every world event subject.
const AllEventsSubject = "world.events.>"

// AgentSubject is the subject carrying messages for one agent's connection.
func AgentSubject(agentID string) string {
	return fmt.Sprintf("agent.%s.observation", agentID)
}

// EventSubject is the subject for world events of one kind.
func EventSubject(kind string) string {
	return fmt.Sprintf("world.events.%s", kind)
}

type Bus interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher routes simulation output onto agent and event subjects.
type NatsPublisher struct {
	bus Bus
}

func NewNatsPublisher(bus Bus) *NatsPublisher {
	return &NatsPublisher{bus: bus}
}

func (p *NatsPublisher) PublishToAgent(agentID string, data []byte) error {
	if err := p.bus.Publish(AgentSubject(agentID), data); err != nil {
		return fmt.Errorf("publishing to agent %q: %w", agentID, err)
	}
	return nil
}

func (p *NatsPublisher) PublishEvent(kind string, data []byte) error {
	if err := p.bus.Publish(EventSubject(kind), data); err != nil {
		return fmt.Errorf("publishing %s event: %w", kind, err)
	}
	return nil
}
