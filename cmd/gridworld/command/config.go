package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gridworld/internal/driver"
	"github.com/pixil98/go-gridworld/internal/listener"
)

type Config struct {
	TickInterval string           `json:"tick_interval"`
	StartPaused  bool             `json:"start_paused"`
	Listeners    []ListenerConfig `json:"listeners"`
	World        WorldConfig      `json:"world"`
	Nats         NatsConfig       `json:"nats"`
	Observer     ObserverConfig   `json:"observer"`
	Journal      JournalConfig    `json:"journal"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("tick_interval must be positive"))
		}
	}

	ports := map[uint16]int{}
	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
		if j, ok := ports[l.Port]; ok && l.Port != 0 {
			el.Add(fmt.Errorf("listener %d: port %d already used by listener %d", i, l.Port, j))
		}
		ports[l.Port] = i
	}

	el.Add(c.World.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Observer.validate())
	el.Add(c.Journal.validate())

	return el.Err()
}

func (c *Config) tickLength() time.Duration {
	if c.TickInterval == "" {
		return driver.DefaultTickLength
	}
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return driver.DefaultTickLength
	}
	return d
}

// listeners falls back to a single tcp listener on the default port.
func (c *Config) listeners() []ListenerConfig {
	if len(c.Listeners) > 0 {
		return c.Listeners
	}
	return []ListenerConfig{{Protocol: ListenerTypeTCP, Port: listener.DefaultPort}}
}
