package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gridworld/internal/messaging"
)

// defaultNatsPort asks the embedded server for a random free port. It only
// carries in-process traffic, so nothing needs a fixed address.
const defaultNatsPort = -1

type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}

	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("nats port must be -1 or between 0 and 65535"))
	}

	return el.Err()
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if c.StartTimeout != "" {
		d, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	opts = append(opts, messaging.WithPort(c.port()))

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// port treats an unset port as defaultNatsPort.
func (c *NatsConfig) port() int {
	if c.Port == 0 {
		return defaultNatsPort
	}
	return c.Port
}
