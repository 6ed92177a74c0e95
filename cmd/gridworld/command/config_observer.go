package command

import (
	"fmt"
	"net"
	"os"

	"github.com/pixil98/go-gridworld/internal/journal"
	"github.com/pixil98/go-gridworld/internal/observer"
)

type ObserverConfig struct {
	Disabled bool   `json:"disabled"`
	Addr     string `json:"addr"`
}

func (c *ObserverConfig) validate() error {
	if c.Disabled || c.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("observer addr %q: %w", c.Addr, err)
	}
	return nil
}

func (c *ObserverConfig) buildServer(drv observer.Driver, state observer.StateSource, bus observer.Subscriber) *observer.Server {
	return observer.NewServer(c.Addr, drv, state, bus)
}

// JournalConfig enables the event journal when Path is set.
type JournalConfig struct {
	Path string `json:"path"`
}

func (c *JournalConfig) validate() error {
	if c.Path == "" {
		return nil
	}
	if info, err := os.Stat(c.Path); err == nil && !info.IsDir() {
		return fmt.Errorf("journal path %q is not a directory", c.Path)
	}
	return nil
}

func (c *JournalConfig) buildRecorder(bus journal.Subscriber) *journal.Recorder {
	if c.Path == "" {
		return nil
	}
	return journal.NewRecorder(c.Path, bus)
}
