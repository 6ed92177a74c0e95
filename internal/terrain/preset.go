package terrain

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Preset is a named world layout loaded from the asset store.
type Preset struct {
	Size         int                `json:"size" yaml:"size"`
	Seed         uint64             `json:"seed" yaml:"seed"`
	Distribution map[string]float64 `json:"distribution" yaml:"distribution"`
}

func (p *Preset) Validate() error {
	el := errors.NewErrorList()

	if p.Size <= 0 {
		el.Add(fmt.Errorf("size must be a positive integer"))
	}

	dist, err := p.ParseDistribution()
	if err != nil {
		el.Add(err)
	} else {
		el.Add(dist.Validate())
	}

	return el.Err()
}

// ParseDistribution converts the preset's string keyed shares into a Distribution.
// An empty preset distribution means DefaultDistribution.
func (p *Preset) ParseDistribution() (Distribution, error) {
	if len(p.Distribution) == 0 {
		return DefaultDistribution, nil
	}

	dist := make(Distribution, len(p.Distribution))
	for name, share := range p.Distribution {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("distribution: %w", err)
		}
		dist[t] = share
	}
	return dist, nil
}
