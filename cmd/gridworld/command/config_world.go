package command

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/storage"
	"github.com/pixil98/go-gridworld/internal/terrain"
)

type WorldConfig struct {
	Size             int    `json:"size"`
	Seed             uint64 `json:"seed"`
	PerceptionRadius int    `json:"perception_radius"`
	GrowIterations   int    `json:"grow_iterations"`
	PresetPath       string `json:"preset_path"`
	Preset           string `json:"preset"`
}

func (c *WorldConfig) validate() error {
	el := errors.NewErrorList()

	if c.Size < 0 {
		el.Add(fmt.Errorf("world size must not be negative"))
	}
	if c.PerceptionRadius < 0 {
		el.Add(fmt.Errorf("perception_radius must not be negative"))
	}
	if c.GrowIterations < 0 {
		el.Add(fmt.Errorf("grow_iterations must not be negative"))
	}

	if c.Preset != "" && c.PresetPath == "" {
		el.Add(fmt.Errorf("preset_path is required when preset is set"))
	}
	if c.PresetPath != "" {
		if _, err := os.Stat(c.PresetPath); err != nil {
			el.Add(fmt.Errorf("invalid preset_path %q: %w", c.PresetPath, err))
		}
	}

	return el.Err()
}

// resolvePreset merges the configured preset, if any, with the inline settings.
// Inline size and seed win over the preset's.
func (c *WorldConfig) resolvePreset() (*terrain.Preset, error) {
	p := &terrain.Preset{}
	if c.Preset != "" {
		presets, err := storage.NewFileStore[*terrain.Preset](c.PresetPath)
		if err != nil {
			return nil, fmt.Errorf("loading presets: %w", err)
		}
		found := presets.Get(c.Preset)
		if found == nil {
			return nil, fmt.Errorf("preset %q not found in %s (have %v)", c.Preset, c.PresetPath, presets.Ids())
		}
		*p = *found
	}

	if c.Size > 0 {
		p.Size = c.Size
	}
	if p.Size == 0 {
		p.Size = terrain.DefaultSize
	}
	if c.Seed != 0 {
		p.Seed = c.Seed
	}
	if p.Seed == 0 {
		p.Seed = rand.Uint64()
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating preset: %w", err)
	}
	return p, nil
}

func (c *WorldConfig) buildWorld() (*game.World, error) {
	p, err := c.resolvePreset()
	if err != nil {
		return nil, err
	}

	dist, err := p.ParseDistribution()
	if err != nil {
		return nil, err
	}

	var genOpts []terrain.GeneratorOpt
	if c.GrowIterations > 0 {
		genOpts = append(genOpts, terrain.WithGrowIterations(c.GrowIterations))
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	grid := terrain.NewGenerator(p.Size, dist, rng, genOpts...).Generate()

	slog.Info("generated terrain", "size", p.Size, "seed", p.Seed, "preset", c.Preset)

	var worldOpts []game.WorldOpt
	if c.PerceptionRadius > 0 {
		worldOpts = append(worldOpts, game.WithPerceptionRadius(c.PerceptionRadius))
	}
	return game.NewWorld(grid, rng, worldOpts...), nil
}
