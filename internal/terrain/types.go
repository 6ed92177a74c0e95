package terrain

import (
	"fmt"
	"math"
	"strings"

	"github.com/pixil98/go-errors"
)

// Type is the terrain carried by a single tile.
type Type string

const (
	Grass     Type = "grass"
	Trees     Type = "trees"
	Mountains Type = "mountains"
	Water     Type = "water"
	Swamp     Type = "swamp"
	Desert    Type = "desert"
)

// AllTypes lists every terrain type in a stable order.
var AllTypes = []Type{Grass, Trees, Mountains, Water, Swamp, Desert}

// Passable reports whether an agent may stand on a tile of this type.
func (t Type) Passable() bool {
	return t != Water && t != Mountains
}

func (t Type) String() string {
	return string(t)
}

// ParseType converts a case-insensitive name into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tile type %q", s)
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Distribution is the target share of the grid for each terrain type.
type Distribution map[Type]float64

// DefaultDistribution is the share used when no preset is configured.
var DefaultDistribution = Distribution{
	Grass:     0.30,
	Trees:     0.20,
	Mountains: 0.10,
	Water:     0.20,
	Swamp:     0.10,
	Desert:    0.10,
}

const distributionTolerance = 1e-6

func (d Distribution) Validate() error {
	el := errors.NewErrorList()

	sum := 0.0
	for _, t := range AllTypes {
		v, ok := d[t]
		if !ok {
			el.Add(fmt.Errorf("%s share is required", t))
			continue
		}
		if v < 0 {
			el.Add(fmt.Errorf("%s share must not be negative", t))
		}
		sum += v
	}
	for t := range d {
		if _, err := ParseType(string(t)); err != nil {
			el.Add(err)
		}
	}

	if math.Abs(sum-1.0) > distributionTolerance {
		el.Add(fmt.Errorf("shares must sum to 1.0, got %.4f", sum))
	}

	return el.Err()
}

// Targets converts the distribution into tile budgets for a grid of total tiles.
// Grass takes whatever rounding leaves over so the budgets always add up to total.
func (d Distribution) Targets(total int) map[Type]int {
	targets := make(map[Type]int, len(AllTypes))
	assigned := 0
	for _, t := range AllTypes {
		if t == Grass {
			continue
		}
		n := int(math.Round(d[t] * float64(total)))
		if assigned+n > total {
			n = total - assigned
		}
		targets[t] = n
		assigned += n
	}
	targets[Grass] = total - assigned
	return targets
}
