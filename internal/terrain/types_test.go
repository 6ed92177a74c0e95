package terrain

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestType_Passable(t *testing.T) {
	tests := map[string]struct {
		typ Type
		exp bool
	}{
		"grass":     {typ: Grass, exp: true},
		"trees":     {typ: Trees, exp: true},
		"mountains": {typ: Mountains, exp: false},
		"water":     {typ: Water, exp: false},
		"swamp":     {typ: Swamp, exp: true},
		"desert":    {typ: Desert, exp: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "passable", tt.typ.Passable(), tt.exp)
		})
	}
}

func TestParseType(t *testing.T) {
	tests := map[string]struct {
		input  string
		exp    Type
		expErr string
	}{
		"lower case":  {input: "water", exp: Water},
		"mixed case":  {input: "MounTains", exp: Mountains},
		"padded":      {input: " desert ", exp: Desert},
		"unknown":     {input: "lava", expErr: `unknown tile type "lava"`},
		"empty input": {input: "", expErr: "unknown tile type"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", got, tt.exp)
		})
	}
}

func TestDistribution_Validate(t *testing.T) {
	tests := map[string]struct {
		dist   Distribution
		expErr string
	}{
		"default is valid": {
			dist: DefaultDistribution,
		},
		"does not sum to one": {
			dist: Distribution{
				Grass: 0.5, Trees: 0.2, Mountains: 0.1, Water: 0.2, Swamp: 0.1, Desert: 0.1,
			},
			expErr: "shares must sum to 1.0",
		},
		"missing type": {
			dist: Distribution{
				Grass: 0.4, Trees: 0.2, Mountains: 0.1, Water: 0.2, Swamp: 0.1,
			},
			expErr: "desert share is required",
		},
		"negative share": {
			dist: Distribution{
				Grass: 0.6, Trees: -0.1, Mountains: 0.1, Water: 0.2, Swamp: 0.1, Desert: 0.1,
			},
			expErr: "trees share must not be negative",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.dist.Validate()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDistribution_Targets(t *testing.T) {
	targets := DefaultDistribution.Targets(64 * 64)

	sum := 0
	for _, n := range targets {
		sum += n
	}
	testutil.AssertEqual(t, "sum", sum, 64*64)
	testutil.AssertEqual(t, "water", targets[Water], 819)
	testutil.AssertEqual(t, "mountains", targets[Mountains], 410)
	testutil.AssertEqual(t, "grass", targets[Grass], 64*64-819*2-410*3)
}

func TestPreset_Validate(t *testing.T) {
	tests := map[string]struct {
		preset Preset
		expErr string
	}{
		"empty distribution uses default": {
			preset: Preset{Size: 32},
		},
		"custom distribution": {
			preset: Preset{Size: 32, Distribution: map[string]float64{
				"grass": 0.5, "trees": 0.1, "mountains": 0.1, "water": 0.1, "swamp": 0.1, "desert": 0.1,
			}},
		},
		"zero size": {
			preset: Preset{},
			expErr: "size must be a positive integer",
		},
		"unknown type": {
			preset: Preset{Size: 8, Distribution: map[string]float64{"lava": 1}},
			expErr: `unknown tile type "lava"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.preset.Validate()
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
