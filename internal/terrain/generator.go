package terrain

import (
	"math"
	"math/rand/v2"
	"sort"
)

const (
	DefaultSize           = 64
	DefaultGrowIterations = 100

	oceanShareMin = 0.60
	oceanShareMax = 0.70

	lakeMinCount        = 2
	lakeMaxCount        = 4
	lakePlacementTries  = 10
	lakeClearanceRadius = 10

	mountainMinRanges = 1
	mountainMaxRanges = 2
	mountainMaxWidth  = 2

	blobMinClusters = 1
	blobMaxClusters = 3

	swampWaterOffset = 5
)

// noiseRange bounds the per-tile multiplier applied to a region radius.
type noiseRange struct {
	lo, hi float64
}

var (
	oceanNoise  = noiseRange{0.7, 1.3}
	lakeNoise   = noiseRange{0.6, 1.4}
	forestNoise = noiseRange{0.7, 1.3}
	desertNoise = noiseRange{0.8, 1.2}
	swampNoise  = noiseRange{0.6, 1.4}
)

// Generator carves a grass grid into organic regions matching a Distribution.
type Generator struct {
	size           int
	dist           Distribution
	rng            *rand.Rand
	growIterations int
}

type GeneratorOpt func(*Generator)

// WithGrowIterations bounds the number of frontier growth passes per type.
func WithGrowIterations(n int) GeneratorOpt {
	return func(g *Generator) {
		g.growIterations = n
	}
}

// NewGenerator creates a generator for a grid of side size. The random source
// drives every placement decision, so a seeded source yields a reproducible grid.
func NewGenerator(size int, dist Distribution, rng *rand.Rand, opts ...GeneratorOpt) *Generator {
	g := &Generator{
		size:           size,
		dist:           dist,
		rng:            rng,
		growIterations: DefaultGrowIterations,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate builds a new grid. It never fails; a type that cannot reach its budget
// keeps whatever coverage frontier growth achieved.
func (g *Generator) Generate() *Grid {
	grid := NewGrid(g.size, Grass)
	if g.size <= 0 {
		return grid
	}
	targets := g.dist.Targets(g.size * g.size)

	// Water goes first so swamps can gather around it.
	g.placeWater(grid, targets[Water])
	g.placeMountains(grid, targets[Mountains])
	g.placeBlobs(grid, Trees, targets[Trees], forestNoise)
	g.placeBlobs(grid, Desert, targets[Desert], desertNoise)
	g.placeBlobs(grid, Swamp, targets[Swamp], swampNoise)

	return grid
}

func (g *Generator) placeWater(grid *Grid, target int) {
	if target <= 0 {
		return
	}

	share := oceanShareMin + g.rng.Float64()*(oceanShareMax-oceanShareMin)
	oceanTarget := int(math.Round(float64(target) * share))
	if oceanTarget < 1 {
		oceanTarget = 1
	}

	center := g.randomPoint()
	ocean := g.region(grid, center, radiusForArea(oceanTarget), oceanNoise, oceanTarget)
	for _, p := range ocean {
		grid.Set(p.X, p.Y, Water)
	}
	if len(ocean) < oceanTarget {
		g.grow(grid, Water, oceanTarget)
	}

	remaining := target - grid.Count(Water)
	if remaining > 0 {
		lakes := lakeMinCount + g.rng.IntN(lakeMaxCount-lakeMinCount+1)
		for i := 0; i < lakes && remaining > 0; i++ {
			budget := remaining / (lakes - i)
			if budget < 1 {
				budget = remaining
			}
			lake := g.region(grid, g.lakeCenter(grid), radiusForArea(budget), lakeNoise, budget)
			for _, p := range lake {
				grid.Set(p.X, p.Y, Water)
			}
			remaining -= len(lake)
		}
	}

	g.grow(grid, Water, target)
}

// lakeCenter samples up to lakePlacementTries points and returns the first one
// with no water inside lakeClearanceRadius, or the last sample if none qualify.
func (g *Generator) lakeCenter(grid *Grid) Point {
	var p Point
	for i := 0; i < lakePlacementTries; i++ {
		p = g.randomPoint()
		if !g.waterWithin(grid, p, lakeClearanceRadius) {
			return p
		}
	}
	return p
}

func (g *Generator) waterWithin(grid *Grid, center Point, radius int) bool {
	r2 := radius * radius
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy > r2 {
				continue
			}
			if grid.is(Point{x, y}, Water) {
				return true
			}
		}
	}
	return false
}

func (g *Generator) placeMountains(grid *Grid, target int) {
	if target <= 0 {
		return
	}

	ranges := mountainMinRanges + g.rng.IntN(mountainMaxRanges-mountainMinRanges+1)
	placed := 0
	for i := 0; i < ranges && placed < target; i++ {
		budget := (target - placed) / (ranges - i)
		if budget < 1 {
			budget = target - placed
		}
		placed += g.mountainRange(grid, budget)
	}

	g.grow(grid, Mountains, target)
}

// mountainRange walks a randomly oriented line from a random start, widening
// each step perpendicular to the heading, and converts grass along the way.
func (g *Generator) mountainRange(grid *Grid, budget int) int {
	start := g.randomPoint()
	angle := g.rng.Float64() * 2 * math.Pi
	dx, dy := math.Cos(angle), math.Sin(angle)
	px, py := -dy, dx
	width := 1 + g.rng.IntN(mountainMaxWidth)

	seen := make(map[Point]bool)
	placed := 0
	maxSteps := g.size * 2
	for step := 0; step < maxSteps && placed < budget; step++ {
		cx := float64(start.X) + dx*float64(step)
		cy := float64(start.Y) + dy*float64(step)
		if !grid.InBounds(int(math.Round(cx)), int(math.Round(cy))) {
			break
		}

		for w := -width; w <= width && placed < budget; w++ {
			p := Point{
				X: int(math.Round(cx + px*float64(w))),
				Y: int(math.Round(cy + py*float64(w))),
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			if !grid.is(p, Grass) {
				continue
			}
			grid.Set(p.X, p.Y, Mountains)
			placed++
		}
	}

	return placed
}

func (g *Generator) placeBlobs(grid *Grid, t Type, target int, noise noiseRange) {
	if target <= 0 {
		return
	}

	clusters := blobMinClusters + g.rng.IntN(blobMaxClusters-blobMinClusters+1)
	placed := 0
	for i := 0; i < clusters && placed < target; i++ {
		budget := (target - placed) / (clusters - i)
		if budget < 1 {
			budget = target - placed
		}

		center := g.randomPoint()
		if t == Swamp {
			center = g.nearWater(grid, center)
		}

		blob := g.region(grid, center, radiusForArea(budget), noise, budget)
		for _, p := range blob {
			grid.Set(p.X, p.Y, t)
		}
		placed += len(blob)
	}

	g.grow(grid, t, target)
}

// nearWater offsets a random water tile by up to swampWaterOffset in each axis.
// Without any water the fallback point is returned unchanged.
func (g *Generator) nearWater(grid *Grid, fallback Point) Point {
	water := grid.Points(Water)
	if len(water) == 0 {
		return fallback
	}

	w := water[g.rng.IntN(len(water))]
	span := 2*swampWaterOffset + 1
	return Point{
		X: clamp(w.X+g.rng.IntN(span)-swampWaterOffset, 0, g.size-1),
		Y: clamp(w.Y+g.rng.IntN(span)-swampWaterOffset, 0, g.size-1),
	}
}

// region returns the grass tiles whose distance to center is below radius
// scaled by per-tile noise, nearest first, trimmed to at most limit tiles.
func (g *Generator) region(grid *Grid, center Point, radius float64, noise noiseRange, limit int) []Point {
	type candidate struct {
		p    Point
		dist float64
	}

	reach := int(math.Ceil(radius * noise.hi))
	var found []candidate
	for y := center.Y - reach; y <= center.Y+reach; y++ {
		for x := center.X - reach; x <= center.X+reach; x++ {
			p := Point{x, y}
			if !grid.is(p, Grass) {
				continue
			}
			d := math.Hypot(float64(x-center.X), float64(y-center.Y))
			n := noise.lo + g.rng.Float64()*(noise.hi-noise.lo)
			if d < radius*n {
				found = append(found, candidate{p: p, dist: d})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	if len(found) > limit {
		found = found[:limit]
	}

	pts := make([]Point, len(found))
	for i, c := range found {
		pts[i] = c.p
	}
	return pts
}

// grow expands type t into neighbouring grass until the grid holds target tiles
// of t, grass runs out, or the iteration bound is reached. When every tile of t
// is walled in, growth restarts from a random grass tile.
func (g *Generator) grow(grid *Grid, t Type, target int) {
	count := grid.Count(t)
	if count >= target {
		return
	}

	// A type with no tiles at all has no frontier; seed one so it still appears.
	if count == 0 {
		if !g.seed(grid, t) {
			return
		}
		count++
	}

	for iter := 0; iter < g.growIterations && count < target; {
		var frontier []Point
		seen := make(map[Point]bool)
		for _, p := range grid.Points(t) {
			for _, n := range p.Adjacent() {
				if seen[n] || !grid.is(n, Grass) {
					continue
				}
				seen[n] = true
				frontier = append(frontier, n)
			}
		}
		if len(frontier) == 0 {
			// Reseeding consumes a grass tile, so this terminates.
			if !g.seed(grid, t) {
				return
			}
			count++
			continue
		}
		iter++

		g.rng.Shuffle(len(frontier), func(i, j int) {
			frontier[i], frontier[j] = frontier[j], frontier[i]
		})
		for _, p := range frontier {
			if count >= target {
				break
			}
			grid.Set(p.X, p.Y, t)
			count++
		}
	}
}

// seed converts one random grass tile to t. It reports false when no grass is left.
func (g *Generator) seed(grid *Grid, t Type) bool {
	grass := grid.Points(Grass)
	if len(grass) == 0 {
		return false
	}
	p := grass[g.rng.IntN(len(grass))]
	grid.Set(p.X, p.Y, t)
	return true
}

func (g *Generator) randomPoint() Point {
	return Point{X: g.rng.IntN(g.size), Y: g.rng.IntN(g.size)}
}

func radiusForArea(area int) float64 {
	return math.Sqrt(float64(area) / math.Pi)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
