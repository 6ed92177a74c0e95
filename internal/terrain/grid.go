package terrain

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// Adjacent returns the 4 cardinal neighbors
func (p Point) Adjacent() []Point {
	return []Point{
		{p.X, p.Y - 1},
		{p.X + 1, p.Y},
		{p.X, p.Y + 1},
		{p.X - 1, p.Y},
	}
}

// Grid is a square, row-major tile grid.
type Grid struct {
	size  int
	tiles []Type
}

// NewGrid creates a grid of side size filled with fill.
func NewGrid(size int, fill Type) *Grid {
	tiles := make([]Type, size*size)
	for i := range tiles {
		tiles[i] = fill
	}
	return &Grid{size: size, tiles: tiles}
}

func (g *Grid) Size() int {
	return g.size
}

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// At returns the tile type at (x, y). Out of bounds coordinates report false.
func (g *Grid) At(x, y int) (Type, bool) {
	if !g.InBounds(x, y) {
		return "", false
	}
	return g.tiles[y*g.size+x], true
}

// Set overwrites the tile at (x, y). Out of bounds writes are ignored.
func (g *Grid) Set(x, y int, t Type) {
	if !g.InBounds(x, y) {
		return
	}
	g.tiles[y*g.size+x] = t
}

func (g *Grid) is(p Point, t Type) bool {
	got, ok := g.At(p.X, p.Y)
	return ok && got == t
}

// Count returns the number of tiles of type t.
func (g *Grid) Count(t Type) int {
	n := 0
	for _, v := range g.tiles {
		if v == t {
			n++
		}
	}
	return n
}

// Counts returns the number of tiles of every type present in the grid.
func (g *Grid) Counts() map[Type]int {
	counts := make(map[Type]int, len(AllTypes))
	for _, v := range g.tiles {
		counts[v]++
	}
	return counts
}

// Points returns every coordinate holding a tile of type t, in row-major order.
func (g *Grid) Points(t Type) []Point {
	var pts []Point
	for i, v := range g.tiles {
		if v == t {
			pts = append(pts, Point{X: i % g.size, Y: i / g.size})
		}
	}
	return pts
}

// Rows returns a copy of the grid as rows of tiles, indexed [y][x].
func (g *Grid) Rows() [][]Type {
	rows := make([][]Type, g.size)
	for y := range rows {
		rows[y] = make([]Type, g.size)
		copy(rows[y], g.tiles[y*g.size:(y+1)*g.size])
	}
	return rows
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	tiles := make([]Type, len(g.tiles))
	copy(tiles, g.tiles)
	return &Grid{size: g.size, tiles: tiles}
}
