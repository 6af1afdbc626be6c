package mahjong

import (
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Coord is a pile grid position.
type Coord struct {
	Row, Col int
}

// Pile is the face-down draw pile: a size×size grid of tile ids (0 = empty)
// with a parallel coordinate map for O(1) removal. The grid and the map agree
// exactly at all times, and every gridded tile is InPile with the matching
// coordinate.
type Pile struct {
	set  *TileSet
	size int
	grid [][]int32
	pos  map[int32]Coord
}

func NewPile(size int, set *TileSet) *Pile {
	p := &Pile{set: set, size: size, pos: make(map[int32]Coord)}
	p.grid = make([][]int32, size)
	for i := range p.grid {
		p.grid[i] = make([]int32, size)
	}
	return p
}

func (p *Pile) Size() int { return p.size }

// Build fills every cell from the deck, row-major. Used at match start and
// when a remake is triggered by pile exhaustion. Stops early if the deck runs
// dry.
func (p *Pile) Build() {
	for row := 0; row < p.size; row++ {
		for col := 0; col < p.size; col++ {
			if p.grid[row][col] != 0 {
				continue
			}
			t, ok := p.set.Draw()
			if !ok {
				return
			}
			p.place(t, row, col)
		}
	}
}

// Rebuild reconstructs the grid and map from the arena: every tile whose
// location is InPile is placed at its stored coordinate. Used after applying
// a remote snapshot.
func (p *Pile) Rebuild() {
	for row := range p.grid {
		for col := range p.grid[row] {
			p.grid[row][col] = 0
		}
	}
	clear(p.pos)
	for _, t := range p.set.TilesIn(InPile) {
		if t.Row < 0 || t.Row >= p.size || t.Col < 0 || t.Col >= p.size {
			logger.Log.Errorf("tile %d has pile coord (%d,%d) outside grid", t.ID, t.Row, t.Col)
			continue
		}
		if other := p.grid[t.Row][t.Col]; other != 0 {
			logger.Log.Errorf("tiles %d and %d both claim pile cell (%d,%d)", other, t.ID, t.Row, t.Col)
			continue
		}
		p.grid[t.Row][t.Col] = t.ID
		p.pos[t.ID] = Coord{t.Row, t.Col}
	}
}

func (p *Pile) place(t *Tile, row, col int) {
	t.Location = InPile
	t.Row, t.Col = row, col
	p.grid[row][col] = t.ID
	p.pos[t.ID] = Coord{row, col}
}

// RemoveTile takes a tile out of the grid. The caller decides where it goes
// next.
func (p *Pile) RemoveTile(id int32) bool {
	c, ok := p.pos[id]
	if !ok {
		return false
	}
	p.grid[c.Row][c.Col] = 0
	delete(p.pos, id)
	return true
}

// NextTile is the first occupied cell in row-major order, or nil if the pile
// is empty.
func (p *Pile) NextTile() *Tile {
	for row := 0; row < p.size; row++ {
		for col := 0; col < p.size; col++ {
			if id := p.grid[row][col]; id != 0 {
				t, _ := p.set.Tile(id)
				return t
			}
		}
	}
	return nil
}

// Reshuffle permutes the remaining tiles among the occupied cells. The cell
// layout is untouched; only which tile sits where changes.
func (p *Pile) Reshuffle() {
	var cells []Coord
	var ids []int32
	for row := 0; row < p.size; row++ {
		for col := 0; col < p.size; col++ {
			if id := p.grid[row][col]; id != 0 {
				cells = append(cells, Coord{row, col})
				ids = append(ids, id)
			}
		}
	}
	p.set.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	for i, c := range cells {
		t, _ := p.set.Tile(ids[i])
		p.place(t, c.Row, c.Col)
	}
}

func (p *Pile) VisibleSize() int {
	return len(p.pos)
}

// Flattened returns the remaining tiles in row-major order.
func (p *Pile) Flattened() []*Tile {
	var out []*Tile
	for row := 0; row < p.size; row++ {
		for col := 0; col < p.size; col++ {
			if id := p.grid[row][col]; id != 0 {
				t, _ := p.set.Tile(id)
				out = append(out, t)
			}
		}
	}
	return out
}
