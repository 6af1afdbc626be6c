package mahjong

import "github.com/mahsjong/core/utils"

// DiscardPile is the ordered face-up discard stack. The last element is the
// most recent discard.
type DiscardPile struct {
	set   *TileSet
	tiles []int32
}

func NewDiscardPile(set *TileSet) *DiscardPile {
	return &DiscardPile{set: set}
}

func (d *DiscardPile) Len() int {
	return len(d.tiles)
}

// AddTile pushes a tile onto the top of the stack and marks it discarded.
func (d *DiscardPile) AddTile(t *Tile) {
	t.Location = Discarded
	t.FromDiscard = false
	d.tiles = append(d.tiles, t.ID)
}

// TopTile is the most recent discard, or nil when empty.
func (d *DiscardPile) TopTile() *Tile {
	if len(d.tiles) == 0 {
		return nil
	}
	t, _ := d.set.Tile(d.tiles[len(d.tiles)-1])
	return t
}

// DrawTopTile pops the most recent discard.
func (d *DiscardPile) DrawTopTile() *Tile {
	if len(d.tiles) == 0 {
		return nil
	}
	t := d.TopTile()
	d.tiles = d.tiles[:len(d.tiles)-1]
	return t
}

// TakeMatching removes the newest discard with the given suit and rank.
// Matching is by kind, not id: the two peers may point at different copies
// of the same printed tile.
func (d *DiscardPile) TakeMatching(suit Suit, rank Rank) *Tile {
	for i := len(d.tiles) - 1; i >= 0; i-- {
		t, ok := d.set.Tile(d.tiles[i])
		if !ok {
			continue
		}
		if t.Suit == suit && t.Rank == rank {
			d.tiles = append(d.tiles[:i], d.tiles[i+1:]...)
			return t
		}
	}
	return nil
}

// Remove deletes a specific tile from the stack, wherever it sits.
func (d *DiscardPile) Remove(id int32) bool {
	if utils.CountElement(d.tiles, id) == 0 {
		return false
	}
	d.tiles = utils.RemoveAllElement(d.tiles, id)
	return true
}

// Order returns the stack bottom-first, for snapshots.
func (d *DiscardPile) Order() []int32 {
	return append([]int32(nil), d.tiles...)
}

// SetOrder replaces the stack, for snapshot application.
func (d *DiscardPile) SetOrder(ids []int32) {
	d.tiles = append(d.tiles[:0], ids...)
}
