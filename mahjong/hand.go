package mahjong

import (
	"sort"

	"github.com/mahsjong/core/utils"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Hand is one player's tiles. standing is the dealt size the hand must return
// to before the turn may end; drawing raises the count above it temporarily,
// and playing a set lowers standing itself since those tiles leave the hand
// for good.
type Hand struct {
	set      *TileSet
	owner    Location
	tiles    []int32
	standing int
}

func NewHand(set *TileSet, owner Location, standing int) *Hand {
	return &Hand{set: set, owner: owner, standing: standing}
}

func (h *Hand) Size() int     { return len(h.tiles) }
func (h *Hand) Standing() int { return h.standing }

// LowerStanding shrinks the target size after tiles are melded away.
func (h *Hand) LowerStanding(n int) {
	h.standing -= n
	if h.standing < 0 {
		h.standing = 0
	}
}

// Add takes ownership of a tile. Adding a tile already held is refused: a
// duplicate add means a partial update was replayed.
func (h *Hand) Add(t *Tile) bool {
	if h.Contains(t.ID) {
		logger.Log.Errorf("tile %d added to hand twice", t.ID)
		return false
	}
	t.Location = h.owner
	h.tiles = append(h.tiles, t.ID)
	return true
}

// Remove gives up a tile. The caller sets its next location.
func (h *Hand) Remove(id int32) bool {
	if !h.Contains(id) {
		return false
	}
	h.tiles = utils.RemoveElements(h.tiles, id, 1)
	return true
}

func (h *Hand) Contains(id int32) bool {
	return utils.CountElement(h.tiles, id) > 0
}

func (h *Hand) Tiles() []*Tile {
	out := make([]*Tile, 0, len(h.tiles))
	for _, id := range h.tiles {
		if t, ok := h.set.Tile(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// Selected returns the tiles currently marked selected, in hand order.
func (h *Hand) Selected() []*Tile {
	var out []*Tile
	for _, t := range h.Tiles() {
		if t.Selected {
			out = append(out, t)
		}
	}
	return out
}

func (h *Hand) ClearSelection() {
	for _, t := range h.Tiles() {
		t.Selected = false
	}
}

// Shuffle randomizes hand order. Effects that pick "the first N tiles" draw
// their randomness from this.
func (h *Hand) Shuffle() {
	h.set.rng.Shuffle(len(h.tiles), func(i, j int) {
		h.tiles[i], h.tiles[j] = h.tiles[j], h.tiles[i]
	})
}

// Rebuild repopulates the hand from the arena's location flags, ordered by
// id. Used after a full snapshot.
func (h *Hand) Rebuild() {
	h.tiles = h.tiles[:0]
	for _, t := range h.set.TilesIn(h.owner) {
		h.tiles = append(h.tiles, t.ID)
	}
}

// IsValidSet reports whether the tiles form a playable meld: two to four
// pairwise-distinct tiles, all one suit, either all the same rank or a
// consecutive run of at least three. Celestial tiles never meld.
func IsValidSet(tiles []*Tile) bool {
	if len(tiles) < 2 || len(tiles) > 4 {
		return false
	}
	seen := make(map[int32]bool, len(tiles))
	for _, t := range tiles {
		if t.IsCelestial() || t.Debuffed {
			return false
		}
		if seen[t.ID] {
			return false
		}
		seen[t.ID] = true
		if t.Suit != tiles[0].Suit {
			return false
		}
	}

	ofAKind := true
	for _, t := range tiles {
		if t.Rank != tiles[0].Rank {
			ofAKind = false
			break
		}
	}
	if ofAKind {
		return true
	}

	if len(tiles) < 3 {
		return false
	}
	ranks := make([]int, len(tiles))
	for i, t := range tiles {
		ranks[i] = int(t.Rank)
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}

// IsWinning reports whether the hand is one pair plus melds of three (runs or
// triplets). At standing size the whole hand must decompose; one tile above
// standing, right after a draw, the hand wins if discarding any one tile
// leaves a decomposition. Celestial and debuffed tiles block the win.
func (h *Hand) IsWinning() bool {
	tiles := h.Tiles()
	switch len(tiles) {
	case h.standing:
		return winsExactly(tiles)
	case h.standing + 1:
		rest := make([]*Tile, 0, len(tiles)-1)
		for skip := range tiles {
			rest = rest[:0]
			for i, t := range tiles {
				if i != skip {
					rest = append(rest, t)
				}
			}
			if winsExactly(rest) {
				return true
			}
		}
	}
	return false
}

func winsExactly(tiles []*Tile) bool {
	if len(tiles) < 2 || len(tiles)%3 != 2 {
		return false
	}
	counts := make(map[Suit][]int)
	for _, s := range NumericSuits {
		counts[s] = make([]int, 10)
	}
	for _, t := range tiles {
		if t.IsCelestial() || t.Debuffed {
			return false
		}
		counts[t.Suit][t.Rank]++
	}
	for _, s := range NumericSuits {
		for rank := 1; rank <= 9; rank++ {
			if counts[s][rank] < 2 {
				continue
			}
			counts[s][rank] -= 2
			if meldsOut(counts) {
				counts[s][rank] += 2
				return true
			}
			counts[s][rank] += 2
		}
	}
	return false
}

// meldsOut reports whether every remaining tile can be grouped into triplets
// and runs. Greedy on the lowest remaining rank is exact here: once a rank
// cannot complete a triplet, its leftover copies must start runs.
func meldsOut(counts map[Suit][]int) bool {
	for _, s := range NumericSuits {
		c := append([]int(nil), counts[s]...)
		for rank := 1; rank <= 9; rank++ {
			if c[rank] >= 3 {
				c[rank] -= 3
			}
			for c[rank] > 0 {
				if rank+2 > 9 || c[rank+1] == 0 || c[rank+2] == 0 {
					return false
				}
				c[rank]--
				c[rank+1]--
				c[rank+2]--
			}
		}
	}
	return true
}
