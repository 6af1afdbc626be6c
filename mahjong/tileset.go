package mahjong

import (
	"math/rand"
	"sort"
	"time"

	"github.com/mahsjong/core/netcode"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// TileSet is the arena owning every tile of a match, plus the ordered deck of
// tiles not yet distributed. Pile, hands and discard reference tiles by id.
//
// Ids start at 1 so the pile grid can use 0 as the empty cell.
type TileSet struct {
	tiles  map[int32]*Tile
	deck   []int32
	nextID int32
	rng    *rand.Rand
}

func NewTileSet() *TileSet {
	return &TileSet{
		tiles:  make(map[int32]*Tile),
		nextID: 1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed fixes the arena's randomness, for deterministic tests.
func (s *TileSet) Seed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// NewTile allocates a tile into the arena. It starts in the deck.
func (s *TileSet) NewTile(suit Suit, rank Rank) *Tile {
	t := &Tile{ID: s.nextID, Suit: suit, Rank: rank, Location: InDeck}
	s.nextID++
	s.tiles[t.ID] = t
	s.deck = append(s.deck, t.ID)
	return t
}

// BuildDeck fills the arena with the full tile population: four copies of
// every numeric tile plus the configured number of each celestial tile.
func (s *TileSet) BuildDeck(celestialCopies int) {
	for _, suit := range NumericSuits {
		for rank := Rank(1); rank <= 9; rank++ {
			for i := 0; i < 4; i++ {
				s.NewTile(suit, rank)
			}
		}
	}
	for _, rank := range CelestialRanks {
		for i := 0; i < celestialCopies; i++ {
			s.NewTile(SuitCelestial, rank)
		}
	}
}

// Shuffle randomizes the undealt deck order.
func (s *TileSet) Shuffle() {
	s.rng.Shuffle(len(s.deck), func(i, j int) {
		s.deck[i], s.deck[j] = s.deck[j], s.deck[i]
	})
}

// Draw pops the next tile off the deck.
func (s *TileSet) Draw() (*Tile, bool) {
	if len(s.deck) == 0 {
		return nil, false
	}
	id := s.deck[0]
	s.deck = s.deck[1:]
	return s.tiles[id], true
}

func (s *TileSet) DeckSize() int {
	return len(s.deck)
}

// Tile looks up a tile by id.
func (s *TileSet) Tile(id int32) (*Tile, bool) {
	t, ok := s.tiles[id]
	return t, ok
}

// TilesIn returns every tile currently in the given location, ordered by id.
func (s *TileSet) TilesIn(loc Location) []*Tile {
	var out []*Tile
	for _, t := range s.tiles {
		if t.Location == loc {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot captures the full replicated state: every tile plus the deck
// order. The discard order is filled in by the caller that owns it.
func (s *TileSet) Snapshot() netcode.Snapshot {
	snap := netcode.Snapshot{
		Tiles: make([]netcode.TileRecord, 0, len(s.tiles)),
		Deck:  append([]int32(nil), s.deck...),
	}
	ids := make([]int32, 0, len(s.tiles))
	for id := range s.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		snap.Tiles = append(snap.Tiles, s.tiles[id].Record())
	}
	return snap
}

// Apply overwrites the arena from a full snapshot, creating tiles it has
// never seen. Applying the same snapshot twice is a no-op the second time.
func (s *TileSet) Apply(snap netcode.Snapshot) {
	for _, rec := range snap.Tiles {
		s.applyRecord(rec, true)
	}
	s.deck = append(s.deck[:0], snap.Deck...)
	for _, id := range s.deck {
		if _, ok := s.tiles[id]; !ok {
			logger.Log.Errorf("snapshot deck references unknown tile %d", id)
		}
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
}

// ApplyTiles applies a partial update: only the listed tiles change.
func (s *TileSet) ApplyTiles(recs []netcode.TileRecord) {
	for _, rec := range recs {
		s.applyRecord(rec, false)
	}
}

func (s *TileSet) applyRecord(rec netcode.TileRecord, create bool) {
	t, ok := s.tiles[rec.ID]
	if !ok {
		if !create {
			logger.Log.Errorf("update for unknown tile %d, dropped", rec.ID)
			return
		}
		t = &Tile{ID: rec.ID}
		s.tiles[rec.ID] = t
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	}
	if err := t.applyRecord(rec); err != nil {
		logger.Log.Errorf("bad record for tile %d: %v", rec.ID, err)
	}
}
