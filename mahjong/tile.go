package mahjong

import (
	"fmt"
	"strconv"

	"github.com/mahsjong/core/netcode"
)

type Suit int

const (
	SuitCelestial Suit = iota
	SuitBamboo
	SuitCrak
	SuitDot
)

// NumericSuits are the suits that can form sets and winning hands.
var NumericSuits = []Suit{SuitBamboo, SuitCrak, SuitDot}

var suitNames = map[Suit]string{
	SuitCelestial: "celestial",
	SuitBamboo:    "bamboo",
	SuitCrak:      "crak",
	SuitDot:       "dot",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return "unknown"
}

func suitFromName(name string) (Suit, error) {
	for s, n := range suitNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank is 1..9 for numeric suits, or a named celestial rank.
type Rank int

const (
	RankRat Rank = iota + 10
	RankOx
	RankRabbit
	RankDragon
	RankSnake
	RankMonkey
	RankRooster
	RankPig
)

// CelestialRanks in deck-building order.
var CelestialRanks = []Rank{
	RankRat, RankOx, RankRabbit, RankDragon,
	RankSnake, RankMonkey, RankRooster, RankPig,
}

var celestialRankNames = map[Rank]string{
	RankRat:     "rat",
	RankOx:      "ox",
	RankRabbit:  "rabbit",
	RankDragon:  "dragon",
	RankSnake:   "snake",
	RankMonkey:  "monkey",
	RankRooster: "rooster",
	RankPig:     "pig",
}

var celestialKinds = map[Rank]netcode.CelestialType{
	RankRat:     netcode.CelestialRat,
	RankOx:      netcode.CelestialOx,
	RankRabbit:  netcode.CelestialRabbit,
	RankDragon:  netcode.CelestialDragon,
	RankSnake:   netcode.CelestialSnake,
	RankMonkey:  netcode.CelestialMonkey,
	RankRooster: netcode.CelestialRooster,
	RankPig:     netcode.CelestialPig,
}

func (r Rank) String() string {
	if name, ok := celestialRankNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

func rankFromName(name string) (Rank, error) {
	for r, n := range celestialRankNames {
		if n == name {
			return r, nil
		}
	}
	v, err := strconv.Atoi(name)
	if err != nil || v < 1 || v > 9 {
		return 0, fmt.Errorf("unknown rank %q", name)
	}
	return Rank(v), nil
}

// Location is where a tile currently lives. A tile is in exactly one location
// at any time.
type Location int

const (
	InDeck Location = iota
	InPile
	InHostHand
	InClientHand
	Discarded
)

var locationNames = map[Location]string{
	InDeck:       "deck",
	InPile:       "pile",
	InHostHand:   "hostHand",
	InClientHand: "clientHand",
	Discarded:    "discarded",
}

func (l Location) String() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return "unknown"
}

func locationFromName(name string) (Location, error) {
	for l, n := range locationNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown location %q", name)
}

// Tile is one physical tile. The TileSet arena owns every Tile; containers
// reference it by id only.
type Tile struct {
	ID   int32
	Suit Suit
	Rank Rank

	Location Location
	Debuffed bool
	// FromDiscard marks a hand tile that was taken from the discard pile, so
	// a failed set attempt can return it there.
	FromDiscard bool
	Selected    bool
	Selectable  bool

	// Pile coordinate, valid only while Location == InPile.
	Row, Col int
}

func (t *Tile) IsCelestial() bool {
	return t.Suit == SuitCelestial
}

// CelestialKind maps a celestial tile's rank to its wire discriminator.
func (t *Tile) CelestialKind() netcode.CelestialType {
	if !t.IsCelestial() {
		return netcode.NoCelestial
	}
	return celestialKinds[t.Rank]
}

// SameKind reports whether two tiles share suit and rank.
func (t *Tile) SameKind(o *Tile) bool {
	return t.Suit == o.Suit && t.Rank == o.Rank
}

func (t *Tile) String() string {
	return fmt.Sprintf("%s %s (#%d)", t.Suit, t.Rank, t.ID)
}

// Record builds the wire form of the tile.
func (t *Tile) Record() netcode.TileRecord {
	return netcode.TileRecord{
		ID:          t.ID,
		Suit:        t.Suit.String(),
		Rank:        t.Rank.String(),
		Location:    t.Location.String(),
		Debuffed:    t.Debuffed,
		FromDiscard: t.FromDiscard,
		Row:         t.Row,
		Col:         t.Col,
	}
}

// applyRecord overwrites the tile's replicated fields from the wire form.
// Selection state is view-local and never replicated.
func (t *Tile) applyRecord(rec netcode.TileRecord) error {
	suit, err := suitFromName(rec.Suit)
	if err != nil {
		return err
	}
	rank, err := rankFromName(rec.Rank)
	if err != nil {
		return err
	}
	loc, err := locationFromName(rec.Location)
	if err != nil {
		return err
	}
	t.Suit = suit
	t.Rank = rank
	t.Location = loc
	t.Debuffed = rec.Debuffed
	t.FromDiscard = rec.FromDiscard
	t.Row = rec.Row
	t.Col = rec.Col
	return nil
}
