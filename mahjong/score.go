package mahjong

import (
	"sort"
	"strings"
)

// ScoreKeeper tallies one player's set plays. A set is worth its tile count,
// a set played on the player's very next turn after another earns a combo
// bonus, and replaying a set shape already on the table doubles its value.
type ScoreKeeper struct {
	total   int
	shapes  map[string]bool
	lastSeq uint32
	played  bool
}

const comboBonus = 10

func NewScoreKeeper() *ScoreKeeper {
	return &ScoreKeeper{shapes: make(map[string]bool)}
}

func (k *ScoreKeeper) Total() int { return k.total }

// RecordSet scores a successful set played on the turn with the given
// sequence number and returns the points awarded.
func (k *ScoreKeeper) RecordSet(tiles []*Tile, turnSeq uint32) int {
	points := len(tiles)
	shape := setShape(tiles)
	if k.shapes[shape] {
		points *= 2
	}
	k.shapes[shape] = true
	// consecutive own turns are two sequence steps apart
	if k.played && turnSeq == k.lastSeq+2 {
		points += comboBonus
	}
	k.played = true
	k.lastSeq = turnSeq
	k.total += points
	return points
}

func setShape(tiles []*Tile) string {
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = t.Suit.String() + ":" + t.Rank.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
