package mahjong

import (
	"github.com/mahsjong/core/netcode"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Choice is the last notable event the UI layer must react to, then clear
// with SetChoice(ChoiceNone).
type Choice int

const (
	ChoiceNone Choice = iota
	ChoicePileDraw
	ChoiceDiscardUIUpdate
	ChoiceMonkeyTile
	ChoiceRatTile
	ChoiceDragonTile
	ChoicePigTile
	ChoiceDrawnDiscard
	ChoiceSuccessSet
	ChoiceFailedSet
	ChoiceWin
	ChoiceLose
	ChoiceTie
)

// MatchController is the per-peer authoritative state machine. Each peer
// holds a full mirror of the shared model; the mirrors stay consistent
// because every mutation is either deterministic or resolved locally and
// broadcast as a result, never as a seed.
//
// All operations are synchronous and non-blocking: they either mutate and
// broadcast, or refuse with a false return when a guard fails.
type MatchController struct {
	net  *netcode.NetworkController
	rule Rule

	set        *TileSet
	pile       *Pile
	discard    *DiscardPile
	hostHand   *Hand
	clientHand *Hand

	score    *ScoreKeeper
	oppScore *ScoreKeeper
	timer    *Timer

	choice       Choice
	oppCelestial netcode.CelestialType
	// celestial tile awaiting its second step, 0 if none
	pending int32

	hasDrawn           bool
	hasDiscarded       bool
	hasPlayedCelestial bool
	hasTimedOut        bool

	active bool
}

func NewMatchController(net *netcode.NetworkController, rule Rule) *MatchController {
	return &MatchController{
		net:      net,
		rule:     rule.withDefaults(),
		score:    NewScoreKeeper(),
		oppScore: NewScoreKeeper(),
		timer:    NewTimer(),
	}
}

func (c *MatchController) Choice() Choice                           { return c.choice }
func (c *MatchController) SetChoice(ch Choice)                      { c.choice = ch }
func (c *MatchController) OpponentCelestial() netcode.CelestialType { return c.oppCelestial }
func (c *MatchController) ClearOpponentCelestial()                  { c.oppCelestial = netcode.NoCelestial }
func (c *MatchController) Active() bool                             { return c.active }
func (c *MatchController) Score() *ScoreKeeper                      { return c.score }
func (c *MatchController) OpponentScore() *ScoreKeeper              { return c.oppScore }
func (c *MatchController) TileSet() *TileSet                        { return c.set }
func (c *MatchController) Pile() *Pile                              { return c.pile }
func (c *MatchController) Discard() *DiscardPile                    { return c.discard }

func (c *MatchController) LocalHand() *Hand {
	if c.net.LocalPid() == netcode.HostPid {
		return c.hostHand
	}
	return c.clientHand
}

func (c *MatchController) OpponentHand() *Hand {
	if c.net.LocalPid() == netcode.HostPid {
		return c.clientHand
	}
	return c.hostHand
}

// InitHost builds the whole match state, deals both hands, and ships the
// client its starting snapshot. The host owns the first turn.
func (c *MatchController) InitHost() {
	c.buildContainers()
	c.set.BuildDeck(c.rule.CelestialCopies)
	c.set.Shuffle()
	for i := 0; i < c.rule.HandSize; i++ {
		if t, ok := c.set.Draw(); ok {
			c.hostHand.Add(t)
		}
	}
	for i := 0; i < c.rule.HandSize; i++ {
		if t, ok := c.set.Draw(); ok {
			c.clientHand.Add(t)
		}
	}
	c.pile.Build()

	c.net.StartGame()
	c.net.BroadcastClientStart(c.snapshot())
	c.active = true
	c.beginTurn()
}

// InitClient reconstructs the full mirror from the host's snapshot.
func (c *MatchController) InitClient(snap netcode.Snapshot) {
	c.buildContainers()
	c.applySnapshot(snap)
	c.active = true
}

func (c *MatchController) buildContainers() {
	c.set = NewTileSet()
	c.pile = NewPile(c.rule.PileSize, c.set)
	c.discard = NewDiscardPile(c.set)
	c.hostHand = NewHand(c.set, InHostHand, c.rule.HandSize)
	c.clientHand = NewHand(c.set, InClientHand, c.rule.HandSize)
}

func (c *MatchController) snapshot() netcode.Snapshot {
	snap := c.set.Snapshot()
	snap.Discard = c.discard.Order()
	return snap
}

func (c *MatchController) applySnapshot(snap netcode.Snapshot) {
	c.set.Apply(snap)
	c.discard.SetOrder(snap.Discard)
	c.pile.Rebuild()
	c.hostHand.Rebuild()
	c.clientHand.Rebuild()
}

func (c *MatchController) ourTurn() bool {
	return c.active && c.net.IsOurTurn()
}

// DrawTile takes the next pile tile into the local hand. Refused when it is
// not our turn, we already drew, or the hand is already above standing size.
func (c *MatchController) DrawTile() bool {
	hand := c.LocalHand()
	if !c.ourTurn() || c.hasDrawn || hand.Size() > hand.Standing() {
		return false
	}
	t := c.pile.NextTile()
	if t == nil {
		return false
	}
	c.pile.RemoveTile(t.ID)
	hand.Add(t)
	c.hasDrawn = true
	c.choice = ChoicePileDraw
	c.net.BroadcastTileDrawn(c.net.LocalPid(), t.Record())
	if c.pile.VisibleSize() == 0 {
		c.remakePile()
	}
	c.checkWin()
	return true
}

// DrawDiscard takes the most recent discard instead of a pile tile. The tile
// is marked so a failed set attempt can send it back.
func (c *MatchController) DrawDiscard() bool {
	hand := c.LocalHand()
	if !c.ourTurn() || c.hasDrawn || hand.Size() > hand.Standing() || c.discard.Len() == 0 {
		return false
	}
	t := c.discard.DrawTopTile()
	hand.Add(t)
	t.FromDiscard = true
	c.hasDrawn = true
	c.choice = ChoiceDrawnDiscard
	c.net.BroadcastDrawnDiscard(c.net.LocalPid())
	c.checkWin()
	return true
}

// DiscardTile moves a hand tile onto the discard pile. Only legal while the
// hand is above its standing size. Celestial tiles never discard; they leave
// the hand only by being played.
func (c *MatchController) DiscardTile(id int32) bool {
	hand := c.LocalHand()
	if !c.ourTurn() || hand.Size() <= hand.Standing() || !hand.Contains(id) {
		return false
	}
	t, _ := c.set.Tile(id)
	if t.IsCelestial() {
		return false
	}
	hand.Remove(id)
	t.Selected = false
	c.discard.AddTile(t)
	c.hasDiscarded = true
	c.net.BroadcastDiscard(c.net.LocalPid(), t.Record())
	return true
}

// PlaySet melds the currently selected tiles. A valid set leaves the hand for
// good and lowers the standing size; an invalid selection is unwound, with
// any reclaimed discard sent back to the discard pile, and the peer is told
// not to apply a state change.
func (c *MatchController) PlaySet() bool {
	hand := c.LocalHand()
	if !c.ourTurn() {
		return false
	}
	sel := hand.Selected()
	if len(sel) == 0 {
		return false
	}

	if !IsValidSet(sel) {
		recs := make([]netcode.TileRecord, 0, len(sel))
		for _, t := range sel {
			t.Selected = false
			if t.FromDiscard {
				hand.Remove(t.ID)
				c.discard.AddTile(t)
				// the reclaimed tile went back where it came from, which
				// counts as this turn's discard
				c.hasDiscarded = true
			}
			recs = append(recs, t.Record())
		}
		c.choice = ChoiceFailedSet
		c.net.BroadcastPlaySet(c.net.LocalPid(), false, recs)
		return false
	}

	recs := make([]netcode.TileRecord, 0, len(sel))
	for _, t := range sel {
		t.Selected = false
		t.FromDiscard = false
		hand.Remove(t.ID)
		t.Location = Discarded
		recs = append(recs, t.Record())
	}
	hand.LowerStanding(len(sel))
	c.score.RecordSet(sel, c.net.TurnSeq())
	c.choice = ChoiceSuccessSet
	c.net.BroadcastPlaySet(c.net.LocalPid(), true, recs)
	return true
}

// PlayCelestial plays a celestial tile from the local hand. Rooster, Ox,
// Rabbit, Snake and Dragon resolve immediately; Monkey, Rat and Pig mark an
// intent and wait for the matching Select call. Only legal while the hand is
// still above its standing size, so a celestial cannot follow the turn's
// discard: consuming it would leave the hand short with no way to refill.
// Debuffed celestial tiles are dead weight and cannot be played.
func (c *MatchController) PlayCelestial(id int32) bool {
	hand := c.LocalHand()
	if !c.ourTurn() || !c.hasDrawn || c.hasPlayedCelestial ||
		hand.Size() <= hand.Standing() || !hand.Contains(id) {
		return false
	}
	t, _ := c.set.Tile(id)
	if !t.IsCelestial() || t.Debuffed {
		return false
	}

	switch t.CelestialKind() {
	case netcode.CelestialMonkey:
		if c.OpponentHand().Size() == 0 {
			return false
		}
		c.pending = id
		c.choice = ChoiceMonkeyTile
		return true
	case netcode.CelestialRat:
		if c.pile.VisibleSize() == 0 {
			return false
		}
		c.pending = id
		c.choice = ChoiceRatTile
		return true
	case netcode.CelestialPig:
		if c.discard.Len() == 0 {
			return false
		}
		c.pending = id
		c.choice = ChoicePigTile
		return true
	case netcode.CelestialRooster:
		return c.playRooster(t)
	case netcode.CelestialOx:
		return c.playOx(t)
	case netcode.CelestialRabbit:
		return c.playRabbit(t)
	case netcode.CelestialSnake:
		return c.playSnake(t)
	case netcode.CelestialDragon:
		return c.playDragon(t)
	default:
		return false
	}
}

// consumeCelestial discards the played celestial tile itself.
func (c *MatchController) consumeCelestial(t *Tile) {
	c.LocalHand().Remove(t.ID)
	t.Selected = false
	c.discard.AddTile(t)
	c.hasPlayedCelestial = true
}

func (c *MatchController) broadcastCelestial(kind netcode.CelestialType, changed []netcode.TileRecord, celes *Tile) {
	c.net.BroadcastCelestialTile(c.net.LocalPid(), kind, changed, celes.Record())
}

// playRooster reshuffles the pile in place and broadcasts the whole flattened
// pile, so the peer rebuilds an identical arrangement.
func (c *MatchController) playRooster(celes *Tile) bool {
	c.consumeCelestial(celes)
	c.pile.Reshuffle()
	c.broadcastCelestial(netcode.CelestialRooster, recordsOf(c.pile.Flattened()), celes)
	c.EndTurn()
	return true
}

// playOx debuffs two random opponent tiles.
func (c *MatchController) playOx(celes *Tile) bool {
	opp := c.OpponentHand()
	opp.Shuffle()
	var changed []netcode.TileRecord
	for _, t := range opp.Tiles() {
		if t.Debuffed {
			continue
		}
		t.Debuffed = true
		changed = append(changed, t.Record())
		if len(changed) == 2 {
			break
		}
	}
	c.consumeCelestial(celes)
	c.broadcastCelestial(netcode.CelestialOx, changed, celes)
	c.EndTurn()
	return true
}

// randomTarget picks one opponent tile eligible for a rank or suit rewrite.
func (c *MatchController) randomTarget() *Tile {
	opp := c.OpponentHand()
	opp.Shuffle()
	for _, t := range opp.Tiles() {
		if !t.IsCelestial() && !t.Debuffed {
			return t
		}
	}
	return nil
}

// playRabbit rewrites one random opponent tile's rank to a different random
// value.
func (c *MatchController) playRabbit(celes *Tile) bool {
	target := c.randomTarget()
	if target == nil {
		return false
	}
	rank := target.Rank
	for rank == target.Rank {
		rank = Rank(c.set.rng.Intn(9) + 1)
	}
	target.Rank = rank
	c.consumeCelestial(celes)
	c.broadcastCelestial(netcode.CelestialRabbit, []netcode.TileRecord{target.Record()}, celes)
	c.EndTurn()
	return true
}

// playSnake rewrites one random opponent tile's suit to a different numeric
// suit.
func (c *MatchController) playSnake(celes *Tile) bool {
	target := c.randomTarget()
	if target == nil {
		return false
	}
	suit := target.Suit
	for suit == target.Suit {
		suit = NumericSuits[c.set.rng.Intn(len(NumericSuits))]
	}
	target.Suit = suit
	c.consumeCelestial(celes)
	c.broadcastCelestial(netcode.CelestialSnake, []netcode.TileRecord{target.Record()}, celes)
	c.EndTurn()
	return true
}

// playDragon broadcasts the whole flattened pile so the opponent can rearrange
// a row. No hand mutation beyond discarding the dragon itself.
func (c *MatchController) playDragon(celes *Tile) bool {
	c.consumeCelestial(celes)
	c.choice = ChoiceDragonTile
	c.broadcastCelestial(netcode.CelestialDragon, recordsOf(c.pile.Flattened()), celes)
	c.EndTurn()
	return true
}

// SelectMonkeyTile completes a pending Monkey: the given hand tile is traded
// for a random opponent tile.
func (c *MatchController) SelectMonkeyTile(id int32) bool {
	hand := c.LocalHand()
	if c.choice != ChoiceMonkeyTile || c.pending == 0 || !hand.Contains(id) || id == c.pending {
		return false
	}
	opp := c.OpponentHand()
	if opp.Size() == 0 {
		return false
	}
	opp.Shuffle()
	stolen := opp.Tiles()[0]
	opp.Remove(stolen.ID)
	hand.Add(stolen)
	stolen.Debuffed = false

	given, _ := c.set.Tile(id)
	hand.Remove(id)
	given.Selected = false
	opp.Add(given)

	celes := c.takePending()
	c.choice = ChoiceNone
	changed := []netcode.TileRecord{given.Record(), stolen.Record()}
	c.broadcastCelestial(netcode.CelestialMonkey, changed, celes)
	c.checkWin()
	c.EndTurn()
	return true
}

// SelectRatTile completes a pending Rat: the chosen pile tile joins the local
// hand. Emptying the pile triggers a remake and a second broadcast.
func (c *MatchController) SelectRatTile(id int32) bool {
	if c.choice != ChoiceRatTile || c.pending == 0 {
		return false
	}
	if !c.pile.RemoveTile(id) {
		return false
	}
	t, _ := c.set.Tile(id)
	c.LocalHand().Add(t)

	celes := c.takePending()
	c.choice = ChoiceNone
	c.broadcastCelestial(netcode.CelestialRat, []netcode.TileRecord{t.Record()}, celes)
	if c.pile.VisibleSize() == 0 {
		c.remakePile()
	}
	c.checkWin()
	c.EndTurn()
	return true
}

// SelectPigTile completes a pending Pig: the newest discard matching the
// given kind joins the local hand. Matching is by suit and rank, not id.
func (c *MatchController) SelectPigTile(suit Suit, rank Rank) bool {
	if c.choice != ChoicePigTile || c.pending == 0 {
		return false
	}
	t := c.discard.TakeMatching(suit, rank)
	if t == nil {
		return false
	}
	c.LocalHand().Add(t)

	celes := c.takePending()
	c.choice = ChoiceNone
	c.broadcastCelestial(netcode.CelestialPig, []netcode.TileRecord{t.Record()}, celes)
	c.checkWin()
	c.EndTurn()
	return true
}

func (c *MatchController) takePending() *Tile {
	celes, _ := c.set.Tile(c.pending)
	c.pending = 0
	c.consumeCelestial(celes)
	return celes
}

// remakePile refills the pile from the deck and ships the peer the full
// resulting state.
func (c *MatchController) remakePile() {
	c.pile.Build()
	c.net.BroadcastTileMap(c.net.LocalPid(), c.snapshot(), netcode.RemakePile)
}

// EndTurn hands the turn over once the local player has drawn, resolved the
// turn (discard, celestial, or timeout), and brought the hand back to its
// standing size. No-op otherwise.
func (c *MatchController) EndTurn() bool {
	hand := c.LocalHand()
	if !c.ourTurn() || !c.hasDrawn {
		return false
	}
	if !c.hasDiscarded && !c.hasPlayedCelestial && !c.hasTimedOut {
		return false
	}
	if hand.Size() != hand.Standing() {
		return false
	}
	c.timer.Cancel()
	c.net.EndTurn()
	c.resetTurnFlags()
	return true
}

func (c *MatchController) beginTurn() {
	c.resetTurnFlags()
	c.timer.Schedule(c.rule.TurnSeconds, func() {
		c.hasTimedOut = true
		c.EndTurn()
	})
}

func (c *MatchController) resetTurnFlags() {
	c.hasDrawn = false
	c.hasDiscarded = false
	c.hasPlayedCelestial = false
	c.hasTimedOut = false
	c.pending = 0
}

func (c *MatchController) checkWin() {
	if !c.LocalHand().IsWinning() {
		return
	}
	c.choice = ChoiceWin
	c.active = false
	c.timer.Cancel()
	c.net.BroadcastEnd(c.net.LocalPid())
}

// Update drains the network and applies every queued remote mutation to the
// local mirror, then advances the turn timer. Call once per frame.
func (c *MatchController) Update(dt float64) {
	c.net.Update(dt)
	for {
		ev, ok := c.net.PollEvent()
		if !ok {
			break
		}
		c.handleEvent(ev)
	}
	c.timer.Update(dt)
}

func (c *MatchController) handleEvent(ev netcode.Event) {
	switch ev := ev.(type) {
	case netcode.EventGameStarted:
		// model arrives with the client start snapshot

	case netcode.EventClientStart:
		c.InitClient(ev.Snapshot)

	case netcode.EventTurnChanged:
		if ev.Turn == c.net.LocalPid() {
			c.beginTurn()
		} else {
			c.timer.Cancel()
		}

	case netcode.EventTileDrawn:
		c.pile.RemoveTile(ev.Tile.ID)
		c.set.ApplyTiles([]netcode.TileRecord{ev.Tile})
		if t, ok := c.set.Tile(ev.Tile.ID); ok {
			c.OpponentHand().Add(t)
		}

	case netcode.EventTileMapUpdate:
		c.applySnapshot(ev.Snapshot)

	case netcode.EventDiscarded:
		c.set.ApplyTiles([]netcode.TileRecord{ev.Tile})
		if t, ok := c.set.Tile(ev.Tile.ID); ok {
			c.OpponentHand().Remove(t.ID)
			c.discard.AddTile(t)
		}
		c.choice = ChoiceDiscardUIUpdate

	case netcode.EventDrawnDiscard:
		t := c.discard.DrawTopTile()
		if t == nil {
			logger.Log.Error("opponent drew from an empty discard pile")
			return
		}
		t.FromDiscard = true
		c.OpponentHand().Add(t)
		c.choice = ChoiceDrawnDiscard

	case netcode.EventPlaySet:
		c.applyPlaySet(ev)

	case netcode.EventCelestial:
		c.applyCelestial(ev)

	case netcode.EventGameConcluded:
		c.choice = ChoiceLose
		c.active = false
		c.timer.Cancel()
	}
}

func (c *MatchController) applyPlaySet(ev netcode.EventPlaySet) {
	opp := c.OpponentHand()
	c.set.ApplyTiles(ev.Tiles)
	if !ev.Valid {
		// unwind only: reclaimed discards went back to the discard pile
		for _, rec := range ev.Tiles {
			t, ok := c.set.Tile(rec.ID)
			if !ok || t.Location != Discarded {
				continue
			}
			opp.Remove(t.ID)
			c.discard.AddTile(t)
		}
		c.choice = ChoiceFailedSet
		return
	}
	melded := make([]*Tile, 0, len(ev.Tiles))
	for _, rec := range ev.Tiles {
		opp.Remove(rec.ID)
		if t, ok := c.set.Tile(rec.ID); ok {
			melded = append(melded, t)
		}
	}
	opp.LowerStanding(len(ev.Tiles))
	c.oppScore.RecordSet(melded, c.net.TurnSeq())
	c.choice = ChoiceSuccessSet
}

// applyCelestial mirrors the effect the opponent already resolved. Randomness
// never runs here; only the broadcast result is applied.
func (c *MatchController) applyCelestial(ev netcode.EventCelestial) {
	// the celestial tile itself left the opponent's hand for the discard
	c.set.ApplyTiles([]netcode.TileRecord{ev.Tile})
	if celes, ok := c.set.Tile(ev.Tile.ID); ok {
		c.OpponentHand().Remove(celes.ID)
		c.discard.AddTile(celes)
	}

	switch ev.Celestial {
	case netcode.CelestialRooster, netcode.CelestialDragon:
		c.set.ApplyTiles(ev.Changed)
		c.pile.Rebuild()
		if ev.Celestial == netcode.CelestialDragon {
			c.choice = ChoiceDragonTile
		}

	case netcode.CelestialOx, netcode.CelestialRabbit, netcode.CelestialSnake:
		c.set.ApplyTiles(ev.Changed)

	case netcode.CelestialMonkey:
		c.set.ApplyTiles(ev.Changed)
		for _, rec := range ev.Changed {
			if t, ok := c.set.Tile(rec.ID); ok {
				c.rehome(t)
			}
		}

	case netcode.CelestialRat:
		for _, rec := range ev.Changed {
			c.pile.RemoveTile(rec.ID)
			c.set.ApplyTiles([]netcode.TileRecord{rec})
			if t, ok := c.set.Tile(rec.ID); ok {
				c.OpponentHand().Add(t)
			}
		}

	case netcode.CelestialPig:
		for _, rec := range ev.Changed {
			c.discard.Remove(rec.ID)
			c.set.ApplyTiles([]netcode.TileRecord{rec})
			if t, ok := c.set.Tile(rec.ID); ok {
				c.OpponentHand().Add(t)
			}
		}

	default:
		logger.Log.Errorf("unknown celestial %v, dropped", ev.Celestial)
		return
	}
	c.oppCelestial = ev.Celestial
}

// rehome re-seats a tile in whichever hand its location names, after a swap.
func (c *MatchController) rehome(t *Tile) {
	c.hostHand.Remove(t.ID)
	c.clientHand.Remove(t.ID)
	switch t.Location {
	case InHostHand:
		c.hostHand.Add(t)
	case InClientHand:
		c.clientHand.Add(t)
	}
}

func recordsOf(tiles []*Tile) []netcode.TileRecord {
	recs := make([]netcode.TileRecord, len(tiles))
	for i, t := range tiles {
		recs[i] = t.Record()
	}
	return recs
}
