package mahjong

import (
	"testing"

	"github.com/mahsjong/core/netcode"
)

func newMatch(t *testing.T) (host, client *MatchController) {
	t.Helper()
	hostT, clientT := netcode.NewLoopbackPair("match-1")
	hn := netcode.NewNetworkController()
	cn := netcode.NewNetworkController()
	if err := hn.ConnectAsHost(hostT); err != nil {
		t.Fatalf("ConnectAsHost: %v", err)
	}
	if err := cn.ConnectAsClient(clientT); err != nil {
		t.Fatalf("ConnectAsClient: %v", err)
	}
	hn.Update(0)
	cn.Update(0)

	host = NewMatchController(hn, Rule{})
	client = NewMatchController(cn, Rule{})
	host.InitHost()
	pump(host, client)
	return host, client
}

// pump runs a few frames on every controller so broadcasts settle.
func pump(ms ...*MatchController) {
	for i := 0; i < 4; i++ {
		for _, m := range ms {
			m.Update(0)
		}
	}
}

// swapInCelestial trades the lowest-id hand tile for a fresh celestial. Run
// on both mirrors it produces the identical arrangement, since tile ids are
// allocated in lockstep.
func swapInCelestial(m *MatchController, h *Hand, rank Rank) *Tile {
	var old *Tile
	for _, tile := range h.Tiles() {
		if old == nil || tile.ID < old.ID {
			old = tile
		}
	}
	h.Remove(old.ID)
	old.Location = InDeck
	m.set.deck = append(m.set.deck, old.ID)

	t := m.set.NewTile(SuitCelestial, rank)
	m.set.deck = m.set.deck[:len(m.set.deck)-1]
	h.Add(t)
	return t
}

// firstNumeric picks a hand tile a normal discard will accept, since dealt
// hands may hold celestial tiles.
func firstNumeric(h *Hand) *Tile {
	for _, tile := range h.Tiles() {
		if !tile.IsCelestial() {
			return tile
		}
	}
	return nil
}

func samePiles(t *testing.T, host, client *MatchController) {
	t.Helper()
	h, c := pileIDs(host.pile), pileIDs(client.pile)
	if len(h) != len(c) {
		t.Fatalf("pile sizes differ: %d vs %d", len(h), len(c))
	}
	for i := range h {
		if h[i] != c[i] {
			t.Fatalf("piles diverge at %d: %d vs %d", i, h[i], c[i])
		}
	}
	checkAgreement(t, host.set, host.pile)
	checkAgreement(t, client.set, client.pile)
}

func TestInitReplicatesFullState(t *testing.T) {
	host, client := newMatch(t)

	if !client.Active() {
		t.Fatal("client never initialized")
	}
	if host.hostHand.Size() != 14 || host.clientHand.Size() != 14 {
		t.Fatalf("host hands = %d/%d", host.hostHand.Size(), host.clientHand.Size())
	}
	if client.hostHand.Size() != 14 || client.clientHand.Size() != 14 {
		t.Fatalf("client hands = %d/%d", client.hostHand.Size(), client.clientHand.Size())
	}
	if host.pile.VisibleSize() != 64 || client.pile.VisibleSize() != 64 {
		t.Fatalf("piles = %d/%d, want 64", host.pile.VisibleSize(), client.pile.VisibleSize())
	}
	if host.set.DeckSize() != client.set.DeckSize() {
		t.Fatalf("decks = %d/%d", host.set.DeckSize(), client.set.DeckSize())
	}
	samePiles(t, host, client)
}

func TestDrawDiscardEndTurn(t *testing.T) {
	host, client := newMatch(t)

	if client.DrawTile() {
		t.Fatal("client drew out of turn")
	}
	if host.EndTurn() {
		t.Fatal("turn ended before drawing")
	}
	if !host.DrawTile() {
		t.Fatal("host draw refused")
	}
	if host.DrawTile() {
		t.Fatal("second draw accepted")
	}
	if host.LocalHand().Size() != 15 {
		t.Fatalf("hand = %d, want 15", host.LocalHand().Size())
	}
	if host.EndTurn() {
		t.Fatal("turn ended with an oversized hand")
	}

	discarded := firstNumeric(host.LocalHand())
	if !host.DiscardTile(discarded.ID) {
		t.Fatal("discard refused")
	}
	if discarded.Location != Discarded {
		t.Fatalf("discarded tile location = %v", discarded.Location)
	}
	if !host.EndTurn() {
		t.Fatal("turn gate refused a completed turn")
	}
	pump(host, client)

	if !client.net.IsOurTurn() {
		t.Fatal("turn never reached the client")
	}
	if client.OpponentHand().Size() != 14 {
		t.Fatalf("client sees opponent hand = %d, want 14", client.OpponentHand().Size())
	}
	if client.discard.Len() != 1 || client.discard.TopTile().ID != discarded.ID {
		t.Fatal("discard did not replicate")
	}
}

func TestInvalidSetUnwindsReclaimedDiscard(t *testing.T) {
	host, client := newMatch(t)

	host.DrawTile()
	x := firstNumeric(host.LocalHand())
	host.DiscardTile(x.ID)
	host.EndTurn()
	pump(host, client)

	if !client.DrawDiscard() {
		t.Fatal("draw from discard refused")
	}
	cx, _ := client.set.Tile(x.ID)
	if !cx.FromDiscard {
		t.Fatal("reclaimed tile not marked")
	}

	// force two selected companions into different suits
	a, b := client.LocalHand().Tiles()[0], client.LocalHand().Tiles()[1]
	a.Suit, a.Rank = SuitBamboo, 1
	b.Suit, b.Rank = SuitCrak, 5
	cx.Selected, a.Selected, b.Selected = true, true, true

	if client.PlaySet() {
		t.Fatal("invalid selection accepted")
	}
	if len(client.LocalHand().Selected()) != 0 {
		t.Fatal("selection survived the failed play")
	}
	if cx.Location != Discarded || cx.FromDiscard {
		t.Fatalf("reclaimed tile not unwound: %+v", cx)
	}
	if client.discard.TopTile().ID != x.ID {
		t.Fatal("reclaimed tile missing from discard")
	}
	if client.LocalHand().Size() != 14 {
		t.Fatalf("hand = %d, want 14", client.LocalHand().Size())
	}
	if !client.EndTurn() {
		t.Fatal("turn gate refused after unwind")
	}
	pump(host, client)

	if host.discard.Len() != 1 || host.discard.TopTile().ID != x.ID {
		t.Fatal("unwind did not replicate")
	}
	if host.OpponentHand().Size() != 14 {
		t.Fatalf("host sees opponent hand = %d, want 14", host.OpponentHand().Size())
	}
}

func TestValidSetLowersStanding(t *testing.T) {
	host, client := newMatch(t)

	host.DrawTile()
	tiles := host.LocalHand().Tiles()
	tiles[0].Suit, tiles[0].Rank = SuitBamboo, 2
	tiles[1].Suit, tiles[1].Rank = SuitBamboo, 3
	tiles[2].Suit, tiles[2].Rank = SuitBamboo, 4
	tiles[0].Selected, tiles[1].Selected, tiles[2].Selected = true, true, true

	if !host.PlaySet() {
		t.Fatal("valid run refused")
	}
	if host.LocalHand().Size() != 12 || host.LocalHand().Standing() != 11 {
		t.Fatalf("hand %d/standing %d, want 12/11", host.LocalHand().Size(), host.LocalHand().Standing())
	}
	if host.score.Total() != 3 {
		t.Fatalf("score = %d, want 3", host.score.Total())
	}

	host.DiscardTile(firstNumeric(host.LocalHand()).ID)
	if !host.EndTurn() {
		t.Fatal("turn gate refused")
	}
	pump(host, client)

	if client.OpponentHand().Size() != 11 || client.OpponentHand().Standing() != 11 {
		t.Fatalf("client sees %d/%d, want 11/11",
			client.OpponentHand().Size(), client.OpponentHand().Standing())
	}
	if client.oppScore.Total() != 3 {
		t.Fatalf("opponent score = %d, want 3", client.oppScore.Total())
	}
}

func TestRoosterReshuffleReplicates(t *testing.T) {
	host, client := newMatch(t)

	hr := swapInCelestial(host, host.hostHand, RankRooster)
	cr := swapInCelestial(client, client.hostHand, RankRooster)
	if hr.ID != cr.ID {
		t.Fatalf("mirror surgery out of lockstep: %d vs %d", hr.ID, cr.ID)
	}

	host.DrawTile()
	before := make(map[int32]bool)
	for _, id := range pileIDs(host.pile) {
		before[id] = true
	}

	if !host.PlayCelestial(hr.ID) {
		t.Fatal("rooster refused")
	}
	after := pileIDs(host.pile)
	if len(after) != len(before) {
		t.Fatalf("pile size changed: %d -> %d", len(before), len(after))
	}
	for _, id := range after {
		if !before[id] {
			t.Fatalf("tile %d appeared from nowhere", id)
		}
	}
	pump(host, client)

	samePiles(t, host, client)
	if client.oppCelestial != netcode.CelestialRooster {
		t.Fatalf("opponent effect = %v", client.oppCelestial)
	}
	if !client.net.IsOurTurn() {
		t.Fatal("rooster did not end the turn")
	}
}

func TestOxDebuffsTwoReplicated(t *testing.T) {
	host, client := newMatch(t)

	ho := swapInCelestial(host, host.hostHand, RankOx)
	swapInCelestial(client, client.hostHand, RankOx)

	host.DrawTile()
	if !host.PlayCelestial(ho.ID) {
		t.Fatal("ox refused")
	}
	pump(host, client)

	var hostView, clientView []int32
	for _, tile := range host.clientHand.Tiles() {
		if tile.Debuffed {
			hostView = append(hostView, tile.ID)
		}
	}
	for _, tile := range client.LocalHand().Tiles() {
		if tile.Debuffed {
			clientView = append(clientView, tile.ID)
		}
	}
	if len(hostView) != 2 || len(clientView) != 2 {
		t.Fatalf("debuffed = %d/%d, want 2/2", len(hostView), len(clientView))
	}
	for _, id := range hostView {
		tile, _ := client.set.Tile(id)
		if !tile.Debuffed {
			t.Fatalf("tile %d debuffed on one mirror only", id)
		}
	}
}

func TestMonkeySwapReplicates(t *testing.T) {
	host, client := newMatch(t)

	hm := swapInCelestial(host, host.hostHand, RankMonkey)
	swapInCelestial(client, client.hostHand, RankMonkey)

	host.DrawTile()
	if !host.PlayCelestial(hm.ID) {
		t.Fatal("monkey refused")
	}
	if host.Choice() != ChoiceMonkeyTile {
		t.Fatalf("choice = %v, want monkey intent", host.Choice())
	}

	var given *Tile
	for _, tile := range host.LocalHand().Tiles() {
		if !tile.IsCelestial() {
			given = tile
			break
		}
	}
	if !host.SelectMonkeyTile(given.ID) {
		t.Fatal("monkey swap refused")
	}
	pump(host, client)

	if !client.LocalHand().Contains(given.ID) {
		t.Fatal("given tile never reached the client hand")
	}
	if host.OpponentHand().Size() != 14 || client.LocalHand().Size() != 14 {
		t.Fatalf("hand sizes %d/%d, want 14/14",
			host.OpponentHand().Size(), client.LocalHand().Size())
	}
	if !client.net.IsOurTurn() {
		t.Fatal("monkey did not end the turn")
	}
}

func TestRatPileExhaustionRemake(t *testing.T) {
	host, client := newMatch(t)

	// strip the pile down to two tiles, identically on both mirrors: one for
	// the turn's draw, one for the rat to exhaust
	ids := pileIDs(host.pile)
	for _, id := range ids[:len(ids)-2] {
		for _, m := range []*MatchController{host, client} {
			m.pile.RemoveTile(id)
			tile, _ := m.set.Tile(id)
			tile.Location = InDeck
			m.set.deck = append(m.set.deck, id)
		}
	}
	last := ids[len(ids)-1]

	hr := swapInCelestial(host, host.hostHand, RankRat)
	swapInCelestial(client, client.hostHand, RankRat)

	if !host.DrawTile() {
		t.Fatal("draw refused")
	}
	if !host.PlayCelestial(hr.ID) {
		t.Fatal("rat refused")
	}
	if !host.SelectRatTile(last) {
		t.Fatal("rat selection refused")
	}
	if !host.LocalHand().Contains(last) {
		t.Fatal("stolen tile missing from hand")
	}
	if host.pile.VisibleSize() != 64 {
		t.Fatalf("pile = %d after remake, want 64", host.pile.VisibleSize())
	}
	pump(host, client)

	samePiles(t, host, client)
	if client.OpponentHand().Size() != 15 {
		t.Fatalf("client sees opponent hand = %d, want 15", client.OpponentHand().Size())
	}
	if client.net.IsOurTurn() {
		t.Fatal("turn ended with an oversized hand")
	}
}

func TestPigStealsFromDiscard(t *testing.T) {
	host, client := newMatch(t)

	host.DrawTile()
	x := firstNumeric(host.LocalHand())
	host.DiscardTile(x.ID)
	host.EndTurn()
	pump(host, client)

	cp := swapInCelestial(client, client.clientHand, RankPig)
	swapInCelestial(host, host.clientHand, RankPig)

	client.DrawTile()
	if !client.PlayCelestial(cp.ID) {
		t.Fatal("pig refused")
	}
	cx, _ := client.set.Tile(x.ID)
	if !client.SelectPigTile(cx.Suit, cx.Rank) {
		t.Fatal("pig selection refused")
	}
	if !client.LocalHand().Contains(x.ID) {
		t.Fatal("stolen discard missing from hand")
	}
	client.DiscardTile(firstNumeric(client.LocalHand()).ID)
	if !client.EndTurn() {
		t.Fatal("turn gate refused")
	}
	pump(host, client)

	if !host.clientHand.Contains(x.ID) {
		t.Fatal("pig steal did not replicate")
	}
	if host.discard.Len() != 2 {
		// pig celestial itself plus the follow-up discard
		t.Fatalf("discard = %d tiles, want 2", host.discard.Len())
	}
}

func TestPigRequiresDiscard(t *testing.T) {
	host, _ := newMatch(t)
	hp := swapInCelestial(host, host.hostHand, RankPig)
	host.DrawTile()
	if host.PlayCelestial(hp.ID) {
		t.Fatal("pig accepted with an empty discard pile")
	}
}

func TestCelestialRefusedAfterDiscard(t *testing.T) {
	host, _ := newMatch(t)
	hr := swapInCelestial(host, host.hostHand, RankRooster)

	host.DrawTile()
	if !host.DiscardTile(firstNumeric(host.LocalHand()).ID) {
		t.Fatal("discard refused")
	}
	if host.PlayCelestial(hr.ID) {
		t.Fatal("celestial accepted after the turn's discard")
	}
	// the hand is back at standing, so the turn must still be endable
	if !host.EndTurn() {
		t.Fatal("turn gate refused a completed turn")
	}
}

func TestDebuffedCelestialRefused(t *testing.T) {
	host, _ := newMatch(t)
	hr := swapInCelestial(host, host.hostHand, RankRooster)
	hr.Debuffed = true

	host.DrawTile()
	if host.PlayCelestial(hr.ID) {
		t.Fatal("debuffed celestial accepted")
	}
}

func TestCelestialCannotBeDiscarded(t *testing.T) {
	host, _ := newMatch(t)
	hr := swapInCelestial(host, host.hostHand, RankRooster)

	host.DrawTile()
	if host.DiscardTile(hr.ID) {
		t.Fatal("celestial tile discarded")
	}
	if hr.Location != InHostHand {
		t.Fatalf("celestial location = %v, want still in hand", hr.Location)
	}
}

func TestWinOnDrawConcludesBothPeers(t *testing.T) {
	host, client := newMatch(t)

	host.DrawTile()
	x := firstNumeric(host.LocalHand())
	host.DiscardTile(x.ID)
	host.EndTurn()
	pump(host, client)

	// rewrite the client hand into a finished shape on both mirrors,
	// matching tiles by id
	for _, m := range []*MatchController{host, client} {
		tiles := m.set.TilesIn(InClientHand)
		for i, tile := range tiles {
			tile.Suit = winningShape[i].suit
			tile.Rank = winningShape[i].rank
			tile.Debuffed = false
		}
	}

	if !client.DrawDiscard() {
		t.Fatal("draw from discard refused")
	}
	if client.Choice() != ChoiceWin {
		t.Fatalf("choice = %v, want win", client.Choice())
	}
	if client.Active() {
		t.Fatal("winner still active")
	}
	pump(host, client)

	if host.Choice() != ChoiceLose {
		t.Fatalf("choice = %v, want lose", host.Choice())
	}
	if host.Active() {
		t.Fatal("loser still active")
	}
}

func TestTurnTimeoutEndsTurn(t *testing.T) {
	host, client := newMatch(t)

	host.hasDrawn = true
	host.Update(61)
	pump(host, client)

	if host.net.CurrentTurn() != netcode.ClientPid {
		t.Fatal("timeout did not hand the turn over")
	}
	if !client.net.IsOurTurn() {
		t.Fatal("turn change never reached the client")
	}
}
