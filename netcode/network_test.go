package netcode_test

import (
	"testing"

	"github.com/mahsjong/core/netcode"
)

func connectedPair(t *testing.T) (host, client *netcode.NetworkController, hostT, clientT *netcode.Loopback) {
	t.Helper()
	hostT, clientT = netcode.NewLoopbackPair("room-1")
	host = netcode.NewNetworkController()
	client = netcode.NewNetworkController()
	if err := host.ConnectAsHost(hostT); err != nil {
		t.Fatalf("ConnectAsHost: %v", err)
	}
	if err := client.ConnectAsClient(clientT); err != nil {
		t.Fatalf("ConnectAsClient: %v", err)
	}
	host.Update(0)
	client.Update(0)
	if host.Status() != netcode.StatusConnected || client.Status() != netcode.StatusConnected {
		t.Fatalf("status = %v / %v, want connected", host.Status(), client.Status())
	}
	return host, client, hostT, clientT
}

func drain(n *netcode.NetworkController) []netcode.Event {
	var out []netcode.Event
	for {
		ev, ok := n.PollEvent()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestStartGameDelivery(t *testing.T) {
	host, client, _, _ := connectedPair(t)

	host.StartGame()
	host.Update(0)
	client.Update(0)

	if evs := drain(host); len(evs) != 0 {
		t.Fatalf("host got %d events from its own start, want 0", len(evs))
	}
	evs := drain(client)
	if len(evs) != 1 {
		t.Fatalf("client got %d events, want 1", len(evs))
	}
	if _, ok := evs[0].(netcode.EventGameStarted); !ok {
		t.Fatalf("event = %T, want EventGameStarted", evs[0])
	}
	if host.Status() != netcode.StatusInGame || client.Status() != netcode.StatusInGame {
		t.Fatalf("status = %v / %v, want in game", host.Status(), client.Status())
	}
	if host.CurrentTurn() != netcode.HostPid || client.CurrentTurn() != netcode.HostPid {
		t.Fatal("turn should open with the host")
	}
}

func TestOwnEchoSuppressed(t *testing.T) {
	host, client, _, _ := connectedPair(t)
	host.StartGame()
	host.Update(0)
	client.Update(0)
	drain(client)

	rec := netcode.TileRecord{ID: 7, Suit: "dot", Rank: "3", Location: "hostHand"}
	host.BroadcastTileDrawn(host.LocalPid(), rec)
	host.Update(0)
	client.Update(0)

	if evs := drain(host); len(evs) != 0 {
		t.Fatalf("host processed its own echo: %v", evs)
	}
	evs := drain(client)
	if len(evs) != 1 {
		t.Fatalf("client got %d events, want 1", len(evs))
	}
	drawn, ok := evs[0].(netcode.EventTileDrawn)
	if !ok {
		t.Fatalf("event = %T, want EventTileDrawn", evs[0])
	}
	if drawn.Pid != netcode.HostPid || drawn.Tile.ID != 7 {
		t.Fatalf("event = %+v", drawn)
	}
}

func TestEndTurnSequenceArbitration(t *testing.T) {
	host, client, hostT, _ := connectedPair(t)
	host.StartGame()
	host.Update(0)
	client.Update(0)
	drain(client)

	host.EndTurn()
	host.Update(0)
	client.Update(0)

	// the host's own echo carries its current seq and must not toggle again
	if host.CurrentTurn() != netcode.ClientPid || host.TurnSeq() != 1 {
		t.Fatalf("host turn/seq = %d/%d, want 1/1", host.CurrentTurn(), host.TurnSeq())
	}
	evs := drain(client)
	if len(evs) != 1 {
		t.Fatalf("client got %d events, want 1", len(evs))
	}
	turn, ok := evs[0].(netcode.EventTurnChanged)
	if !ok || turn.Turn != netcode.ClientPid || turn.Seq != 1 {
		t.Fatalf("event = %+v", evs[0])
	}

	// replay the same hand-off: stale seq, both peers must ignore it
	s := netcode.NewSerializer()
	s.WriteUint8(netcode.ProtocolVersion)
	s.WriteUint8(uint8(netcode.MsgEndTurn))
	s.WriteUint32(netcode.HostPid)
	s.WriteUint32(1)
	if err := hostT.Broadcast(s.Serialize()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	host.Update(0)
	client.Update(0)
	if evs := drain(client); len(evs) != 0 {
		t.Fatalf("client applied a stale end turn: %v", evs)
	}
	if client.CurrentTurn() != netcode.ClientPid || client.TurnSeq() != 1 {
		t.Fatalf("client turn/seq = %d/%d, want 1/1", client.CurrentTurn(), client.TurnSeq())
	}
}

func TestVersionMismatchDropped(t *testing.T) {
	_, client, hostT, _ := connectedPair(t)

	s := netcode.NewSerializer()
	s.WriteUint8(netcode.ProtocolVersion + 1)
	s.WriteUint8(uint8(netcode.MsgStartGame))
	if err := hostT.Broadcast(s.Serialize()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	client.Update(0)
	if evs := drain(client); len(evs) != 0 {
		t.Fatalf("client accepted a mismatched version: %v", evs)
	}
	if client.Status() != netcode.StatusConnected {
		t.Fatalf("status = %v, want connected", client.Status())
	}
}

func TestConnectionErrorTearsDown(t *testing.T) {
	_, client, _, clientT := connectedPair(t)

	clientT.Fail(netcode.StateDisconnected)
	client.Update(0)
	if client.Status() != netcode.StatusNetError {
		t.Fatalf("status = %v, want net error", client.Status())
	}

	client.Disconnect()
	if client.Status() != netcode.StatusIdle || client.Room() != "" {
		t.Fatalf("disconnect did not reset: %v %q", client.Status(), client.Room())
	}
	client.Disconnect() // idempotent
}

func TestDisconnectClearsQueue(t *testing.T) {
	host, client, _, _ := connectedPair(t)
	host.StartGame()
	client.Update(0)
	client.Disconnect()
	if evs := drain(client); len(evs) != 0 {
		t.Fatalf("queue survived disconnect: %v", evs)
	}
}
