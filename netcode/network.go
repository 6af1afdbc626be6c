package netcode

import (
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Status is the connection-level state a NetworkController exposes to the
// scenes polling it. Per-message payloads travel through the event queue, not
// through status flags.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusInGame
	StatusNetError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusInGame:
		return "in game"
	case StatusNetError:
		return "net error"
	default:
		return "unknown"
	}
}

const (
	// HostPid and ClientPid are the fixed player ids of the two peers.
	HostPid   uint32 = 0
	ClientPid uint32 = 1
)

// NetworkController owns the transport, encodes every outbound message and
// decodes every inbound one. Messages are fire-and-forget; correctness rests
// on the transport's ordered reliable delivery.
type NetworkController struct {
	transport Transport
	ser       *Serializer
	deser     *Deserializer

	status      Status
	localPid    uint32
	isHost      bool
	currentTurn uint32
	turnSeq     uint32
	events      *eventQueue
}

func NewNetworkController() *NetworkController {
	return &NetworkController{
		ser:    NewSerializer(),
		deser:  NewDeserializer(),
		status: StatusIdle,
		events: newEventQueue(),
	}
}

// ConnectAsHost opens the transport as player 0.
func (n *NetworkController) ConnectAsHost(t Transport) error {
	return n.connect(t, HostPid)
}

// ConnectAsClient opens the transport as player 1. The transport carries the
// room id the host handed out.
func (n *NetworkController) ConnectAsClient(t Transport) error {
	return n.connect(t, ClientPid)
}

func (n *NetworkController) connect(t Transport, pid uint32) error {
	n.transport = t
	n.localPid = pid
	n.isHost = pid == HostPid
	n.status = StatusConnecting
	if err := t.Open(); err != nil {
		logger.Log.Errorf("transport open failed: %v", err)
		n.status = StatusNetError
		return err
	}
	return nil
}

// Disconnect closes the transport and resets all replication state.
// Idempotent.
func (n *NetworkController) Disconnect() {
	if n.transport != nil {
		n.transport.Close()
		n.transport = nil
	}
	n.status = StatusIdle
	n.localPid = 0
	n.isHost = false
	n.currentTurn = 0
	n.turnSeq = 0
	n.events.clear()
}

func (n *NetworkController) Status() Status      { return n.status }
func (n *NetworkController) LocalPid() uint32    { return n.localPid }
func (n *NetworkController) IsHost() bool        { return n.isHost }
func (n *NetworkController) CurrentTurn() uint32 { return n.currentTurn }
func (n *NetworkController) TurnSeq() uint32     { return n.turnSeq }

// IsOurTurn reports whether the local player owns the current turn.
func (n *NetworkController) IsOurTurn() bool {
	return n.currentTurn == n.localPid
}

func (n *NetworkController) Room() string {
	if n.transport == nil {
		return ""
	}
	return n.transport.Room()
}

// PollEvent hands the oldest undelivered inbound event to the caller.
func (n *NetworkController) PollEvent() (Event, bool) {
	return n.events.poll()
}

// Update drains the transport and checks connection health. Must be called
// once per frame before the match controller's update.
func (n *NetworkController) Update(timestep float64) {
	if n.transport == nil {
		return
	}
	n.transport.Receive(func(source string, data []byte) {
		n.processData(source, data)
	})
	n.checkConnection()
}

func (n *NetworkController) checkConnection() {
	switch n.transport.State() {
	case StateConnected:
		if n.status == StatusConnecting {
			n.status = StatusConnected
		}
	case StateDenied, StateDisconnected, StateFailed, StateInvalid, StateMismatched:
		logger.Log.Errorf("connection lost: %v", n.transport.State())
		n.transport.Close()
		n.transport = nil
		n.status = StatusNetError
	}
}

// StartGame begins the match. Host only; the turn always opens with the host.
func (n *NetworkController) StartGame() {
	if !n.isHost {
		return
	}
	n.ser.Reset()
	n.writeHeader(MsgStartGame)
	n.send()
	n.currentTurn = HostPid
	n.turnSeq = 0
	n.status = StatusInGame
}

// EndTurn hands the turn to the other player. Every hand-off carries a
// sequence number so a stale or echoed toggle can never flip ownership twice.
func (n *NetworkController) EndTurn() {
	seq := n.turnSeq + 1
	next := ClientPid
	if n.currentTurn == ClientPid {
		next = HostPid
	}
	n.ser.Reset()
	n.writeHeader(MsgEndTurn)
	n.ser.WriteUint32(next)
	n.ser.WriteUint32(seq)
	n.send()
	n.currentTurn = next
	n.turnSeq = seq
}

// BroadcastClientStart ships the full starting state to the client.
func (n *NetworkController) BroadcastClientStart(snapshot Snapshot) {
	n.ser.Reset()
	n.writeHeader(MsgClientStart)
	n.writeJSON(snapshot)
	n.send()
}

func (n *NetworkController) BroadcastTileDrawn(pid uint32, tile TileRecord) {
	n.ser.Reset()
	n.writeHeader(MsgTileDrawn)
	n.ser.WriteUint32(pid)
	n.writeJSON(tile)
	n.send()
}

func (n *NetworkController) BroadcastTileMap(pid uint32, snapshot Snapshot, reason MapUpdateReason) {
	n.ser.Reset()
	n.writeHeader(MsgTileMapUpdate)
	n.ser.WriteUint32(pid)
	n.writeJSON(snapshot)
	n.ser.WriteUint8(uint8(reason))
	n.send()
}

func (n *NetworkController) BroadcastDiscard(pid uint32, tile TileRecord) {
	n.ser.Reset()
	n.writeHeader(MsgDiscardUpdate)
	n.ser.WriteUint32(pid)
	n.writeJSON(tile)
	n.send()
}

func (n *NetworkController) BroadcastDrawnDiscard(pid uint32) {
	n.ser.Reset()
	n.writeHeader(MsgDrawnDiscard)
	n.ser.WriteUint32(pid)
	n.send()
}

func (n *NetworkController) BroadcastPlaySet(pid uint32, isValid bool, tiles []TileRecord) {
	n.ser.Reset()
	n.writeHeader(MsgPlaySet)
	n.ser.WriteUint32(pid)
	n.writeJSON(tiles)
	n.ser.WriteBool(isValid)
	n.send()
}

func (n *NetworkController) BroadcastCelestialTile(pid uint32, celestial CelestialType, changed []TileRecord, tile TileRecord) {
	n.ser.Reset()
	n.writeHeader(MsgCelestialPlayed)
	n.ser.WriteUint32(pid)
	n.ser.WriteUint8(uint8(celestial))
	n.writeJSON(changed)
	n.writeJSON(tile)
	n.send()
}

func (n *NetworkController) BroadcastEnd(pid uint32) {
	n.ser.Reset()
	n.writeHeader(MsgGameConcluded)
	n.ser.WriteUint32(pid)
	n.send()
}

func (n *NetworkController) writeHeader(msg MsgType) {
	n.ser.WriteUint8(ProtocolVersion)
	n.ser.WriteUint8(uint8(msg))
}

func (n *NetworkController) writeJSON(v any) {
	if err := n.ser.WriteJSON(v); err != nil {
		logger.Log.Errorf("encode failed: %v", err)
	}
}

func (n *NetworkController) send() {
	if n.transport == nil {
		return
	}
	if err := n.transport.Broadcast(n.ser.Serialize()); err != nil {
		logger.Log.Errorf("broadcast failed: %v", err)
	}
}

// processData decodes one inbound frame and enqueues the matching event.
// Frames carrying our own pid are our broadcast echo and are dropped before
// touching any state.
func (n *NetworkController) processData(source string, data []byte) {
	if len(data) == 0 {
		return
	}
	n.deser.Receive(data)

	version, err := n.deser.ReadUint8()
	if err != nil || version != ProtocolVersion {
		logger.Log.Errorf("frame from %s with protocol version %d, dropped", source, version)
		return
	}
	rawType, err := n.deser.ReadUint8()
	if err != nil {
		logger.Log.Errorf("truncated frame from %s", source)
		return
	}

	switch msg := MsgType(rawType); msg {
	case MsgStartGame:
		if n.isHost {
			return // our own echo
		}
		n.currentTurn = HostPid
		n.turnSeq = 0
		n.status = StatusInGame
		n.events.push(EventGameStarted{})

	case MsgEndTurn:
		n.decodeEndTurn()

	case MsgClientStart:
		if n.isHost {
			return
		}
		var snapshot Snapshot
		if err := n.deser.ReadJSON(&snapshot); err != nil {
			logger.Log.Errorf("bad client start payload: %v", err)
			return
		}
		n.status = StatusInGame
		n.events.push(EventClientStart{Snapshot: snapshot})

	case MsgTileDrawn:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		var tile TileRecord
		if err := n.deser.ReadJSON(&tile); err != nil {
			logger.Log.Errorf("bad tile drawn payload: %v", err)
			return
		}
		n.events.push(EventTileDrawn{Pid: pid, Tile: tile})

	case MsgTileMapUpdate:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		var snapshot Snapshot
		if err := n.deser.ReadJSON(&snapshot); err != nil {
			logger.Log.Errorf("bad tile map payload: %v", err)
			return
		}
		reason, err := n.deser.ReadUint8()
		if err != nil {
			logger.Log.Errorf("bad tile map reason: %v", err)
			return
		}
		n.events.push(EventTileMapUpdate{Pid: pid, Snapshot: snapshot, Reason: MapUpdateReason(reason)})

	case MsgDiscardUpdate:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		var tile TileRecord
		if err := n.deser.ReadJSON(&tile); err != nil {
			logger.Log.Errorf("bad discard payload: %v", err)
			return
		}
		n.events.push(EventDiscarded{Pid: pid, Tile: tile})

	case MsgDrawnDiscard:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		n.events.push(EventDrawnDiscard{Pid: pid})

	case MsgPlaySet:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		var tiles []TileRecord
		if err := n.deser.ReadJSON(&tiles); err != nil {
			logger.Log.Errorf("bad play set payload: %v", err)
			return
		}
		valid, err := n.deser.ReadBool()
		if err != nil {
			logger.Log.Errorf("bad play set flag: %v", err)
			return
		}
		n.events.push(EventPlaySet{Pid: pid, Valid: valid, Tiles: tiles})

	case MsgCelestialPlayed:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		rawCelestial, err := n.deser.ReadUint8()
		if err != nil {
			logger.Log.Errorf("bad celestial type: %v", err)
			return
		}
		var changed []TileRecord
		if err := n.deser.ReadJSON(&changed); err != nil {
			logger.Log.Errorf("bad celestial changed payload: %v", err)
			return
		}
		var tile TileRecord
		if err := n.deser.ReadJSON(&tile); err != nil {
			logger.Log.Errorf("bad celestial tile payload: %v", err)
			return
		}
		n.events.push(EventCelestial{
			Pid:       pid,
			Celestial: CelestialType(rawCelestial),
			Changed:   changed,
			Tile:      tile,
		})

	case MsgGameConcluded:
		pid, ok := n.readSender()
		if !ok {
			return
		}
		n.events.push(EventGameConcluded{Pid: pid})

	default:
		logger.Log.Errorf("unknown message type %d from %s, dropped", rawType, source)
	}
}

// readSender reads the sender pid and reports whether the frame should be
// processed further. Our own echo is discarded here.
func (n *NetworkController) readSender() (uint32, bool) {
	pid, err := n.deser.ReadUint32()
	if err != nil {
		logger.Log.Errorf("missing sender pid: %v", err)
		return 0, false
	}
	if pid == n.localPid {
		return pid, false
	}
	return pid, true
}

func (n *NetworkController) decodeEndTurn() {
	turn, err := n.deser.ReadUint32()
	if err != nil {
		logger.Log.Errorf("bad end turn payload: %v", err)
		return
	}
	seq, err := n.deser.ReadUint32()
	if err != nil {
		logger.Log.Errorf("bad end turn seq: %v", err)
		return
	}
	if seq <= n.turnSeq {
		// our own echo, or a stale toggle that already happened
		if seq < n.turnSeq {
			logger.Log.Errorf("stale end turn seq %d (at %d), dropped", seq, n.turnSeq)
		}
		return
	}
	n.currentTurn = turn
	n.turnSeq = seq
	n.events.push(EventTurnChanged{Turn: turn, Seq: seq})
}
