package netcode

import (
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Event is one decoded inbound message. The match layer drains events with
// PollEvent; each event is delivered exactly once.
type Event interface {
	Type() MsgType
}

type EventGameStarted struct{}

func (EventGameStarted) Type() MsgType { return MsgStartGame }

type EventTurnChanged struct {
	Turn uint32
	Seq  uint32
}

func (EventTurnChanged) Type() MsgType { return MsgEndTurn }

type EventClientStart struct {
	Snapshot Snapshot
}

func (EventClientStart) Type() MsgType { return MsgClientStart }

type EventTileDrawn struct {
	Pid  uint32
	Tile TileRecord
}

func (EventTileDrawn) Type() MsgType { return MsgTileDrawn }

type EventTileMapUpdate struct {
	Pid      uint32
	Snapshot Snapshot
	Reason   MapUpdateReason
}

func (EventTileMapUpdate) Type() MsgType { return MsgTileMapUpdate }

type EventDiscarded struct {
	Pid  uint32
	Tile TileRecord
}

func (EventDiscarded) Type() MsgType { return MsgDiscardUpdate }

type EventDrawnDiscard struct {
	Pid uint32
}

func (EventDrawnDiscard) Type() MsgType { return MsgDrawnDiscard }

type EventPlaySet struct {
	Pid   uint32
	Valid bool
	Tiles []TileRecord
}

func (EventPlaySet) Type() MsgType { return MsgPlaySet }

type EventCelestial struct {
	Pid       uint32
	Celestial CelestialType
	Changed   []TileRecord
	Tile      TileRecord
}

func (EventCelestial) Type() MsgType { return MsgCelestialPlayed }

type EventGameConcluded struct {
	Pid uint32
}

func (EventGameConcluded) Type() MsgType { return MsgGameConcluded }

const eventQueueCap = 64

// eventQueue is a bounded FIFO. Overflow drops the incoming event with an
// error log rather than blocking the frame loop.
type eventQueue struct {
	events []Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{events: make([]Event, 0, eventQueueCap)}
}

func (q *eventQueue) push(ev Event) {
	if len(q.events) >= eventQueueCap {
		logger.Log.Errorf("event queue full, dropping %v", ev.Type())
		return
	}
	q.events = append(q.events, ev)
}

func (q *eventQueue) poll() (Event, bool) {
	if len(q.events) == 0 {
		return nil, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}

func (q *eventQueue) clear() {
	q.events = q.events[:0]
}
