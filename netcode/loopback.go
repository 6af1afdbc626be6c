package netcode

const loopbackQueueCap = 256

// Loopback is an in-memory Transport wired to a twin. Broadcast delivers the
// frame to both peers, including the sender, matching the relay semantics the
// real transport exposes.
type Loopback struct {
	name  string
	room  string
	inbox chan []byte
	peer  *Loopback
	open  bool
	state ConnState
}

// NewLoopbackPair returns two connected transports sharing a room.
func NewLoopbackPair(room string) (*Loopback, *Loopback) {
	a := &Loopback{name: "host", room: room, inbox: make(chan []byte, loopbackQueueCap), state: StateNegotiating}
	b := &Loopback{name: "client", room: room, inbox: make(chan []byte, loopbackQueueCap), state: StateNegotiating}
	a.peer = b
	b.peer = a
	return a, b
}

func (l *Loopback) Open() error {
	l.open = true
	l.state = StateConnected
	return nil
}

func (l *Loopback) Close() error {
	if !l.open {
		return nil
	}
	l.open = false
	l.state = StateDisconnected
	return nil
}

func (l *Loopback) IsOpen() bool {
	return l.open
}

func (l *Loopback) State() ConnState {
	return l.state
}

func (l *Loopback) Room() string {
	return l.room
}

// Fail forces the transport into an error state, for exercising the
// disconnect path in tests.
func (l *Loopback) Fail(state ConnState) {
	l.state = state
}

func (l *Loopback) Broadcast(data []byte) error {
	if !l.open {
		return ErrTransportClosed
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	l.deliver(frame)
	if l.peer != nil && l.peer.open {
		l.peer.deliver(frame)
	}
	return nil
}

func (l *Loopback) deliver(frame []byte) {
	select {
	case l.inbox <- frame:
	default:
		// queue full, frame dropped
	}
}

func (l *Loopback) Receive(cb func(source string, data []byte)) {
	for {
		select {
		case frame := <-l.inbox:
			cb(l.peer.name, frame)
		default:
			return
		}
	}
}
