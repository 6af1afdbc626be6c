package netcode

import "errors"

// ConnState mirrors the states a peer connection can report.
type ConnState int

const (
	StateNegotiating ConnState = iota
	StateConnected
	StateDenied
	StateDisconnected
	StateFailed
	StateInvalid
	StateMismatched
)

func (s ConnState) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateDenied:
		return "denied"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateInvalid:
		return "invalid"
	case StateMismatched:
		return "mismatched"
	default:
		return "unknown"
	}
}

var ErrTransportClosed = errors.New("netcode: transport closed")

// Transport is an ordered, reliable, broadcast-capable peer connection.
// Broadcast is a logical multicast: depending on the implementation the
// sender may receive its own frames back, so the layer above must be
// prepared to discard its own echo.
type Transport interface {
	Open() error
	Close() error
	IsOpen() bool
	State() ConnState
	Room() string
	Broadcast(data []byte) error
	// Receive drains all currently queued inbound frames, invoking cb once
	// per frame in arrival order. It never blocks.
	Receive(cb func(source string, data []byte))
}
