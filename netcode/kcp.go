package netcode

import (
	"bufio"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"sync"

	"github.com/topfreegames/pitaya/v3/pkg/logger"
	"github.com/xtaci/kcp-go"
	"golang.org/x/crypto/pbkdf2"
)

// KCP transport: one UDP session per match, AES-encrypted, with u16
// length-prefixed frames so message boundaries survive stream mode.

const (
	kcpDataShards   = 10
	kcpParityShards = 3
	kcpInboxCap     = 256
	kcpMaxFrame     = 64 * 1024
)

func newBlockCrypt(password, salt string) (kcp.BlockCrypt, error) {
	key := pbkdf2.Key([]byte(password), []byte(salt), 1024, 32, sha1.New)
	return kcp.NewAESBlockCrypt(key)
}

func tuneSession(sess *kcp.UDPSession) {
	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetStreamMode(true)
	sess.SetWindowSize(4096, 4096)
	sess.SetACKNoDelay(true)
}

func writeFrame(sess *kcp.UDPSession, data []byte) error {
	frame := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(frame, uint16(len(data)))
	copy(frame[2:], data)
	_, err := sess.Write(frame)
	return err
}

type kcpPeer struct {
	address  string
	password string
	salt     string

	mu    sync.Mutex
	sess  *kcp.UDPSession
	state ConnState
	open  bool
	inbox chan []byte
}

func (p *kcpPeer) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *kcpPeer) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *kcpPeer) Room() string {
	return p.address
}

func (p *kcpPeer) Broadcast(data []byte) error {
	p.mu.Lock()
	sess, open := p.sess, p.open
	p.mu.Unlock()
	if !open || sess == nil {
		return ErrTransportClosed
	}
	return writeFrame(sess, data)
}

func (p *kcpPeer) Receive(cb func(source string, data []byte)) {
	for {
		select {
		case frame := <-p.inbox:
			cb(p.address, frame)
		default:
			return
		}
	}
}

func (p *kcpPeer) setState(s ConnState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *kcpPeer) readLoop(sess *kcp.UDPSession) {
	reader := bufio.NewReader(sess)
	for {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			p.onReadError(err)
			return
		}
		if int(length) > kcpMaxFrame {
			logger.Log.Errorf("oversized frame of %d bytes, closing", length)
			p.onReadError(io.ErrUnexpectedEOF)
			return
		}
		frame := make([]byte, length)
		if _, err := io.ReadFull(reader, frame); err != nil {
			p.onReadError(err)
			return
		}
		select {
		case p.inbox <- frame:
		default:
			logger.Log.Error("inbox full, dropping frame")
		}
	}
}

func (p *kcpPeer) onReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	logger.Log.Errorf("session read failed: %v", err)
	p.state = StateDisconnected
}

// KCPHost listens for the single remote peer of a match.
type KCPHost struct {
	kcpPeer
	listener *kcp.Listener
}

// NewKCPHost creates a host transport bound to address (host:port). The
// password and salt derive the AES key both peers must share.
func NewKCPHost(address, password, salt string) *KCPHost {
	h := &KCPHost{}
	h.address = address
	h.password = password
	h.salt = salt
	h.state = StateNegotiating
	h.inbox = make(chan []byte, kcpInboxCap)
	return h
}

func (h *KCPHost) Open() error {
	block, err := newBlockCrypt(h.password, h.salt)
	if err != nil {
		return err
	}
	listener, err := kcp.ListenWithOptions(h.address, block, kcpDataShards, kcpParityShards)
	if err != nil {
		h.setState(StateFailed)
		return err
	}
	h.mu.Lock()
	h.listener = listener
	h.open = true
	h.state = StateNegotiating
	h.mu.Unlock()
	go h.acceptLoop()
	return nil
}

func (h *KCPHost) acceptLoop() {
	sess, err := h.listener.AcceptKCP()
	if err != nil {
		h.mu.Lock()
		if h.open {
			h.state = StateFailed
		}
		h.mu.Unlock()
		return
	}
	tuneSession(sess)
	h.mu.Lock()
	h.sess = sess
	h.state = StateConnected
	h.mu.Unlock()
	h.readLoop(sess)
}

func (h *KCPHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return nil
	}
	h.open = false
	h.state = StateDisconnected
	if h.sess != nil {
		h.sess.Close()
		h.sess = nil
	}
	if h.listener != nil {
		h.listener.Close()
		h.listener = nil
	}
	return nil
}

// KCPClient dials the host of an existing room.
type KCPClient struct {
	kcpPeer
}

// NewKCPClient creates a client transport that will dial address (the room
// id handed out by the host).
func NewKCPClient(address, password, salt string) *KCPClient {
	c := &KCPClient{}
	c.address = address
	c.password = password
	c.salt = salt
	c.state = StateNegotiating
	c.inbox = make(chan []byte, kcpInboxCap)
	return c
}

func (c *KCPClient) Open() error {
	block, err := newBlockCrypt(c.password, c.salt)
	if err != nil {
		return err
	}
	sess, err := kcp.DialWithOptions(c.address, block, kcpDataShards, kcpParityShards)
	if err != nil {
		c.setState(StateFailed)
		return err
	}
	tuneSession(sess)
	c.mu.Lock()
	c.sess = sess
	c.open = true
	c.state = StateConnected
	c.mu.Unlock()
	go c.readLoop(sess)
	return nil
}

func (c *KCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	c.state = StateDisconnected
	if c.sess != nil {
		c.sess.Close()
		c.sess = nil
	}
	return nil
}
