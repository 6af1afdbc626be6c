package netcode

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Frames are big-endian. Strings and JSON blobs are u32 length-prefixed; the
// reader consumes fields in exactly the order the writer emitted them.

const maxBlobLen = 1 << 20

var ErrShortBuffer = errors.New("netcode: read past end of buffer")

// Serializer accumulates primitive values into a single outbound frame.
type Serializer struct {
	buf []byte
}

func NewSerializer() *Serializer {
	return &Serializer{buf: make([]byte, 0, 256)}
}

func (s *Serializer) Reset() {
	s.buf = s.buf[:0]
}

// Serialize returns the accumulated frame. The returned slice is only valid
// until the next Reset.
func (s *Serializer) Serialize() []byte {
	return s.buf
}

func (s *Serializer) WriteUint8(v uint8) {
	s.buf = append(s.buf, v)
}

func (s *Serializer) WriteUint32(v uint32) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

func (s *Serializer) WriteUint64(v uint64) {
	s.buf = binary.BigEndian.AppendUint64(s.buf, v)
}

func (s *Serializer) WriteBool(v bool) {
	if v {
		s.buf = append(s.buf, 1)
	} else {
		s.buf = append(s.buf, 0)
	}
}

func (s *Serializer) WriteString(v string) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, uint32(len(v)))
	s.buf = append(s.buf, v...)
}

// WriteJSON marshals v and writes it as a length-prefixed blob.
func (s *Serializer) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.buf = binary.BigEndian.AppendUint32(s.buf, uint32(len(b)))
	s.buf = append(s.buf, b...)
	return nil
}

// Deserializer reads primitive values back out of a received frame.
type Deserializer struct {
	buf []byte
	off int
}

func NewDeserializer() *Deserializer {
	return &Deserializer{}
}

// Receive resets the deserializer onto a new inbound frame.
func (d *Deserializer) Receive(data []byte) {
	d.buf = data
	d.off = 0
}

func (d *Deserializer) remaining() int {
	return len(d.buf) - d.off
}

func (d *Deserializer) ReadUint8() (uint8, error) {
	if d.remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *Deserializer) ReadUint32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *Deserializer) ReadUint64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

func (d *Deserializer) ReadBool() (bool, error) {
	v, err := d.ReadUint8()
	return v != 0, err
}

func (d *Deserializer) readBlob() ([]byte, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxBlobLen {
		return nil, fmt.Errorf("netcode: blob of %d bytes exceeds limit", n)
	}
	if d.remaining() < int(n) {
		return nil, ErrShortBuffer
	}
	b := d.buf[d.off : d.off+int(n)]
	d.off += int(n)
	return b, nil
}

func (d *Deserializer) ReadString() (string, error) {
	b, err := d.readBlob()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadJSON reads a length-prefixed blob and unmarshals it into out.
func (d *Deserializer) ReadJSON(out any) error {
	b, err := d.readBlob()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
