package netcode_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mahsjong/core/netcode"
)

func TestCodecRoundTrip(t *testing.T) {
	rec := netcode.TileRecord{
		ID:       42,
		Suit:     "bamboo",
		Rank:     "7",
		Location: "pile",
		Debuffed: true,
		Row:      3,
		Col:      5,
	}

	s := netcode.NewSerializer()
	s.WriteUint8(9)
	s.WriteUint32(0xDEADBEEF)
	s.WriteUint64(1 << 40)
	s.WriteBool(true)
	s.WriteBool(false)
	s.WriteString("remake pile")
	if err := s.WriteJSON(rec); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	d := netcode.NewDeserializer()
	d.Receive(s.Serialize())

	if v, err := d.ReadUint8(); err != nil || v != 9 {
		t.Fatalf("ReadUint8 = %d, %v", v, err)
	}
	if v, err := d.ReadUint32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("ReadUint32 = %d, %v", v, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != 1<<40 {
		t.Fatalf("ReadUint64 = %d, %v", v, err)
	}
	if v, err := d.ReadBool(); err != nil || !v {
		t.Fatalf("ReadBool = %v, %v", v, err)
	}
	if v, err := d.ReadBool(); err != nil || v {
		t.Fatalf("ReadBool = %v, %v", v, err)
	}
	if v, err := d.ReadString(); err != nil || v != "remake pile" {
		t.Fatalf("ReadString = %q, %v", v, err)
	}
	var got netcode.TileRecord
	if err := d.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("ReadJSON = %+v, want %+v", got, rec)
	}
}

func TestCodecShortBuffer(t *testing.T) {
	s := netcode.NewSerializer()
	s.WriteUint8(1)

	tests := []struct {
		name string
		read func(d *netcode.Deserializer) error
	}{
		{"uint32", func(d *netcode.Deserializer) error { _, err := d.ReadUint32(); return err }},
		{"uint64", func(d *netcode.Deserializer) error { _, err := d.ReadUint64(); return err }},
		{"string", func(d *netcode.Deserializer) error { _, err := d.ReadString(); return err }},
		{"json", func(d *netcode.Deserializer) error { var v int; return d.ReadJSON(&v) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := netcode.NewDeserializer()
			d.Receive(s.Serialize())
			if err := tc.read(d); !errors.Is(err, netcode.ErrShortBuffer) {
				t.Fatalf("err = %v, want ErrShortBuffer", err)
			}
		})
	}
}

func TestCodecTruncatedBlob(t *testing.T) {
	s := netcode.NewSerializer()
	s.WriteString("hello")
	frame := s.Serialize()

	d := netcode.NewDeserializer()
	d.Receive(frame[:len(frame)-2])
	if _, err := d.ReadString(); !errors.Is(err, netcode.ErrShortBuffer) {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}
}

func TestSerializerReset(t *testing.T) {
	s := netcode.NewSerializer()
	s.WriteUint32(7)
	s.Reset()
	s.WriteUint8(3)
	if got := len(s.Serialize()); got != 1 {
		t.Fatalf("len after reset = %d, want 1", got)
	}
}
