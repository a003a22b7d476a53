package serdes

import (
	"bytes"
	"strings"
	"testing"
)

type color uint8

type flag bool

type sample struct {
	U8    uint8
	U16   uint16
	U32   uint32
	U64   uint64
	I8    int8
	I16   int16
	I32   int32
	I64   int64
	I     int
	U     uint
	B     bool
	F32   float32
	F64   float64
	Name  string
	Grid  [3]uint16
	Color color
	Flag  flag
}

func (s *sample) Format(p *Packet) {
	p.Add(&s.U8, &s.U16, &s.U32, &s.U64, &s.I8, &s.I16, &s.I32, &s.I64, &s.I, &s.U,
		&s.B, &s.F32, &s.F64, &s.Name, &s.Grid, &s.Color, &s.Flag)
}

func TestFormatterRoundTripAllScalars(t *testing.T) {
	in := sample{
		U8: 0xAB, U16: 0xBEEF, U32: 0xDEADBEEF, U64: 0x0123456789ABCDEF,
		I8: -8, I16: -1600, I32: -320000, I64: -1 << 40,
		I: -42, U: 42, B: true, F32: 3.25, F64: -1.0e300,
		Name: "serdes", Grid: [3]uint16{1, 2, 0xFFFF}, Color: 7, Flag: true,
	}
	buf := make([]byte, 128)
	r := Store(&in, Bytes(buf))
	if !r.Ok() || r.Bits != 592 {
		t.Fatalf("store failed: %+v", r)
	}

	var out sample
	lr := Load(&out, Bytes(buf))
	if !lr.Ok() {
		t.Fatalf("load failed: %v", lr.Err())
	}
	if lr.Bits != r.Bits {
		t.Fatalf("bit counts differ: store=%d load=%d", r.Bits, lr.Bits)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestMultiByteScalarsAreBigEndian(t *testing.T) {
	buf := make([]byte, 6)
	NewPacket(Bytes(buf), Storing).Add(uint16(0x0102), uint32(0x03040506))
	if !bytes.Equal(buf, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected order % X", buf)
	}
}

type point struct {
	X, Y int16
}

func (pt *point) Format(p *Packet) {
	p.Add(&pt.X, Bits(&pt.Y, 12))
}

type legacyPoint struct {
	X, Y int16
}

func TestFormatterIdiomsProduceSameBytes(t *testing.T) {
	RegisterFormat(func(p *Packet, v *legacyPoint) {
		p.Add(&v.X, Bits(&v.Y, 12))
	})
	t.Cleanup(UnregisterFormat[legacyPoint])

	intrusive := make([]byte, 4)
	adapted := make([]byte, 4)
	registered := make([]byte, 4)

	Store(&point{X: -2, Y: 300}, Bytes(intrusive))
	lp := legacyPoint{X: -2, Y: 300}
	Store(Adapt(&lp, func(p *Packet, v *legacyPoint) {
		p.Add(&v.X, Bits(&v.Y, 12))
	}), Bytes(adapted))
	if p := NewPacket(Bytes(registered), Storing).Add(&lp); !p.Ok() {
		t.Fatalf("registered store failed: %v", p.Err())
	}

	if !bytes.Equal(intrusive, adapted) || !bytes.Equal(intrusive, registered) {
		t.Fatalf("idioms disagree: % X / % X / % X", intrusive, adapted, registered)
	}

	var back legacyPoint
	if p := NewPacket(Bytes(registered), Loading).Add(&back); !p.Ok() || back != lp {
		t.Fatalf("registered load mismatch %+v err=%v", back, p.Err())
	}
}

func TestSliceOfFormatters(t *testing.T) {
	buf := make([]byte, 16)
	pts := []point{{1, 2}, {3, 4}}
	if p := NewPacket(Bytes(buf), Storing).Add(pts); !p.Ok() || p.Consumed() != 56 {
		t.Fatalf("store failed: %v consumed=%d", p.Err(), p.Consumed())
	}
	out := make([]point, 2)
	if p := NewPacket(Bytes(buf), Loading).Add(out); !p.Ok() || out[1] != (point{3, 4}) {
		t.Fatalf("load mismatch %+v", out)
	}
}

type nibble uint8

func (n *nibble) DefaultBits() uint { return 4 }

func (n *nibble) FormatBits(p *Packet, bits uint) {
	v := uint8(*n)
	p.Add(Bits(&v, bits))
	*n = nibble(v)
}

func TestBitsFormatterUsesDefaultAndExplicitWidths(t *testing.T) {
	buf := make([]byte, 2)
	a, b := nibble(0xF), nibble(0x3)
	p := NewPacket(Bytes(buf), Storing).Add(&a, Bits(&b, 2))
	if p.Consumed() != 6 || buf[0] != 0b11111100 {
		t.Fatalf("unexpected packing %08b consumed=%d", buf[0], p.Consumed())
	}
}

func TestUnsetFormatterFails(t *testing.T) {
	var f Formatter
	p := NewPacket(Bytes(make([]byte, 1)), Storing).Add(f)
	if p.Status() != InvalidValue || p.Detail() != "formatter not set" {
		t.Fatalf("expected formatter not set, got %s %q", p.Status(), p.Detail())
	}

	p = NewPacket(Bytes(make([]byte, 1)), Loading).Add(Required)
	if p.Status() != InvalidValue {
		t.Fatalf("expected Required to fail, got %s", p.Status())
	}

	var nilPoint *point
	p = NewPacket(Bytes(make([]byte, 1)), Storing).Add(nilPoint)
	if p.Status() != InvalidValue {
		t.Fatalf("expected nil formatter pointer to fail, got %s", p.Status())
	}

	p = NewPacket(Bytes(make([]byte, 1)), Storing).Add(Optional)
	if !p.Ok() || p.Consumed() != 0 {
		t.Fatalf("expected Optional to be a no-op")
	}
}

func TestUnsupportedType(t *testing.T) {
	ch := make(chan int)
	p := NewPacket(Bytes(make([]byte, 4)), Storing).Add(ch)
	if p.Status() != InvalidValue || !strings.Contains(p.Detail(), "unsupported type") {
		t.Fatalf("expected unsupported type, got %s %q", p.Status(), p.Detail())
	}
}

func TestValidate(t *testing.T) {
	v := uint8(200)
	inRange := func() bool { return v <= 100 }
	buf := []byte{0x11}
	p := NewPacket(Bytes(buf), Storing).Add(Validate(&v, inRange))
	if p.Status() != InvalidValue || buf[0] != 0x11 {
		t.Fatalf("expected rejected store to leave buffer alone, got %s % X", p.Status(), buf)
	}

	buf[0] = 250
	p = NewPacket(Bytes(buf), Loading).Add(Validate(&v, inRange))
	if p.Status() != InvalidValue || v != 250 {
		t.Fatalf("expected rejected load, got %s v=%d", p.Status(), v)
	}

	buf[0] = 50
	if p = NewPacket(Bytes(buf), Loading).Add(Validate(&v, inRange)); !p.Ok() || v != 50 {
		t.Fatalf("expected valid load, got %v", p.Err())
	}
}

func TestConst(t *testing.T) {
	buf := make([]byte, 2)
	NewPacket(Bytes(buf), Storing).Add(Const(uint16(0xCAFE)))
	if buf[0] != 0xCA || buf[1] != 0xFE {
		t.Fatalf("unexpected magic % X", buf)
	}
	if p := NewPacket(Bytes(buf), Loading).Add(Const(uint16(0xCAFE))); !p.Ok() {
		t.Fatalf("expected magic to match: %v", p.Err())
	}
	if p := NewPacket(Bytes(buf), Loading).Add(Const(uint16(0xBEEF))); p.Status() != InvalidValue {
		t.Fatalf("expected magic mismatch, got %s", p.Status())
	}
	if p := NewPacket(Bytes(buf), Loading).Add(Bits(Const(uint8(0xC)), 4)); !p.Ok() || p.Consumed() != 4 {
		t.Fatalf("expected 4 bit constant to match: %v", p.Err())
	}
}

func TestObserverSeesEveryItem(t *testing.T) {
	var events []Event
	obs := ObserverFunc(func(ev Event) { events = append(events, ev) })
	buf := make([]byte, 16)
	a, b := uint8(1), uint16(2)
	n := uint8(1)
	p := NewPacket(Bytes(buf), Storing, WithObserver(obs))
	p.Add(&a, Pad(3), Counted([]uint8{9}, &n), FormatterFunc(func(p *Packet) {
		p.Add(&b)
	}))
	if !p.Ok() || len(events) != 5 {
		t.Fatalf("expected 5 events, got %d (%v)", len(events), p.Err())
	}
	kinds := []Kind{KindScalar, KindPad, KindCountedArray, KindScalar, KindFormatter}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Fatalf("event %d kind=%s want %s", i, events[i].Kind, k)
		}
	}
	if events[3].Depth != 1 || events[4].Depth != 0 || events[4].Bits != 16 {
		t.Fatalf("unexpected nesting %+v %+v", events[3], events[4])
	}
	if events[1].Offset != 8 || events[1].Bits != 3 {
		t.Fatalf("unexpected pad event %+v", events[1])
	}
}
