package layout

import (
	"fmt"

	"github.com/danmuck/serdesctl/checksum"
	"github.com/danmuck/serdesctl/internal/logging"
	"github.com/danmuck/serdesctl/serdes"
)

// Codec encodes and decodes records for one compiled Layout. A Codec is
// immutable and safe for concurrent use; each call binds fresh value storage.
type Codec struct {
	layout   Layout
	name     string
	wordBits uint
	fields   []*field
	index    map[string]int
	maxBits  uint64
}

func (c *Codec) Name() string   { return c.name }
func (c *Codec) Layout() Layout { return c.layout }

// MaxBits is the size of the largest record the layout can produce.
func (c *Codec) MaxBits() uint64 { return c.maxBits }

func (c *Codec) WordBits() uint { return c.wordBits }

// FieldInfo describes one compiled field. Offset is -1 when it depends on the
// record.
type FieldInfo struct {
	Name   string
	Type   string
	Shape  Shape
	Bits   uint
	Length int
	Offset int64
}

func (c *Codec) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(c.fields))
	offset := int64(0)
	for _, f := range c.fields {
		info := FieldInfo{Name: f.Name, Type: f.Type, Shape: f.shape, Bits: f.width, Length: f.length(), Offset: offset}
		switch f.shape {
		case ShapePad, ShapeAlign:
			info.Bits = f.Bits
		case ShapeString:
			info.Bits = 8
		}
		if f.from >= 0 {
			info.Bits = 0
		}
		if n, ok := f.staticBits(); ok && offset >= 0 {
			offset += int64(n)
		} else {
			offset = -1
		}
		out = append(out, info)
	}
	return out
}

// NewBuffer allocates a buffer of the layout's word type. Without an explicit size
// it holds the largest record.
func (c *Codec) NewBuffer() serdes.Buffer {
	n := c.layout.Size
	if n == 0 {
		n = int((c.maxBits + uint64(c.wordBits) - 1) / uint64(c.wordBits))
	}
	return c.BufferFromBytes(make([]byte, n*int(c.wordBits/8)))
}

// BufferFromBytes packs raw big-endian bytes into the layout's word type.
func (c *Codec) BufferFromBytes(b []byte) serdes.Buffer {
	switch c.wordBits {
	case 16:
		return serdes.Words(packWords[uint16](b, 2))
	case 32:
		return serdes.Words(packWords[uint32](b, 4))
	case 64:
		return serdes.Words(packWords[uint64](b, 8))
	default:
		return serdes.Bytes(b)
	}
}

func packWords[W serdes.Word](b []byte, size int) []W {
	out := make([]W, (len(b)+size-1)/size)
	for i, v := range b {
		serdes.PutBits(out, uint64(i)*8, 8, uint64(v))
	}
	return out
}

func (c *Codec) Encode(rec Record, buf serdes.Buffer, opts ...serdes.Option) (serdes.Result, error) {
	b := c.bind()
	if err := b.fill(rec); err != nil {
		return serdes.Result{Status: serdes.InvalidValue, Detail: err.Error()}, fmt.Errorf("encode %s: %w", c.name, err)
	}
	r := serdes.Store(b, buf, opts...)
	if !r.Ok() {
		logging.Debugf("layout.Encode name=%s status=%s bits=%d detail=%q", c.name, r.Status, r.Bits, r.Detail)
		return r, fmt.Errorf("encode %s: %w", c.name, r.Err())
	}
	return r, nil
}

func (c *Codec) Decode(buf serdes.Buffer, opts ...serdes.Option) (Record, serdes.Result, error) {
	b := c.bind()
	r := serdes.Load(b, buf, opts...)
	if !r.Ok() {
		logging.Debugf("layout.Decode name=%s status=%s bits=%d detail=%q", c.name, r.Status, r.Bits, r.Detail)
		return nil, r, fmt.Errorf("decode %s: %w", c.name, r.Err())
	}
	return b.record(), r, nil
}

// slot holds the values of one field for one call. Only the slice matching the
// field's base type is allocated.
type slot struct {
	u   []uint64
	i   []int64
	f32 []float32
	f64 []float64
	b   []bool
	s   string
	n   uint64
	len int
}

func (s *slot) item(f *field) any {
	scalar := f.shape == ShapeScalar
	switch {
	case f.base.boolean:
		if scalar {
			return &s.b[0]
		}
		return s.b
	case f.base.float && f.base.natural == 32:
		if scalar {
			return &s.f32[0]
		}
		return s.f32
	case f.base.float:
		if scalar {
			return &s.f64[0]
		}
		return s.f64
	case f.base.signed:
		if scalar {
			return &s.i[0]
		}
		return s.i
	default:
		if scalar {
			return &s.u[0]
		}
		return s.u
	}
}

func (s *slot) inRange(f *field) func() bool {
	return func() bool {
		if f.base.signed {
			v := s.i[0]
			return (f.Min == nil || v >= *f.Min) && (f.Max == nil || v <= *f.Max)
		}
		v := s.u[0]
		if f.Min != nil && *f.Min > 0 && v < uint64(*f.Min) {
			return false
		}
		if f.Max != nil && (*f.Max < 0 || v > uint64(*f.Max)) {
			return false
		}
		return true
	}
}

type binding struct {
	c     *Codec
	slots []slot
}

func (c *Codec) bind() *binding {
	b := &binding{c: c, slots: make([]slot, len(c.fields))}
	for i, f := range c.fields {
		s := &b.slots[i]
		switch f.shape {
		case ShapePad, ShapeAlign, ShapeString:
			continue
		}
		n := f.length()
		switch {
		case f.base.boolean:
			s.b = make([]bool, n)
		case f.base.float && f.base.natural == 32:
			s.f32 = make([]float32, n)
		case f.base.float:
			s.f64 = make([]float64, n)
		case f.base.signed:
			s.i = make([]int64, n)
			if f.Const != nil {
				s.i[0] = int64(*f.Const)
			}
		default:
			s.u = make([]uint64, n)
			if f.Const != nil {
				s.u[0] = *f.Const
			}
		}
	}
	return b
}

func (b *binding) Format(p *serdes.Packet) {
	for i, f := range b.c.fields {
		if !p.Ok() {
			return
		}
		b.formatField(p, f, &b.slots[i])
	}
}

func (b *binding) formatField(p *serdes.Packet, f *field, s *slot) {
	switch f.shape {
	case ShapePad:
		p.Add(serdes.Pad(f.Bits))
	case ShapeAlign:
		p.Add(serdes.Align(f.Bits))
	case ShapeChecksum:
		p.Add(checksum.Field(f.algorithm, &s.u[0]))
	case ShapeString:
		p.Add(serdes.CString(&s.s, f.capacity))
	case ShapeCounted:
		switch {
		case f.base.boolean:
			addCounted(p, s.b, s, f)
		case f.base.float && f.base.natural == 32:
			addCounted(p, s.f32, s, f)
		case f.base.float:
			addCounted(p, s.f64, s, f)
		case f.base.signed:
			addCounted(p, s.i, s, f)
		default:
			addCounted(p, s.u, s, f)
		}
	case ShapeDelimited:
		delim := *f.Delimiter
		switch {
		case f.base.boolean:
			addDelimited(p, s.b, delim != 0, s, f)
		case f.base.signed:
			addDelimited(p, s.i, delim, s, f)
		default:
			addDelimited(p, s.u, uint64(delim), s, f)
		}
	default:
		p.Add(b.valueItem(f, s))
	}
}

func (b *binding) valueItem(f *field, s *slot) serdes.Storable {
	var st serdes.Storable
	switch {
	case f.Const != nil && f.base.signed:
		st = serdes.Bits(serdes.Const(int64(*f.Const)), f.width)
	case f.Const != nil:
		st = serdes.Bits(serdes.Const(*f.Const), f.width)
	case f.from >= 0:
		st = serdes.Bitpack(s.item(f), &b.slots[f.from].u[0])
	default:
		st = serdes.Bits(s.item(f), f.width)
	}
	if f.Min != nil || f.Max != nil {
		st = serdes.Validate(st, s.inRange(f))
	}
	return st
}

func addCounted[T any](p *serdes.Packet, vals []T, s *slot, f *field) {
	a := serdes.Counted(vals, &s.n)
	a.ElemBits = f.elemBits()
	a.CountBits = f.countWidth
	p.Add(a)
}

func addDelimited[T comparable](p *serdes.Packet, vals []T, delim T, s *slot, f *field) {
	d := serdes.Delimited(vals, delim)
	d.ElemBits = f.elemBits()
	p.Add(d)
	s.len = d.Len
}
