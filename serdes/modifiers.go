package serdes

// Storable is the closed set of layout items built by this package.
type Storable interface {
	Kind() Kind
	serdes(p *Packet, bits uint, explicit bool)
}

type widthField struct {
	item any
	bits uint
}

// Bits packs item into exactly n bits. For slices and arrays the width applies to
// every element. Unsigned values wrap modulo 2^n, signed values are sign-extended
// on load.
func Bits(item any, n uint) Storable {
	return widthField{item: item, bits: n}
}

func (f widthField) Kind() Kind { return kindOf(f.item) }

func (f widthField) serdes(p *Packet, _ uint, _ bool) {
	p.add(f.item, f.bits, true)
}

type bitpack[S Integer] struct {
	item any
	bits *S
}

// Bitpack packs item into *bits bits. The width is read when the item is
// dispatched, so it may come from a field loaded earlier in the same sequence.
func Bitpack[S Integer](item any, bits *S) Storable {
	return bitpack[S]{item: item, bits: bits}
}

func (b bitpack[S]) Kind() Kind { return KindBitpack }

func (b bitpack[S]) serdes(p *Packet, _ uint, _ bool) {
	if b.bits == nil {
		p.Fail(InvalidValue, "bitpack has no width")
		return
	}
	if *b.bits < 0 || uint64(*b.bits) > MaxFieldBits {
		p.Fail(InvalidValue, "bitpack width %d out of range", int64(*b.bits))
		return
	}
	p.add(b.item, uint(*b.bits), true)
}

type padDirective struct {
	n   uint64
	neg bool
}

// Pad writes n zero bits when storing and skips n bits when loading.
func Pad[S Integer](n S) Storable {
	if n < 0 {
		return padDirective{neg: true}
	}
	return padDirective{n: uint64(n)}
}

func (d padDirective) Kind() Kind { return KindPad }

func (d padDirective) serdes(p *Packet, _ uint, _ bool) {
	if d.neg {
		p.Fail(InvalidValue, "negative pad")
		return
	}
	p.Pad(d.n)
}

type alignDirective struct {
	n   uint64
	neg bool
}

// Align moves to the next multiple of n bits. Align(0) is invalid.
func Align[S Integer](n S) Storable {
	if n < 0 {
		return alignDirective{neg: true}
	}
	return alignDirective{n: uint64(n)}
}

func (d alignDirective) Kind() Kind { return KindAlign }

func (d alignDirective) serdes(p *Packet, _ uint, _ bool) {
	if d.neg {
		p.Fail(InvalidValue, "negative alignment")
		return
	}
	p.Align(d.n)
}

type constant[T Integer] struct {
	v T
}

// Const writes v and, when loading, fails unless the same value is read back.
func Const[T Integer](v T) Storable {
	return constant[T]{v: v}
}

func (c constant[T]) Kind() Kind { return KindValidator }

func (c constant[T]) serdes(p *Packet, bits uint, explicit bool) {
	got := c.v
	if p.mode == Loading {
		got = 0
	}
	integer(p, &got, bits, explicit)
	if p.mode == Storing || p.status != OK {
		return
	}
	m := mask(width(naturalBits[T](), bits, explicit))
	if uint64(got)&m != uint64(c.v)&m {
		p.Fail(InvalidValue, "expected constant %#x, got %#x", uint64(c.v)&m, uint64(got)&m)
	}
}

type validated struct {
	item  any
	check func() bool
}

// Validate runs check before storing item and after loading it. A false result
// fails the Packet with InvalidValue.
func Validate(item any, check func() bool) Storable {
	return validated{item: item, check: check}
}

func (v validated) Kind() Kind { return KindValidator }

func (v validated) serdes(p *Packet, bits uint, explicit bool) {
	if p.mode == Storing {
		if !v.passes() {
			p.Fail(InvalidValue, "validation failed before store")
			return
		}
		p.add(v.item, bits, explicit)
		return
	}
	p.add(v.item, bits, explicit)
	if p.status == OK && !v.passes() {
		p.Fail(InvalidValue, "validation failed after load")
	}
}

func (v validated) passes() bool {
	return v.check != nil && v.check()
}

// CountedArray is a count prefix followed by that many elements. Zero widths mean
// the natural width of the element or count type.
type CountedArray[T any, S Integer] struct {
	Values    []T
	Count     *S
	ElemBits  uint
	CountBits uint
}

func Counted[T any, S Integer](values []T, count *S) *CountedArray[T, S] {
	return &CountedArray[T, S]{Values: values, Count: count}
}

func (a *CountedArray[T, S]) Kind() Kind { return KindCountedArray }

func (a *CountedArray[T, S]) serdes(p *Packet, bits uint, explicit bool) {
	if a.Count == nil {
		p.Fail(InvalidValue, "counted array has no count")
		return
	}
	countBits := a.CountBits
	if countBits == 0 {
		countBits = naturalBits[S]()
	}
	elemBits, elemExplicit := elementWidth(a.ElemBits, bits, explicit)
	capacity := uint64(len(a.Values))

	var n uint64
	if p.mode == Storing {
		if *a.Count < 0 {
			p.Fail(InvalidValue, "negative count %d", int64(*a.Count))
			return
		}
		n = uint64(*a.Count)
		if n > capacity {
			p.Fail(InvalidValue, "count %d exceeds capacity %d", n, capacity)
			return
		}
		if n > mask(countBits) {
			p.Fail(InvalidValue, "count %d does not fit in %d bits", n, countBits)
			return
		}
		if !p.putBits(countBits, n) {
			return
		}
	} else {
		raw, ok := p.getBits(countBits)
		if !ok {
			return
		}
		limit := mask(naturalBits[S]())
		if isSigned[S]() {
			limit >>= 1
		}
		if raw > limit {
			var zero S
			p.Fail(InvalidValue, "count %d overflows %T", raw, zero)
			return
		}
		if raw > capacity {
			p.Fail(InvalidValue, "count %d exceeds capacity %d", raw, capacity)
			return
		}
		n = raw
	}
	for i := uint64(0); i < n; i++ {
		p.add(&a.Values[i], elemBits, elemExplicit)
		if p.status != OK {
			return
		}
	}
	if p.mode == Loading {
		*a.Count = S(n)
	}
}

// DelimitedArray is a run of elements closed by Delimiter. Len holds the number of
// content elements after either direction.
type DelimitedArray[T comparable] struct {
	Values    []T
	Delimiter T
	ElemBits  uint
	Len       int
}

func Delimited[T comparable](values []T, delimiter T) *DelimitedArray[T] {
	return &DelimitedArray[T]{Values: values, Delimiter: delimiter}
}

func (a *DelimitedArray[T]) Kind() Kind { return KindDelimitedArray }

func (a *DelimitedArray[T]) serdes(p *Packet, bits uint, explicit bool) {
	elemBits, elemExplicit := elementWidth(a.ElemBits, bits, explicit)
	if p.mode == Storing {
		n := 0
		for i := range a.Values {
			if a.Values[i] == a.Delimiter {
				break
			}
			p.add(&a.Values[i], elemBits, elemExplicit)
			if p.status != OK {
				return
			}
			n++
		}
		d := a.Delimiter
		p.add(&d, elemBits, elemExplicit)
		if p.status == OK {
			a.Len = n
		}
		return
	}
	for i := 0; ; i++ {
		var e T
		p.add(&e, elemBits, elemExplicit)
		if p.status != OK {
			return
		}
		if e == a.Delimiter {
			a.Len = i
			return
		}
		if i >= len(a.Values) {
			p.Fail(InvalidValue, "no delimiter within %d elements", len(a.Values))
			return
		}
		a.Values[i] = e
	}
}

func elementWidth(own, outer uint, outerExplicit bool) (uint, bool) {
	if own != 0 {
		return own, true
	}
	return outer, outerExplicit
}

type cstring struct {
	s        *string
	capacity int
}

// CString stores *s as bytes closed by a NUL. Loading accepts at most capacity
// bytes before the NUL.
func CString(s *string, capacity int) Storable {
	return cstring{s: s, capacity: capacity}
}

func (c cstring) Kind() Kind { return KindDelimitedArray }

func (c cstring) serdes(p *Packet, _ uint, _ bool) {
	p.cstring(c.s, c.capacity)
}

type region struct {
	bits uint64
	f    Formatter
}

// Region runs f on a child Packet limited to the next bits bits. Unused bits are
// zero filled when storing and the parent always moves by exactly bits.
func Region(bits uint64, f Formatter) Storable {
	return region{bits: bits, f: f}
}

func (r region) Kind() Kind { return KindSubPacket }

func (r region) serdes(p *Packet, _ uint, _ bool) {
	if !p.reserve(r.bits) {
		return
	}
	c := p.child(r.bits)
	c.Add(r.f)
	if c.status != OK {
		p.status = c.status
		p.detail = "region: " + c.detail
		p.failedAt = c.failedAt
		return
	}
	if p.mode == Storing && c.offset < c.limit {
		c.Pad(c.limit - c.offset)
	}
	p.offset += r.bits
}

type embedded struct {
	child *Packet
}

// Embed splices another Packet's buffer into this one. Both directions move the
// child's full view, from its start offset to its capacity. When storing, the bits
// the child has stored are copied in and the rest is zero-filled. When loading, the
// view is filled from this Packet and the child cursor is left in place so it can
// be read afterwards.
func Embed(child *Packet) Storable {
	return embedded{child: child}
}

func (e embedded) Kind() Kind { return KindSubPacket }

func (e embedded) serdes(p *Packet, _ uint, _ bool) {
	c := e.child
	if c == nil {
		p.Fail(InvalidValue, "embedded packet not set")
		return
	}
	if c.status != OK {
		p.Fail(InvalidValue, "embedded packet is %s", c.status)
		return
	}
	n := c.limit - c.start
	if !p.reserve(n) {
		return
	}
	if p.mode == Storing {
		used := c.Consumed()
		copyBits(c.buf, c.start, p.buf, p.offset, used)
		zeroBits(p.buf, p.offset+used, n-used)
		p.offset += n
		return
	}
	copyBits(p.buf, p.offset, c.buf, c.start, n)
	p.offset += n
}
