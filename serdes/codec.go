package serdes

import (
	"math"
	"strings"
	"unsafe"
)

// Integer is the set of types that can carry a count, a width or a packed value.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// DefaultStringCapacity bounds strings loaded through *string.
const DefaultStringCapacity = 2048

func naturalBits[T any]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

func isSigned[T Integer]() bool {
	return ^T(0) < 0
}

func width(natural, bits uint, explicit bool) uint {
	if explicit {
		return bits
	}
	return natural
}

func integer[T Integer](p *Packet, v *T, bits uint, explicit bool) {
	if v == nil {
		p.Fail(InvalidValue, "nil %T", v)
		return
	}
	w := width(naturalBits[T](), bits, explicit)
	if p.mode == Storing {
		p.putBits(w, uint64(*v))
		return
	}
	raw, ok := p.getBits(w)
	if !ok {
		return
	}
	if isSigned[T]() {
		*v = T(signExtend(raw, w))
	} else {
		*v = T(raw)
	}
}

func integers[T Integer](p *Packet, s []T, bits uint, explicit bool) {
	for i := range s {
		integer(p, &s[i], bits, explicit)
		if p.status != OK {
			return
		}
	}
}

func boolean(p *Packet, v *bool, bits uint, explicit bool) {
	if v == nil {
		p.Fail(InvalidValue, "nil *bool")
		return
	}
	w := width(8, bits, explicit)
	if p.mode == Storing {
		p.putBits(w, boolBits(*v))
		return
	}
	if raw, ok := p.getBits(w); ok {
		*v = raw != 0
	}
}

func booleans(p *Packet, s []bool, bits uint, explicit bool) {
	for i := range s {
		boolean(p, &s[i], bits, explicit)
		if p.status != OK {
			return
		}
	}
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (p *Packet) floatWidth(natural, bits uint, explicit bool) bool {
	if explicit && bits != natural {
		p.Fail(InvalidValue, "float%d requires %d bits, got %d", natural, natural, bits)
		return false
	}
	return true
}

func float32Field(p *Packet, v *float32, bits uint, explicit bool) {
	if v == nil {
		p.Fail(InvalidValue, "nil *float32")
		return
	}
	if !p.floatWidth(32, bits, explicit) {
		return
	}
	if p.mode == Storing {
		p.putBits(32, uint64(math.Float32bits(*v)))
		return
	}
	if raw, ok := p.getBits(32); ok {
		*v = math.Float32frombits(uint32(raw))
	}
}

func float64Field(p *Packet, v *float64, bits uint, explicit bool) {
	if v == nil {
		p.Fail(InvalidValue, "nil *float64")
		return
	}
	if !p.floatWidth(64, bits, explicit) {
		return
	}
	if p.mode == Storing {
		p.putBits(64, math.Float64bits(*v))
		return
	}
	if raw, ok := p.getBits(64); ok {
		*v = math.Float64frombits(raw)
	}
}

// storeValue handles values passed without a pointer. They can be written but
// there is nowhere to load them into.
func (p *Packet) storeValue(raw uint64, natural, bits uint, explicit bool, name string) {
	if p.mode == Loading {
		p.Fail(InvalidValue, "cannot load into non-pointer %s", name)
		return
	}
	p.putBits(width(natural, bits, explicit), raw)
}

func atomicField[T Integer](p *Packet, load func() T, store func(T), bits uint, explicit bool) {
	v := load()
	integer(p, &v, bits, explicit)
	if p.mode == Loading && p.status == OK {
		store(v)
	}
}

func (p *Packet) storeCString(s string, capacity int) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > capacity {
		p.Fail(InvalidValue, "string of %d bytes exceeds capacity %d", len(s), capacity)
		return
	}
	if !p.reserve(uint64(len(s)+1) * 8) {
		return
	}
	for i := 0; i < len(s); i++ {
		p.putBits(8, uint64(s[i]))
	}
	p.putBits(8, 0)
}

func (p *Packet) loadCString(capacity int) (string, bool) {
	var b strings.Builder
	for {
		c, ok := p.getBits(8)
		if !ok {
			return "", false
		}
		if c == 0 {
			return b.String(), true
		}
		if b.Len() >= capacity {
			p.Fail(InvalidValue, "no terminator within %d bytes", capacity)
			return "", false
		}
		b.WriteByte(byte(c))
	}
}

func (p *Packet) cstring(s *string, capacity int) {
	if s == nil {
		p.Fail(InvalidValue, "nil *string")
		return
	}
	if p.mode == Storing {
		p.storeCString(*s, capacity)
		return
	}
	if v, ok := p.loadCString(capacity); ok {
		*s = v
	}
}

func copyBits(src Buffer, srcOff uint64, dst Buffer, dstOff uint64, n uint64) {
	for done := uint64(0); done < n; {
		chunk := min(n-done, MaxFieldBits)
		dst.s.put(dstOff+done, uint(chunk), src.s.get(srcOff+done, uint(chunk)))
		done += chunk
	}
}

func zeroBits(dst Buffer, off uint64, n uint64) {
	for done := uint64(0); done < n; {
		chunk := min(n-done, MaxFieldBits)
		dst.s.put(off+done, uint(chunk), 0)
		done += chunk
	}
}
