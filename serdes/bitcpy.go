package serdes

import "math/bits"

// MaxFieldBits is the widest single field the engine moves in one step.
const MaxFieldBits = 64

// PutBits writes the low n bits of v into dst starting at bitOffset, most
// significant bit first. It returns the number of bits written, which is 0 when n
// exceeds MaxFieldBits or the field does not fit; dst is untouched in that case.
func PutBits[W Word](dst []W, bitOffset uint64, n uint, v uint64) uint {
	if n > MaxFieldBits || !fits(uint64(len(dst))*uint64(wordBits[W]()), bitOffset, n) {
		return 0
	}
	putWords(dst, bitOffset, n, v)
	return n
}

// GetBits reads n bits from src starting at bitOffset. It returns the value and the
// number of bits read, which is 0 when the field is out of range.
func GetBits[W Word](src []W, bitOffset uint64, n uint) (uint64, uint) {
	if n > MaxFieldBits || !fits(uint64(len(src))*uint64(wordBits[W]()), bitOffset, n) {
		return 0, 0
	}
	return getWords(src, bitOffset, n), n
}

func fits(capacity, offset uint64, n uint) bool {
	return offset <= capacity && capacity-offset >= uint64(n)
}

func wordBits[W Word]() uint {
	return uint(bits.Len64(uint64(^W(0))))
}

func mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

func signExtend(v uint64, n uint) int64 {
	switch {
	case n == 0:
		return 0
	case n >= 64:
		return int64(v)
	}
	shift := 64 - n
	return int64(v<<shift) >> shift
}

func putWords[W Word](dst []W, off uint64, n uint, v uint64) {
	wb := uint64(wordBits[W]())
	for n > 0 {
		idx := off / wb
		room := wb - off%wb
		take := uint64(n)
		if take > room {
			take = room
		}
		pos := room - take
		chunk := (v >> (uint64(n) - take)) & mask(uint(take))
		m := W(mask(uint(take)) << pos)
		dst[idx] = dst[idx]&^m | W(chunk<<pos)
		off += take
		n -= uint(take)
	}
}

func getWords[W Word](src []W, off uint64, n uint) uint64 {
	wb := uint64(wordBits[W]())
	var out uint64
	for n > 0 {
		idx := off / wb
		room := wb - off%wb
		take := uint64(n)
		if take > room {
			take = room
		}
		pos := room - take
		chunk := (uint64(src[idx]) >> pos) & mask(uint(take))
		out = out<<take | chunk
		off += take
		n -= uint(take)
	}
	return out
}
