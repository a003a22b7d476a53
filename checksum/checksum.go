// Package checksum provides checksum fields that cover everything stored before
// them in the same packet.
package checksum

import (
	"errors"
	"hash/crc32"
	"hash/crc64"
	"sort"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/danmuck/serdesctl/serdes"
	"github.com/snksoft/crc"
)

var ErrUnknownAlgorithm = errors.New("checksum: unknown algorithm")

// Algorithm is a named checksum with a fixed wire width.
type Algorithm struct {
	Name string
	Bits uint
	sum  func([]byte) uint64
}

func (a Algorithm) Sum(b []byte) uint64 {
	if a.sum == nil {
		return 0
	}
	return a.sum(b) & widthMask(a.Bits)
}

var (
	castagnoli = crc32.MakeTable(crc32.Castagnoli)
	ecma       = crc64.MakeTable(crc64.ECMA)

	CRC16CCITT = Algorithm{Name: "crc16-ccitt", Bits: 16, sum: func(b []byte) uint64 {
		return crc.CalculateCRC(crc.CCITT, b)
	}}
	CRC32 = Algorithm{Name: "crc32", Bits: 32, sum: func(b []byte) uint64 {
		return uint64(crc32.ChecksumIEEE(b))
	}}
	CRC32C = Algorithm{Name: "crc32c", Bits: 32, sum: func(b []byte) uint64 {
		return uint64(crc32.Checksum(b, castagnoli))
	}}
	CRC64ECMA = Algorithm{Name: "crc64-ecma", Bits: 64, sum: func(b []byte) uint64 {
		return crc64.Checksum(b, ecma)
	}}
	XXH64 = Algorithm{Name: "xxh64", Bits: 64, sum: xxhash.Sum64}
)

var algorithms = map[string]Algorithm{
	CRC16CCITT.Name: CRC16CCITT,
	CRC32.Name:      CRC32,
	CRC32C.Name:     CRC32C,
	CRC64ECMA.Name:  CRC64ECMA,
	XXH64.Name:      XXH64,
}

func Lookup(name string) (Algorithm, error) {
	a, ok := algorithms[name]
	if !ok {
		return Algorithm{}, ErrUnknownAlgorithm
	}
	return a, nil
}

// Names lists the built-in algorithms in sorted order.
func Names() []string {
	out := make([]string, 0, len(algorithms))
	for name := range algorithms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func widthMask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// Field is a checksum over the whole bytes between start of the buffer and the
// cursor. Storing computes the sum into *v and writes it, loading reads it into *v
// and fails the packet on mismatch. T must be at least as wide as the algorithm.
func Field[T serdes.Integer](alg Algorithm, v *T) serdes.Formatter {
	return serdes.FormatterFunc(func(p *serdes.Packet) {
		var zero T
		if width := uint(unsafe.Sizeof(zero)) * 8; width < alg.Bits {
			p.Fail(serdes.InvalidValue, "%s needs %d bits, destination has %d", alg.Name, alg.Bits, width)
			return
		}
		covered := p.PreviousBytes(0)
		if !p.Ok() {
			return
		}
		want := alg.Sum(covered)
		if p.Storing() {
			*v = T(want)
			p.Add(serdes.Bits(v, alg.Bits))
			return
		}
		p.Add(serdes.Bits(v, alg.Bits))
		if !p.Ok() {
			return
		}
		if got := uint64(*v) & widthMask(alg.Bits); got != want {
			p.Fail(serdes.InvalidValue, "%s mismatch: got %#x want %#x", alg.Name, got, want)
		}
	})
}
