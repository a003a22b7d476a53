package serdes

import "reflect"

// Formatter describes a layout as a sequence of Add calls on p. The same Format
// runs for both modes.
type Formatter interface {
	Format(p *Packet)
}

// BitsFormatter is a Formatter that can be packed to an explicit width through
// Bits or Bitpack. DefaultBits is used when no width is given.
type BitsFormatter interface {
	FormatBits(p *Packet, bits uint)
	DefaultBits() uint
}

type FormatterFunc func(p *Packet)

func (f FormatterFunc) Format(p *Packet) { f(p) }

var (
	// Required fails with invalid-value until it is replaced.
	Required Formatter = FormatterFunc(nil)
	// Optional does nothing.
	Optional Formatter = FormatterFunc(func(*Packet) {})
)

// Adapt formats v with fn without v's type having to implement Formatter.
func Adapt[T any](v *T, fn func(p *Packet, v *T)) Formatter {
	return FormatterFunc(func(p *Packet) {
		fn(p, v)
	})
}

func (p *Packet) format(f Formatter) {
	if isNilFormatter(f) {
		p.Fail(InvalidValue, "formatter not set")
		return
	}
	p.depth++
	f.Format(p)
	p.depth--
}

func (p *Packet) formatBits(f BitsFormatter, bits uint, explicit bool) {
	if isNilFormatter(f) {
		p.Fail(InvalidValue, "formatter not set")
		return
	}
	if !explicit {
		bits = f.DefaultBits()
	}
	p.depth++
	f.FormatBits(p, bits)
	p.depth--
}

func isNilFormatter(f any) bool {
	if f == nil {
		return true
	}
	if ff, ok := f.(FormatterFunc); ok {
		return ff == nil
	}
	rv := reflect.ValueOf(f)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Store runs f over buf in Storing mode.
func Store(f Formatter, buf Buffer, opts ...Option) Result {
	p := NewPacket(buf, Storing, opts...)
	p.Add(f)
	return p.Result()
}

// Load runs f over buf in Loading mode.
func Load(f Formatter, buf Buffer, opts ...Option) Result {
	p := NewPacket(buf, Loading, opts...)
	p.Add(f)
	return p.Result()
}

// StoreWords stores f into the first maxElements elements of dst.
func StoreWords[W Word](f Formatter, dst []W, maxElements int, bitOffset uint64) Result {
	return Store(f, WordsN(dst, maxElements), WithBitOffset(bitOffset))
}

func LoadWords[W Word](f Formatter, src []W, maxElements int, bitOffset uint64) Result {
	return Load(f, WordsN(src, maxElements), WithBitOffset(bitOffset))
}

func StoreSized[W Word](f Formatter, dst SizedPointer[W], bitOffset uint64) Result {
	return Store(f, dst.Buffer(), WithBitOffset(bitOffset))
}

func LoadSized[W Word](f Formatter, src SizedPointer[W], bitOffset uint64) Result {
	return Load(f, src.Buffer(), WithBitOffset(bitOffset))
}
