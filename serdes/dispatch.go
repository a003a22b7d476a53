package serdes

import (
	"math"
	"reflect"
	"strconv"
	"sync/atomic"
)

// Add serializes each item in order, in the Packet's mode. Items may be pointers to
// scalars, slices or arrays of scalars, Formatters, registered types or the
// wrappers built by Bits, Bitpack, Counted, Delimited, Pad, Align, Const, Validate,
// CString, Region and Embed. Values without a pointer can only be stored.
//
// Add does nothing once the Packet has failed, so a long chain can be issued
// unconditionally and checked once at the end.
func (p *Packet) Add(items ...any) *Packet {
	for _, item := range items {
		if p.status != OK {
			break
		}
		if p.observer == nil {
			p.add(item, 0, false)
			continue
		}
		start := p.offset
		p.add(item, 0, false)
		p.observer.Observe(Event{
			Kind:   kindOf(item),
			Mode:   p.mode,
			Offset: start,
			Bits:   p.offset - start,
			Status: p.status,
			Depth:  p.depth,
		})
	}
	return p
}

func (p *Packet) add(item any, bits uint, explicit bool) {
	if p.status != OK {
		return
	}
	switch v := item.(type) {
	case nil:
		p.Fail(InvalidValue, "formatter not set")
	case Storable:
		v.serdes(p, bits, explicit)
	case BitsFormatter:
		p.formatBits(v, bits, explicit)
	case Formatter:
		p.format(v)

	case *uint8:
		integer(p, v, bits, explicit)
	case *uint16:
		integer(p, v, bits, explicit)
	case *uint32:
		integer(p, v, bits, explicit)
	case *uint64:
		integer(p, v, bits, explicit)
	case *uint:
		integer(p, v, bits, explicit)
	case *uintptr:
		integer(p, v, bits, explicit)
	case *int8:
		integer(p, v, bits, explicit)
	case *int16:
		integer(p, v, bits, explicit)
	case *int32:
		integer(p, v, bits, explicit)
	case *int64:
		integer(p, v, bits, explicit)
	case *int:
		integer(p, v, bits, explicit)
	case *bool:
		boolean(p, v, bits, explicit)
	case *float32:
		float32Field(p, v, bits, explicit)
	case *float64:
		float64Field(p, v, bits, explicit)
	case *string:
		p.cstring(v, DefaultStringCapacity)

	case []uint8:
		integers(p, v, bits, explicit)
	case []uint16:
		integers(p, v, bits, explicit)
	case []uint32:
		integers(p, v, bits, explicit)
	case []uint64:
		integers(p, v, bits, explicit)
	case []int8:
		integers(p, v, bits, explicit)
	case []int16:
		integers(p, v, bits, explicit)
	case []int32:
		integers(p, v, bits, explicit)
	case []int64:
		integers(p, v, bits, explicit)
	case []bool:
		booleans(p, v, bits, explicit)

	case *atomic.Uint32:
		atomicField(p, v.Load, v.Store, bits, explicit)
	case *atomic.Uint64:
		atomicField(p, v.Load, v.Store, bits, explicit)
	case *atomic.Int32:
		atomicField(p, v.Load, v.Store, bits, explicit)
	case *atomic.Int64:
		atomicField(p, v.Load, v.Store, bits, explicit)
	case *atomic.Uintptr:
		atomicField(p, v.Load, v.Store, bits, explicit)
	case *atomic.Bool:
		b := v.Load()
		boolean(p, &b, bits, explicit)
		if p.mode == Loading && p.status == OK {
			v.Store(b)
		}

	case uint8:
		p.storeValue(uint64(v), 8, bits, explicit, "uint8")
	case uint16:
		p.storeValue(uint64(v), 16, bits, explicit, "uint16")
	case uint32:
		p.storeValue(uint64(v), 32, bits, explicit, "uint32")
	case uint64:
		p.storeValue(v, 64, bits, explicit, "uint64")
	case uint:
		p.storeValue(uint64(v), strconv.IntSize, bits, explicit, "uint")
	case int8:
		p.storeValue(uint64(v), 8, bits, explicit, "int8")
	case int16:
		p.storeValue(uint64(v), 16, bits, explicit, "int16")
	case int32:
		p.storeValue(uint64(v), 32, bits, explicit, "int32")
	case int64:
		p.storeValue(uint64(v), 64, bits, explicit, "int64")
	case int:
		p.storeValue(uint64(v), strconv.IntSize, bits, explicit, "int")
	case bool:
		p.storeValue(boolBits(v), 8, bits, explicit, "bool")
	case float32:
		if p.floatWidth(32, bits, explicit) {
			p.storeValue(uint64(math.Float32bits(v)), 32, 32, true, "float32")
		}
	case float64:
		if p.floatWidth(64, bits, explicit) {
			p.storeValue(math.Float64bits(v), 64, 64, true, "float64")
		}
	case string:
		if p.mode == Loading {
			p.Fail(InvalidValue, "cannot load into non-pointer string")
			return
		}
		p.storeCString(v, DefaultStringCapacity)

	default:
		if fn := lookupFormat(reflect.TypeOf(item)); fn != nil {
			p.depth++
			fn(p, item)
			p.depth--
			return
		}
		p.addReflect(reflect.ValueOf(item), bits, explicit)
	}
}

func (p *Packet) addReflect(rv reflect.Value, bits uint, explicit bool) {
	if rv.Kind() != reflect.Pointer {
		p.addValue(rv, bits, explicit)
		return
	}
	if rv.IsNil() {
		p.Fail(InvalidValue, "nil %s", rv.Type())
		return
	}
	p.addValue(rv.Elem(), bits, explicit)
}

// addValue covers named scalar kinds, arrays, slices and elements that implement
// Formatter or were registered.
func (p *Packet) addValue(v reflect.Value, bits uint, explicit bool) {
	if p.status != OK {
		return
	}
	if v.CanAddr() && v.Addr().CanInterface() {
		addr := v.Addr()
		if p.addInterface(addr.Interface(), bits, explicit) {
			return
		}
		if fn := lookupFormat(addr.Type()); fn != nil {
			p.depth++
			fn(p, addr.Interface())
			p.depth--
			return
		}
	}
	if v.IsValid() && v.CanInterface() && p.addInterface(v.Interface(), bits, explicit) {
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		w := width(8, bits, explicit)
		if p.mode == Storing {
			p.putBits(w, boolBits(v.Bool()))
		} else if p.settable(v) {
			if raw, ok := p.getBits(w); ok {
				v.SetBool(raw != 0)
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w := width(uint(v.Type().Bits()), bits, explicit)
		if p.mode == Storing {
			p.putBits(w, uint64(v.Int()))
		} else if p.settable(v) {
			if raw, ok := p.getBits(w); ok {
				v.SetInt(signExtend(raw, w))
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w := width(uint(v.Type().Bits()), bits, explicit)
		if p.mode == Storing {
			p.putBits(w, v.Uint())
		} else if p.settable(v) {
			if raw, ok := p.getBits(w); ok {
				v.SetUint(raw)
			}
		}
	case reflect.Float32:
		if !p.floatWidth(32, bits, explicit) {
			return
		}
		if p.mode == Storing {
			p.putBits(32, uint64(math.Float32bits(float32(v.Float()))))
		} else if p.settable(v) {
			if raw, ok := p.getBits(32); ok {
				v.SetFloat(float64(math.Float32frombits(uint32(raw))))
			}
		}
	case reflect.Float64:
		if !p.floatWidth(64, bits, explicit) {
			return
		}
		if p.mode == Storing {
			p.putBits(64, math.Float64bits(v.Float()))
		} else if p.settable(v) {
			if raw, ok := p.getBits(64); ok {
				v.SetFloat(math.Float64frombits(raw))
			}
		}
	case reflect.String:
		if p.mode == Storing {
			p.storeCString(v.String(), DefaultStringCapacity)
		} else if p.settable(v) {
			if s, ok := p.loadCString(DefaultStringCapacity); ok {
				v.SetString(s)
			}
		}
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			p.addValue(v.Index(i), bits, explicit)
			if p.status != OK {
				return
			}
		}
	case reflect.Pointer:
		if v.IsNil() {
			p.Fail(InvalidValue, "nil %s", v.Type())
			return
		}
		p.addValue(v.Elem(), bits, explicit)
	case reflect.Invalid:
		p.Fail(InvalidValue, "formatter not set")
	default:
		p.Fail(InvalidValue, "unsupported type %s", v.Type())
	}
}

func (p *Packet) addInterface(item any, bits uint, explicit bool) bool {
	switch f := item.(type) {
	case Storable:
		f.serdes(p, bits, explicit)
	case BitsFormatter:
		p.formatBits(f, bits, explicit)
	case Formatter:
		p.format(f)
	default:
		return false
	}
	return true
}

func (p *Packet) settable(v reflect.Value) bool {
	if v.CanSet() {
		return true
	}
	p.Fail(InvalidValue, "cannot load into non-pointer %s", v.Type())
	return false
}

func kindOf(item any) Kind {
	switch v := item.(type) {
	case Storable:
		return v.Kind()
	case BitsFormatter, Formatter:
		return KindFormatter
	case *string, string:
		return KindDelimitedArray
	}
	t := reflect.TypeOf(item)
	if t == nil {
		return KindFormatter
	}
	if lookupFormat(t) != nil {
		return KindFormatter
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Array, reflect.Slice:
		return KindSequence
	}
	return KindScalar
}
