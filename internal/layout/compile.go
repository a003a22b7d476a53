package layout

import (
	"errors"
	"strconv"

	"github.com/danmuck/serdesctl/checksum"
	"github.com/danmuck/serdesctl/internal/logging"
	"github.com/danmuck/serdesctl/serdes"
)

type field struct {
	Field
	shape      Shape
	base       baseType
	width      uint
	countWidth uint
	capacity   int
	from       int
	algorithm  checksum.Algorithm
}

// elemBits is the explicit element width for arrays. Floats always use their
// natural width.
func (f *field) elemBits() uint {
	if f.base.float {
		return 0
	}
	return f.width
}

// length is the number of value slots the field needs.
func (f *field) length() int {
	switch f.shape {
	case ShapeSequence:
		return f.Count
	case ShapeCounted, ShapeDelimited:
		return f.capacity
	default:
		return 1
	}
}

// maxBits is the most bits one record can spend on the field.
func (f *field) maxBits() uint64 {
	switch f.shape {
	case ShapePad:
		return uint64(f.Bits)
	case ShapeAlign:
		return uint64(f.Bits - 1)
	case ShapeChecksum:
		return uint64(f.algorithm.Bits)
	case ShapeString:
		return uint64(f.capacity+1) * 8
	}
	w := uint64(f.width)
	if f.from >= 0 {
		w = serdes.MaxFieldBits
	}
	switch f.shape {
	case ShapeSequence:
		return uint64(f.Count) * w
	case ShapeCounted:
		return uint64(f.countWidth) + uint64(f.capacity)*w
	case ShapeDelimited:
		return uint64(f.capacity+1) * w
	default:
		return w
	}
}

// staticBits reports the exact size of the field when it does not depend on the
// record.
func (f *field) staticBits() (uint64, bool) {
	switch f.shape {
	case ShapeCounted, ShapeDelimited, ShapeString, ShapeAlign:
		return 0, false
	}
	if f.from >= 0 {
		return 0, false
	}
	return f.maxBits(), true
}

// Compile validates l and builds a Codec for it.
func Compile(l Layout) (*Codec, error) {
	name := l.Name
	if name == "" {
		name = "unnamed"
	}
	fail := func(field, reason string) (*Codec, error) {
		return nil, ValidationError{Layout: name, Field: field, Reason: reason}
	}

	wb, ok := wordBits(l.Word)
	if !ok {
		return fail("", "unknown word type "+l.Word)
	}
	if l.Size < 0 {
		return fail("", "negative size")
	}
	if len(l.Fields) == 0 {
		return fail("", "no fields")
	}

	c := &Codec{layout: l, name: name, wordBits: wb, index: make(map[string]int)}
	for i, raw := range l.Fields {
		f, err := compileField(raw, c)
		if err != nil {
			label := raw.Name
			if label == "" {
				label = "#" + strconv.Itoa(i)
			}
			return fail(label, err.Error())
		}
		if f.Name != "" {
			c.index[f.Name] = len(c.fields)
		}
		c.fields = append(c.fields, f)
	}

	var maxBits uint64
	for i := range c.fields {
		maxBits += c.fields[i].maxBits()
	}
	c.maxBits = maxBits
	if l.Size > 0 && uint64(l.Size)*uint64(wb) < maxBits {
		logging.Warnf("layout.Compile name=%s size=%d words may not hold %d bits", name, l.Size, maxBits)
	}
	logging.Debugf("layout.Compile name=%s word=%d fields=%d max_bits=%d", name, wb, len(c.fields), maxBits)
	return c, nil
}

func compileField(raw Field, c *Codec) (*field, error) {
	f := &field{Field: raw, from: -1}

	switch raw.Type {
	case typePad, typeAlign:
		if raw.Bits == 0 {
			return nil, errors.New(raw.Type + " needs bits > 0")
		}
		f.shape = ShapePad
		if raw.Type == typeAlign {
			f.shape = ShapeAlign
		}
		return f, nil
	}

	if raw.Name == "" {
		return nil, errors.New("missing name")
	}
	if _, dup := c.index[raw.Name]; dup {
		return nil, errors.New("duplicate name")
	}

	switch raw.Type {
	case typeChecksum:
		alg, err := checksum.Lookup(raw.Algorithm)
		if err != nil {
			return nil, errors.New("unknown checksum algorithm " + raw.Algorithm)
		}
		f.shape = ShapeChecksum
		f.algorithm = alg
		f.base = baseTypes["u64"]
		f.width = alg.Bits
		return f, nil
	case typeString:
		if raw.Count != 0 || raw.Counted != "" || raw.Delimiter != nil || raw.Bits != 0 {
			return nil, errors.New("string fields take only capacity")
		}
		f.shape = ShapeString
		f.capacity = raw.Capacity
		if f.capacity == 0 {
			f.capacity = serdes.DefaultStringCapacity
		}
		if f.capacity < 0 {
			return nil, errors.New("negative capacity")
		}
		return f, nil
	}

	base, ok := baseTypes[raw.Type]
	if !ok {
		return nil, errors.New("unknown type " + raw.Type)
	}
	f.base = base

	if raw.Bits > serdes.MaxFieldBits {
		return nil, errors.New("bits above 64")
	}
	if base.float && raw.Bits != 0 && raw.Bits != base.natural {
		return nil, errors.New("float fields use their natural width")
	}
	f.width = base.natural
	if raw.Bits != 0 {
		f.width = raw.Bits
	}

	if raw.BitsFrom != "" {
		if raw.Bits != 0 {
			return nil, errors.New("bits and bits_from are exclusive")
		}
		idx, ok := c.index[raw.BitsFrom]
		if !ok {
			return nil, errors.New("bits_from must name an earlier field")
		}
		src := c.fields[idx]
		if src.shape != ShapeScalar || !src.base.integer() || src.base.signed {
			return nil, errors.New("bits_from must name an unsigned scalar")
		}
		if base.float {
			return nil, errors.New("float fields use their natural width")
		}
		f.from = idx
	}

	shapes := 0
	f.shape = ShapeScalar
	if raw.Count != 0 {
		shapes++
		f.shape = ShapeSequence
		if raw.Count < 0 {
			return nil, errors.New("negative count")
		}
	}
	if raw.Counted != "" {
		shapes++
		f.shape = ShapeCounted
		cb, ok := baseTypes[raw.Counted]
		if !ok || !cb.integer() || cb.signed {
			return nil, errors.New("counted must be an unsigned type")
		}
		f.countWidth = cb.natural
		if raw.CountBits != 0 {
			if raw.CountBits > cb.natural {
				return nil, errors.New("count_bits wider than counted type")
			}
			f.countWidth = raw.CountBits
		}
	}
	if raw.Delimiter != nil {
		shapes++
		f.shape = ShapeDelimited
		if base.float {
			return nil, errors.New("delimited arrays need integer or bool elements")
		}
	}
	if shapes > 1 {
		return nil, errors.New("count, counted and delimiter are exclusive")
	}
	if f.from >= 0 && f.shape != ShapeScalar && f.shape != ShapeSequence {
		return nil, errors.New("bits_from applies to scalars and fixed sequences")
	}
	if f.shape == ShapeCounted || f.shape == ShapeDelimited {
		if raw.Capacity <= 0 {
			return nil, errors.New("capacity must be positive")
		}
		f.capacity = raw.Capacity
	}

	if (raw.Const != nil || raw.Min != nil || raw.Max != nil) && (f.shape != ShapeScalar || !base.integer()) {
		return nil, errors.New("const, min and max apply to integer scalars")
	}
	if raw.Const != nil && f.width < 64 && !base.signed && *raw.Const>>f.width != 0 {
		return nil, errors.New("const does not fit in bits")
	}
	if raw.Min != nil && raw.Max != nil && *raw.Min > *raw.Max {
		return nil, errors.New("min above max")
	}
	return f, nil
}
