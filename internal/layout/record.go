package layout

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// Record maps field names to values. Pad and align fields have no entry.
type Record map[string]any

var (
	ErrMissingField = errors.New("layout: missing field")
	ErrFieldValue   = errors.New("layout: bad field value")
)

var recordJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

func MarshalRecord(rec Record) ([]byte, error) {
	return recordJSON.MarshalIndent(rec, "", "  ")
}

func UnmarshalRecord(data []byte) (Record, error) {
	var rec Record
	if err := recordJSON.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("layout: parse record: %w", err)
	}
	return rec, nil
}

func (b *binding) fill(rec Record) error {
	for i, f := range b.c.fields {
		switch f.shape {
		case ShapePad, ShapeAlign, ShapeChecksum:
			continue
		}
		raw, ok := rec[f.Name]
		if !ok {
			if f.Const != nil {
				continue
			}
			return fmt.Errorf("%w %q", ErrMissingField, f.Name)
		}
		if err := fillField(f, &b.slots[i], raw); err != nil {
			return fmt.Errorf("%w %q: %v", ErrFieldValue, f.Name, err)
		}
	}
	return nil
}

func fillField(f *field, s *slot, raw any) error {
	switch f.shape {
	case ShapeString:
		str, ok := raw.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", raw)
		}
		s.s = str
		return nil
	case ShapeScalar:
		if f.Const == nil {
			return setElem(f, s, 0, raw)
		}
		if f.base.signed {
			v, err := toInt64(raw)
			if err != nil {
				return err
			}
			if v != int64(*f.Const) {
				return fmt.Errorf("expected constant %d", int64(*f.Const))
			}
			return nil
		}
		v, err := toUint64(raw)
		if err != nil {
			return err
		}
		if v != *f.Const {
			return fmt.Errorf("expected constant %d", *f.Const)
		}
		return nil
	}

	list, err := toList(raw)
	if err != nil {
		return err
	}
	switch f.shape {
	case ShapeSequence:
		if len(list) != f.Count {
			return fmt.Errorf("expected %d values, got %d", f.Count, len(list))
		}
	case ShapeCounted, ShapeDelimited:
		if len(list) > f.capacity {
			return fmt.Errorf("%d values exceed capacity %d", len(list), f.capacity)
		}
		s.n = uint64(len(list))
	}
	for i, v := range list {
		if err := setElem(f, s, i, v); err != nil {
			return fmt.Errorf("index %d: %v", i, err)
		}
		if f.shape == ShapeDelimited && s.isDelimiter(f, i) {
			return fmt.Errorf("index %d holds the delimiter", i)
		}
	}
	if f.shape == ShapeDelimited && len(list) < f.capacity {
		s.markEnd(f, len(list))
	}
	return nil
}

func (s *slot) isDelimiter(f *field, i int) bool {
	d := *f.Delimiter
	switch {
	case f.base.boolean:
		return s.b[i] == (d != 0)
	case f.base.signed:
		return s.i[i] == d
	default:
		return s.u[i] == uint64(d)
	}
}

// markEnd writes the delimiter after the last value so storing stops there.
func (s *slot) markEnd(f *field, i int) {
	d := *f.Delimiter
	switch {
	case f.base.boolean:
		s.b[i] = d != 0
	case f.base.signed:
		s.i[i] = d
	default:
		s.u[i] = uint64(d)
	}
}

func setElem(f *field, s *slot, i int, raw any) error {
	switch {
	case f.base.boolean:
		v, err := toBool(raw)
		if err != nil {
			return err
		}
		s.b[i] = v
	case f.base.float && f.base.natural == 32:
		v, err := toFloat64(raw)
		if err != nil {
			return err
		}
		s.f32[i] = float32(v)
	case f.base.float:
		v, err := toFloat64(raw)
		if err != nil {
			return err
		}
		s.f64[i] = v
	case f.base.signed:
		v, err := toInt64(raw)
		if err != nil {
			return err
		}
		s.i[i] = v
	default:
		v, err := toUint64(raw)
		if err != nil {
			return err
		}
		s.u[i] = v
	}
	return nil
}

func (b *binding) record() Record {
	rec := make(Record, len(b.c.fields))
	for i, f := range b.c.fields {
		s := &b.slots[i]
		switch f.shape {
		case ShapePad, ShapeAlign:
		case ShapeString:
			rec[f.Name] = s.s
		case ShapeChecksum:
			rec[f.Name] = s.u[0]
		case ShapeScalar:
			rec[f.Name] = s.value(f)
		case ShapeSequence:
			rec[f.Name] = s.values(f, f.Count)
		case ShapeCounted:
			rec[f.Name] = s.values(f, int(s.n))
		case ShapeDelimited:
			rec[f.Name] = s.values(f, s.len)
		}
	}
	return rec
}

func (s *slot) value(f *field) any {
	switch {
	case f.base.boolean:
		return s.b[0]
	case f.base.float && f.base.natural == 32:
		return s.f32[0]
	case f.base.float:
		return s.f64[0]
	case f.base.signed:
		return s.i[0]
	default:
		return s.u[0]
	}
}

func (s *slot) values(f *field, n int) any {
	switch {
	case f.base.boolean:
		return slices.Clone(s.b[:n])
	case f.base.float && f.base.natural == 32:
		return slices.Clone(s.f32[:n])
	case f.base.float:
		return slices.Clone(s.f64[:n])
	case f.base.signed:
		return slices.Clone(s.i[:n])
	default:
		return slices.Clone(s.u[:n])
	}
}

func toList(v any) ([]any, error) {
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, fmt.Errorf("negative value %d", rv.Int())
		}
		return uint64(rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an unsigned integer", f)
		}
		return uint64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseUint(rv.String(), 0, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 0, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.String:
		return strconv.ParseFloat(rv.String(), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	case reflect.String:
		return strconv.ParseBool(rv.String())
	default:
		return false, fmt.Errorf("expected a bool, got %T", v)
	}
}
