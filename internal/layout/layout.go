// Package layout compiles field lists from TOML or YAML files into serdes
// formatters, so a wire format can be edited without recompiling.
package layout

import (
	"fmt"
	"strings"
)

// Layout is a wire format described as data. Fields are serialized in order.
type Layout struct {
	Name string `toml:"name" yaml:"name"`
	// Word is the buffer element type: u8 (default), u16, u32 or u64.
	Word string `toml:"word" yaml:"word"`
	// Size is the buffer size in words. Zero sizes the buffer for the largest record.
	Size   int     `toml:"size" yaml:"size"`
	Fields []Field `toml:"fields" yaml:"fields"`
}

type Field struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
	Bits uint   `toml:"bits" yaml:"bits"`

	Count     int    `toml:"count" yaml:"count"`
	Counted   string `toml:"counted" yaml:"counted"`
	CountBits uint   `toml:"count_bits" yaml:"count_bits"`
	Capacity  int    `toml:"capacity" yaml:"capacity"`
	Delimiter *int64 `toml:"delimiter" yaml:"delimiter"`
	BitsFrom  string `toml:"bits_from" yaml:"bits_from"`

	Const     *uint64 `toml:"const" yaml:"const"`
	Min       *int64  `toml:"min" yaml:"min"`
	Max       *int64  `toml:"max" yaml:"max"`
	Algorithm string  `toml:"algorithm" yaml:"algorithm"`
}

type ValidationError struct {
	Layout string
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("layout: %s: %s", e.Layout, e.Reason)
	}
	return fmt.Sprintf("layout: %s field=%s: %s", e.Layout, e.Field, e.Reason)
}

type baseType struct {
	name    string
	natural uint
	signed  bool
	float   bool
	boolean bool
}

func (b baseType) integer() bool { return !b.float && !b.boolean }

var baseTypes = map[string]baseType{
	"u8":   {name: "u8", natural: 8},
	"u16":  {name: "u16", natural: 16},
	"u32":  {name: "u32", natural: 32},
	"u64":  {name: "u64", natural: 64},
	"i8":   {name: "i8", natural: 8, signed: true},
	"i16":  {name: "i16", natural: 16, signed: true},
	"i32":  {name: "i32", natural: 32, signed: true},
	"i64":  {name: "i64", natural: 64, signed: true},
	"f32":  {name: "f32", natural: 32, float: true},
	"f64":  {name: "f64", natural: 64, float: true},
	"bool": {name: "bool", natural: 8, boolean: true},
}

const (
	typeString   = "string"
	typePad      = "pad"
	typeAlign    = "align"
	typeChecksum = "checksum"
)

// Shape is how a field is laid out on the wire.
type Shape string

const (
	ShapeScalar    Shape = "scalar"
	ShapeSequence  Shape = "sequence"
	ShapeCounted   Shape = "counted"
	ShapeDelimited Shape = "delimited"
	ShapeString    Shape = "string"
	ShapePad       Shape = "pad"
	ShapeAlign     Shape = "align"
	ShapeChecksum  Shape = "checksum"
)

func wordBits(word string) (uint, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "", "u8":
		return 8, true
	case "u16":
		return 16, true
	case "u32":
		return 32, true
	case "u64":
		return 64, true
	default:
		return 0, false
	}
}
