package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMatchesAcrossFormats(t *testing.T) {
	fromTOML, err := Load(filepath.Join("testdata", "telemetry.toml"))
	require.NoError(t, err)
	fromYAML, err := Load(filepath.Join("testdata", "telemetry.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fromTOML, fromYAML)
	require.NotNil(t, fromTOML.Fields[0].Const)
	assert.Equal(t, uint64(0xBEEF), *fromTOML.Fields[0].Const)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layout parse failed")

	_, err = Parse([]byte("name: x\nfields:\n  - {name: a, type: u8, width: 3}\n"), FormatYAML)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "telemetry.json"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "layout load failed")

	_, err = Parse(nil, Format("ini"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestLoadNamesLayoutAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - {name: id, type: u32}\n"), 0o644))
	c, err := LoadCodec(path)
	require.NoError(t, err)
	assert.Equal(t, "beacon", c.Name())
	assert.Equal(t, uint64(32), c.MaxBits())
}

func TestCompileValidation(t *testing.T) {
	u := func(v uint64) *uint64 { return &v }
	i := func(v int64) *int64 { return &v }

	cases := []struct {
		name   string
		layout Layout
		field  string
		reason string
	}{
		{"word", Layout{Word: "u128", Fields: []Field{{Name: "a", Type: "u8"}}}, "", "unknown word type"},
		{"empty", Layout{}, "", "no fields"},
		{"unknown type", Layout{Fields: []Field{{Name: "a", Type: "u9"}}}, "a", "unknown type"},
		{"no name", Layout{Fields: []Field{{Type: "u8"}}}, "#0", "missing name"},
		{"duplicate", Layout{Fields: []Field{{Name: "a", Type: "u8"}, {Name: "a", Type: "u8"}}}, "a", "duplicate name"},
		{"wide", Layout{Fields: []Field{{Name: "a", Type: "u64", Bits: 65}}}, "a", "bits above 64"},
		{"float width", Layout{Fields: []Field{{Name: "a", Type: "f64", Bits: 32}}}, "a", "natural width"},
		{"pad", Layout{Fields: []Field{{Type: "pad"}}}, "#0", "needs bits"},
		{"checksum", Layout{Fields: []Field{{Name: "c", Type: "checksum", Algorithm: "md5"}}}, "c", "unknown checksum"},
		{"bits_from later", Layout{Fields: []Field{{Name: "v", Type: "u8", BitsFrom: "n"}, {Name: "n", Type: "u8"}}}, "v", "earlier field"},
		{"bits_from signed", Layout{Fields: []Field{{Name: "n", Type: "i8"}, {Name: "v", Type: "u8", BitsFrom: "n"}}}, "v", "unsigned scalar"},
		{"exclusive", Layout{Fields: []Field{{Name: "a", Type: "u8", Count: 2, Counted: "u8", Capacity: 2}}}, "a", "exclusive"},
		{"capacity", Layout{Fields: []Field{{Name: "a", Type: "u8", Counted: "u8"}}}, "a", "capacity must be positive"},
		{"count type", Layout{Fields: []Field{{Name: "a", Type: "u8", Counted: "i8", Capacity: 2}}}, "a", "unsigned type"},
		{"count bits", Layout{Fields: []Field{{Name: "a", Type: "u8", Counted: "u8", CountBits: 9, Capacity: 2}}}, "a", "count_bits"},
		{"float delimiter", Layout{Fields: []Field{{Name: "a", Type: "f32", Delimiter: i(0), Capacity: 2}}}, "a", "integer or bool"},
		{"const shape", Layout{Fields: []Field{{Name: "a", Type: "u8", Count: 2, Const: u(1)}}}, "a", "integer scalars"},
		{"const fit", Layout{Fields: []Field{{Name: "a", Type: "u8", Bits: 4, Const: u(0x1F)}}}, "a", "does not fit"},
		{"range", Layout{Fields: []Field{{Name: "a", Type: "i8", Min: i(4), Max: i(2)}}}, "a", "min above max"},
		{"string", Layout{Fields: []Field{{Name: "s", Type: "string", Bits: 8}}}, "s", "only capacity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.layout)
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
			assert.Contains(t, verr.Reason, tc.reason)
		})
	}
}

func TestCompileDefaults(t *testing.T) {
	c, err := Compile(Layout{Fields: []Field{{Name: "note", Type: "string"}, {Name: "ok", Type: "bool"}}})
	require.NoError(t, err)
	assert.Equal(t, "unnamed", c.Name())
	assert.Equal(t, uint64((2048+1)*8+8), c.MaxBits())
}
