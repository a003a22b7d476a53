package layout

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("layout: unknown file format")

// FormatFor picks the layout format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Parse decodes a layout document. Unknown keys are rejected.
func Parse(data []byte, format Format) (Layout, error) {
	var l Layout
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&l); err != nil {
			return Layout{}, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&l); err != nil {
			return Layout{}, err
		}
	default:
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return l, nil
}

func Load(path string) (Layout, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Layout{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("layout load failed (%s): %w", path, err)
	}
	l, err := Parse(data, format)
	if err != nil {
		return Layout{}, fmt.Errorf("layout parse failed (%s): %w", path, err)
	}
	if l.Name == "" {
		l.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l, nil
}

// LoadCodec reads and compiles the layout at path.
func LoadCodec(path string) (*Codec, error) {
	l, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(l)
}
