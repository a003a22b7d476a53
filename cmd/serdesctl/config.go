package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	LogLevel       string `toml:"log_level"`
	Format         string `toml:"format"`
	Trace          bool   `toml:"trace"`
	Metrics        bool   `toml:"metrics"`
	BufferElements int    `toml:"buffer_elements"`
}

// cliConfig holds defaults for the subcommand flags.
type cliConfig struct {
	LogLevel string
	Format   string
	Trace    bool
	Metrics  bool
	// BufferElements overrides the encode buffer size. Zero sizes it from the layout.
	BufferElements int
}

func defaultConfig() cliConfig {
	return cliConfig{Format: formatHex}
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load serdesctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load serdesctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("format") {
		format := strings.ToLower(strings.TrimSpace(raw.Format))
		if !validFormat(format) {
			return cliConfig{}, fmt.Errorf("parse format: unknown output format %q", raw.Format)
		}
		cfg.Format = format
	}

	if meta.IsDefined("trace") {
		cfg.Trace = raw.Trace
	}

	if meta.IsDefined("metrics") {
		cfg.Metrics = raw.Metrics
	}

	if meta.IsDefined("buffer_elements") {
		if raw.BufferElements < 0 {
			return cliConfig{}, fmt.Errorf("parse buffer_elements: negative value %d", raw.BufferElements)
		}
		cfg.BufferElements = raw.BufferElements
	}

	return cfg, nil
}
