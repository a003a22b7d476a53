package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("testdata", "serdesctl.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.Format != formatBinary {
		t.Fatalf("unexpected format: %q", cfg.Format)
	}
	if !cfg.Metrics {
		t.Fatalf("expected metrics enabled")
	}
	if cfg.Trace {
		t.Fatalf("expected trace disabled")
	}
	if cfg.BufferElements != 0 {
		t.Fatalf("unexpected buffer elements: %d", cfg.BufferElements)
	}
}

func TestLoadConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serdesctl.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != defaultConfig() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"format":   `format = "octal"`,
		"negative": `buffer_elements = -1`,
		"unknown":  `buffer_size = 4`,
		"syntax":   `trace = `,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "serdesctl.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := loadConfig(path); err == nil {
				t.Fatalf("expected error for %s", content)
			}
		})
	}
}
