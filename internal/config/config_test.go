package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Port          string   `toml:"server.port" env:"SERVER_PORT"`
	MQTTEnabled   bool     `toml:"mqtt.enabled" env:"MQTT_ENABLED"`
	MaxBrightness int      `toml:"glyph.max_pattern_brightness" env:"GLYPH_MAX_PATTERN_BRIGHTNESS"`
	FloorPercent  float64  `toml:"glyph.essential_floor_percent" env:"GLYPH_ESSENTIAL_FLOOR_PERCENT"`
	Topics        []string `toml:"mqtt.topics" env:"MQTT_TOPICS"`
	Lengths       []int    `toml:"glyph.pattern_lengths" env:"GLYPH_PATTERN_LENGTHS"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeFile(t, "glyphnode.toml", `
[server]
port = ":9000"

[mqtt]
enabled = true
topics = ["a", "b"]

[glyph]
max_pattern_brightness = 4095
essential_floor_percent = 60
pattern_lengths = [5, 33]
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9000" {
		t.Errorf("Port = %q, want :9000", opts.Port)
	}
	if !opts.MQTTEnabled {
		t.Error("MQTTEnabled should be true")
	}
	if opts.MaxBrightness != 4095 {
		t.Errorf("MaxBrightness = %d, want 4095", opts.MaxBrightness)
	}
	if opts.FloorPercent != 60 {
		t.Errorf("FloorPercent = %v, want 60", opts.FloorPercent)
	}
	if !reflect.DeepEqual(opts.Topics, []string{"a", "b"}) {
		t.Errorf("Topics = %v", opts.Topics)
	}
	if !reflect.DeepEqual(opts.Lengths, []int{5, 33}) {
		t.Errorf("Lengths = %v", opts.Lengths)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeFile(t, "glyphnode.toml", `
[server]
port = ":9000"

[glyph]
max_pattern_brightness = 255
`)

	t.Setenv(EnvPrefix+"SERVER_PORT", ":9100")
	t.Setenv(EnvPrefix+"GLYPH_ESSENTIAL_FLOOR_PERCENT", "42.5")
	t.Setenv(EnvPrefix+"GLYPH_PATTERN_LENGTHS", "5, 15,33")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9100" {
		t.Errorf("Port = %q, want env override :9100", opts.Port)
	}
	if opts.MaxBrightness != 255 {
		t.Errorf("MaxBrightness = %d, want 255 from TOML", opts.MaxBrightness)
	}
	if opts.FloorPercent != 42.5 {
		t.Errorf("FloorPercent = %v, want 42.5", opts.FloorPercent)
	}
	if !reflect.DeepEqual(opts.Lengths, []int{5, 15, 33}) {
		t.Errorf("Lengths = %v", opts.Lengths)
	}
}

func TestLoadConfigSkipsChangedFlags(t *testing.T) {
	path := writeFile(t, "glyphnode.toml", "[server]\nport = \":9000\"\n")
	t.Setenv(EnvPrefix+"SERVER_PORT", ":9100")

	opts := &testOptions{Config: path, Port: ":7000"}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Port, "port", ":8090", "")
	if err := cmd.Flags().Set("port", ":7000"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Port != ":7000" {
		t.Errorf("Port = %q, CLI value should win", opts.Port)
	}
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
}

func TestLoadConfigRejectsInvalidTOML(t *testing.T) {
	path := writeFile(t, "broken.toml", "[server\nport = ")
	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigRequiresPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Fatal("expected error for non-pointer options")
	}
}

func TestDecodeFileByExtension(t *testing.T) {
	type tunables struct {
		Integers map[string]int `toml:"integers" yaml:"integers"`
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "tunables.toml", "[integers]\nlevels = 8\n"},
		{"yaml", "tunables.yaml", "integers:\n  levels: 8\n"},
		{"yml", "tunables.yml", "integers:\n  levels: 8\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got tunables
			if err := DecodeFile(writeFile(t, tt.file, tt.content), &got); err != nil {
				t.Fatalf("DecodeFile failed: %v", err)
			}
			if got.Integers["levels"] != 8 {
				t.Errorf("levels = %d, want 8", got.Integers["levels"])
			}
		})
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":               "port",
		"LoggingLevel":       "logging-level",
		"GlyphMaxBrightness": "glyph-max-brightness",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"glyph": map[string]any{
			"timing": map[string]any{"frame_ms": int64(17)},
			"led":    "sysfs",
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"glyph.led", "sysfs"},
		{"glyph.timing.frame_ms", int64(17)},
		{"missing", nil},
		{"glyph.missing.deeper", nil},
	}

	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
