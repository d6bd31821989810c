package led

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	frameAttribute  = "frame_leds"
	singleAttribute = "single_led"
)

// sysfs drives an LED controller that exposes frame and single-zone
// attributes under its sysfs device directory, as the AW20036/AW210xx
// glyph drivers do.
type sysfs struct {
	dir   string
	zones int
}

// newSysfs creates a sysfs sink rooted at dir. zones bounds single-zone
// writes; zero disables the check.
func newSysfs(dir string, zones int) (*sysfs, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("glyph LED device not found at %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("glyph LED path %s is not a directory", dir)
	}
	return &sysfs{dir: dir, zones: zones}, nil
}

// WriteFrame writes space-separated integer values to frame_leds.
func (s *sysfs) WriteFrame(values []float64) error {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(deviceValue(v))
	}
	return s.write(frameAttribute, strings.Join(parts, " "))
}

// WriteSingle writes "index value" to single_led.
func (s *sysfs) WriteSingle(index int, value float64) error {
	if index < 0 || (s.zones > 0 && index >= s.zones) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.write(singleAttribute, fmt.Sprintf("%d %d", index, deviceValue(value)))
}

func (s *sysfs) Name() string { return "sysfs" }

func (s *sysfs) Close() error { return nil }

func (s *sysfs) write(attribute, payload string) error {
	path := filepath.Join(s.dir, attribute)
	if err := os.WriteFile(path, []byte(payload+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// deviceValue rounds a scaled brightness to the integer the driver expects.
func deviceValue(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}
