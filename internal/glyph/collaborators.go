package glyph

import (
	"io"

	"github.com/smazurov/glyphnode/internal/events"
)

// Sink writes device-unit values to the LED hardware.
type Sink interface {
	WriteFrame(values []float64) error
	WriteSingle(index int, value float64) error
}

// Resources supplies animation streams and tunables.
type Resources interface {
	Animation(name string) (io.ReadCloser, error)
	CallAnimation(name string) (io.ReadCloser, error)
	Integer(key string) (int, error)
	Boolean(key string) (bool, error)
	SupportedPatternLengths() []int
}

// BrightnessSource returns the user's overall brightness ceiling.
type BrightnessSource interface {
	Brightness() int
}

// EventPublisher receives lifecycle events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// Tunable keys read from Resources.
const (
	KeyBatteryLevels = "glyph_settings_battery_levels_num"
	KeyVolumeLevels  = "glyph_settings_volume_levels_num"
	KeyEssentialLED  = "glyph_settings_notifs_essential_led"
	KeyBatteryDot    = "glyph_settings_battery_dot"
)

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}
