package led

import "errors"

// Sink drives a glyph LED surface. Values are in device units, already
// scaled to the brightness ceiling by the caller.
type Sink interface {
	// WriteFrame sets every zone at once, one value per zone.
	WriteFrame(values []float64) error

	// WriteSingle sets one zone and leaves the others untouched.
	WriteSingle(index int, value float64) error

	// Name identifies the backend, for example "sysfs" or "i2c".
	Name() string

	// Close releases the underlying device.
	Close() error
}

var (
	// ErrIndexOutOfRange is returned for a zone index the device does not have.
	ErrIndexOutOfRange = errors.New("led: zone index out of range")

	// ErrUnknownBackend is returned by New for an unrecognised backend name.
	ErrUnknownBackend = errors.New("led: unknown backend")
)
