package led

import (
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2CConfig describes a PWM LED driver reached over I2C, one 8-bit duty
// register per zone starting at BaseRegister.
type I2CConfig struct {
	Bus          string // i2creg bus name, empty for the first bus
	Address      uint16
	BaseRegister byte
	// UpdateRegister is written after every change on drivers that latch
	// PWM values. Negative disables it.
	UpdateRegister int
	Zones          int
	// MaxValue is the device-unit value that maps to full duty.
	MaxValue int
}

// i2cSink drives the LED driver directly with periph.io.
type i2cSink struct {
	mu     sync.Mutex
	dev    i2c.Dev
	closer interface{ Close() error }
	cfg    I2CConfig
}

// openI2C initialises the host drivers and opens the configured bus.
func openI2C(cfg I2CConfig) (*i2cSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize I2C host: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.Bus, err)
	}
	sink := newI2C(bus, cfg)
	sink.closer = bus
	return sink, nil
}

func newI2C(bus i2c.Bus, cfg I2CConfig) *i2cSink {
	if cfg.MaxValue <= 0 {
		cfg.MaxValue = 255
	}
	return &i2cSink{
		dev: i2c.Dev{Bus: bus, Addr: cfg.Address},
		cfg: cfg,
	}
}

// WriteFrame writes all zones in one auto-incrementing transfer.
func (s *i2cSink) WriteFrame(values []float64) error {
	if s.cfg.Zones > 0 && len(values) > s.cfg.Zones {
		values = values[:s.cfg.Zones]
	}
	buf := make([]byte, 0, len(values)+1)
	buf = append(buf, s.cfg.BaseRegister)
	for _, v := range values {
		buf = append(buf, s.duty(v))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dev.Write(buf); err != nil {
		return fmt.Errorf("i2c frame write: %w", err)
	}
	return s.latch()
}

// WriteSingle writes the duty register of one zone.
func (s *i2cSink) WriteSingle(index int, value float64) error {
	if index < 0 || (s.cfg.Zones > 0 && index >= s.cfg.Zones) || index+int(s.cfg.BaseRegister) > 0xff {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dev.Write([]byte{s.cfg.BaseRegister + byte(index), s.duty(value)}); err != nil {
		return fmt.Errorf("i2c single write: %w", err)
	}
	return s.latch()
}

func (s *i2cSink) Name() string { return "i2c" }

func (s *i2cSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// latch writes the update register when configured. Caller holds mu.
func (s *i2cSink) latch() error {
	if s.cfg.UpdateRegister < 0 {
		return nil
	}
	if _, err := s.dev.Write([]byte{byte(s.cfg.UpdateRegister), 0x00}); err != nil {
		return fmt.Errorf("i2c latch: %w", err)
	}
	return nil
}

// duty maps a device-unit value onto the 8-bit PWM range.
func (s *i2cSink) duty(v float64) byte {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	d := math.Round(v / float64(s.cfg.MaxValue) * 255)
	if d > 255 {
		return 255
	}
	return byte(d)
}
