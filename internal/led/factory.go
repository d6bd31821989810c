package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Backend names accepted by Config.Backend.
const (
	BackendAuto  = "auto"
	BackendSysfs = "sysfs"
	BackendI2C   = "i2c"
	BackendNoop  = "noop"
)

// Known glyph controller directories.
const (
	phoneOneLEDPath = "/sys/class/leds/aw210xx_led"
	phoneTwoLEDPath = "/sys/class/leds/aw20036_led"
)

// Config selects and parameterises the LED sink.
type Config struct {
	Backend   string
	SysfsPath string // overrides board detection for the sysfs backend
	Zones     int
	I2C       I2CConfig
}

// New creates the configured sink. The auto backend picks sysfs when the
// board is recognised and falls back to no-op otherwise.
func New(cfg Config, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendAuto:
		return autodetect(cfg, logger), nil
	case BackendSysfs:
		dir := cfg.SysfsPath
		if dir == "" {
			dir = boardLEDPath(detectBoard())
		}
		if dir == "" {
			return nil, fmt.Errorf("sysfs backend: no glyph LED path for board %q", detectBoard())
		}
		return newSysfs(dir, cfg.Zones)
	case BackendI2C:
		if cfg.I2C.Zones == 0 {
			cfg.I2C.Zones = cfg.Zones
		}
		return openI2C(cfg.I2C)
	case BackendNoop:
		return newNoop(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func autodetect(cfg Config, logger *slog.Logger) Sink {
	boardModel := detectBoard()
	logger.Info("Detecting board for glyph control", "board_model", boardModel)

	dir := cfg.SysfsPath
	if dir == "" {
		dir = boardLEDPath(boardModel)
	}
	if dir != "" {
		sink, err := newSysfs(dir, cfg.Zones)
		if err == nil {
			logger.Info("Using sysfs glyph sink", "path", dir)
			return sink
		}
		logger.Warn("Glyph sysfs path unavailable", "path", dir, "error", err)
	}

	logger.Info("No glyph LED support detected, using no-op sink", "board_model", boardModel)
	return newNoop(logger)
}

// boardLEDPath maps a device tree model to its glyph controller directory.
func boardLEDPath(model string) string {
	switch {
	case strings.Contains(model, "Phone (2)"), strings.Contains(model, "Pong"):
		return phoneTwoLEDPath
	case strings.Contains(model, "Phone (1)"), strings.Contains(model, "Spacewar"):
		return phoneOneLEDPath
	default:
		return ""
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
