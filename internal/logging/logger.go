package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	defaultBufferSize = 500
	defaultIdentifier = "glyphnode"
)

// Logger is the subset of *slog.Logger the rest of the daemon depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// BufferSize is the number of entries kept for the log stream endpoint.
	BufferSize int `toml:"buffer_size"`

	// Identifier is the SYSLOG_IDENTIFIER used for journald records.
	Identifier string `toml:"identifier"`
}

var (
	mutex       sync.RWMutex
	current     Config
	initialized bool
	rootLevel   = &slog.LevelVar{}
	loggers     = make(map[string]*slog.Logger)
	levels      = make(map[string]*slog.LevelVar)
	logBuffer   *RingBuffer
	logCallback LogCallback
)

// Initialize configures levels, format and outputs. Loggers handed out before
// Initialize keep their identity and pick up the configured level.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	if config.BufferSize <= 0 {
		config.BufferSize = defaultBufferSize
	}
	if config.Identifier == "" {
		config.Identifier = defaultIdentifier
	}

	current = config
	initialized = true
	logBuffer = NewRingBuffer(config.BufferSize)
	rootLevel.Set(levelOrDefault(config.Level, slog.LevelInfo))

	for module, levelVar := range levels {
		levelVar.Set(moduleLevel(module))
		loggers[module] = slog.New(newHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(config, rootLevel)))
}

// GetBuffer returns the ring buffer of recent entries, nil before Initialize.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback registers a function invoked for every buffered entry.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	logger, ok := loggers[module]
	mutex.RUnlock()
	if ok {
		return logger
	}

	mutex.Lock()
	defer mutex.Unlock()

	if logger, ok := loggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))

	config := current
	if !initialized {
		config = Config{Format: "text", Identifier: defaultIdentifier}
	}

	logger = slog.New(newHandler(config, levelVar)).With("module", module)
	loggers[module] = logger
	levels[module] = levelVar
	return logger
}

// SetModuleLevel changes the level of one module at runtime.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	levels[module].Set(*parsed)
	return true
}

// moduleLevel resolves the level for module. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	if !initialized {
		return slog.LevelInfo
	}
	level := levelOrDefault(current.Level, slog.LevelInfo)
	if override, ok := current.Modules[module]; ok {
		level = levelOrDefault(override, level)
	}
	return level
}

// newHandler fans records out to stdout, journald and the ring buffer,
// skipping outputs that are not attached.
func newHandler(config Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if config.Format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(config.Identifier, level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isStdoutAvailable reports whether stdout goes somewhere other than /dev/null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return fallback
}

// parseLevel converts a level name to slog.Level, nil when unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
