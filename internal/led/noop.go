package led

import "log/slog"

// noop implements Sink for hosts without a glyph surface. Frames are only
// logged at debug level.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) WriteFrame(values []float64) error {
	n.logger.Debug("Glyph frame (no-op)", "zones", len(values), "values", values)
	return nil
}

func (n *noop) WriteSingle(index int, value float64) error {
	n.logger.Debug("Glyph single zone (no-op)", "index", index, "value", value)
	return nil
}

func (n *noop) Name() string { return "noop" }

func (n *noop) Close() error { return nil }
