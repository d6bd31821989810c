package collectors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/glyphnode/internal/logging"
	"github.com/smazurov/glyphnode/internal/metrics"
)

// DefaultPowerSupplyPath is the battery of most phones and SBC UPS hats.
const DefaultPowerSupplyPath = "/sys/class/power_supply/battery"

// PowerState is one reading of the power supply.
type PowerState struct {
	Capacity int
	Charging bool
}

// PowerCollector polls a power_supply uevent file, exports the battery
// gauges and reports changes to OnChange.
type PowerCollector struct {
	logger   logging.Logger
	path     string
	interval time.Duration
	onChange func(prev, cur PowerState)
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	last  PowerState
	known bool
}

// NewPowerCollector creates a collector for the power supply directory dir.
// onChange may be nil.
func NewPowerCollector(dir string, interval time.Duration, onChange func(prev, cur PowerState)) *PowerCollector {
	if dir == "" {
		dir = DefaultPowerSupplyPath
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PowerCollector{
		logger:   logging.GetLogger("power"),
		path:     filepath.Join(dir, "uevent"),
		interval: interval,
		onChange: onChange,
	}
}

// Start begins polling.
func (p *PowerCollector) Start(ctx context.Context) error {
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("power supply not available: %w", err)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run()
	return nil
}

// Stop ends polling and waits for the loop to exit.
func (p *PowerCollector) Stop() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func (p *PowerCollector) run() {
	defer close(p.done)
	p.logger.Info("Starting power supply monitoring", "path", p.path, "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collect()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.collect()
		}
	}
}

func (p *PowerCollector) collect() {
	file, err := os.Open(p.path)
	if err != nil {
		p.logger.Warn("Failed to open power supply uevent", "error", err)
		return
	}
	defer file.Close()

	state, err := parseUevent(file)
	if err != nil {
		p.logger.Warn("Failed to parse power supply uevent", "error", err)
		return
	}
	p.observe(state)
}

// observe records state and reports it when it differs from the last one.
func (p *PowerCollector) observe(state PowerState) {
	metrics.SetBattery(state.Capacity, state.Charging)

	prev, known := p.last, p.known
	p.last, p.known = state, true
	if known && prev == state {
		return
	}
	p.logger.Debug("Power state changed", "capacity", state.Capacity, "charging", state.Charging)
	if p.onChange != nil && known {
		p.onChange(prev, state)
	}
}

// parseUevent reads POWER_SUPPLY_CAPACITY and POWER_SUPPLY_STATUS.
func parseUevent(r io.Reader) (PowerState, error) {
	var state PowerState
	haveCapacity := false
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "POWER_SUPPLY_CAPACITY":
			n, err := strconv.Atoi(value)
			if err != nil {
				return state, fmt.Errorf("capacity %q: %w", value, err)
			}
			state.Capacity = max(0, min(n, 100))
			haveCapacity = true
		case "POWER_SUPPLY_STATUS":
			state.Charging = value == "Charging" || value == "Full"
		}
	}
	if err := scanner.Err(); err != nil {
		return state, err
	}
	if !haveCapacity {
		return state, fmt.Errorf("missing POWER_SUPPLY_CAPACITY")
	}
	return state, nil
}
