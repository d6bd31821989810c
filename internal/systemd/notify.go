// Package systemd reports service state to systemd over sd_notify.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/glyphnode/internal/logging"
)

// Notifier sends readiness, status and watchdog messages. Every method is a
// no-op when the process was not started by systemd with NOTIFY_SOCKET.
type Notifier struct {
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier.
func NewNotifier() *Notifier {
	return &Notifier{logger: logging.GetLogger("systemd")}
}

// Ready tells systemd that startup finished.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown began.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) error {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// StartWatchdog pings the watchdog at half the configured interval until
// ctx ends or StopWatchdog is called. It reports false when the unit has
// no WatchdogSec.
func (n *Notifier) StartWatchdog(ctx context.Context) (bool, error) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return false, fmt.Errorf("watchdog: %w", err)
	}
	if interval == 0 {
		return false, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return true, nil
	}
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})

	n.logger.Info("Systemd watchdog enabled", "interval", interval)
	go n.watchdog(ctx, interval/2)
	return true, nil
}

// StopWatchdog stops the ping loop and waits for it.
func (n *Notifier) StopWatchdog() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (n *Notifier) watchdog(ctx context.Context, every time.Duration) {
	defer close(n.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.send(daemon.SdNotifyWatchdog); err != nil {
				n.logger.Warn("Watchdog ping failed", "error", err)
			}
		}
	}
}

func (n *Notifier) send(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		return fmt.Errorf("sd_notify %q: %w", state, err)
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
	return nil
}
