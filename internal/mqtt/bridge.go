package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/glyph"
	"github.com/smazurov/glyphnode/internal/logging"
)

// Messenger is the part of Client the bridge needs.
type Messenger interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
	Unsubscribe(topic string) error
}

var _ Messenger = (*Client)(nil)

// Bridge turns command messages into engine calls and mirrors event bus
// events onto the broker.
type Bridge struct {
	client   Messenger
	glyph    glyph.Service
	eventBus *events.Bus
	topics   Topics
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
}

// NewBridge creates a bridge. It does nothing until Start.
func NewBridge(client Messenger, svc glyph.Service, eventBus *events.Bus, prefix string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.GetLogger("mqtt")
	}
	return &Bridge{
		client:   client,
		glyph:    svc,
		eventBus: eventBus,
		topics:   Topics{Prefix: prefix},
		logger:   logger.With("component", "mqtt-bridge"),
	}
}

// Start subscribes to the command topics and begins forwarding events.
// Commands in flight are cancelled when ctx ends or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return errors.New("mqtt bridge already started")
	}
	b.ctx, b.cancel = context.WithCancel(ctx)

	if err := b.client.Subscribe(b.topics.Commands(), b.handleCommand); err != nil {
		b.cancel()
		b.cancel = nil
		return err
	}

	b.unsubs = []func(){
		b.eventBus.Subscribe(func(e events.AnimationStartedEvent) {
			b.publishEvent("animation-started", e)
		}),
		b.eventBus.Subscribe(func(e events.AnimationFinishedEvent) {
			b.publishEvent("animation-finished", e)
			b.publishStatus()
		}),
		b.eventBus.Subscribe(func(e events.AdmissionDeniedEvent) {
			b.publishEvent("admission-denied", e)
		}),
		b.eventBus.Subscribe(func(e events.OverrideChangedEvent) {
			b.publishEvent("override-changed", e)
			b.publishStatus()
		}),
		b.eventBus.Subscribe(func(e events.BrightnessChangedEvent) {
			b.publishEvent("brightness-changed", e)
		}),
	}

	b.publishStatus()
	b.logger.Info("MQTT bridge subscribed", "topic", b.topics.Commands())
	return nil
}

// Stop unsubscribes from everything and cancels commands in flight.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel == nil {
		return
	}
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if err := b.client.Unsubscribe(b.topics.Commands()); err != nil && !errors.Is(err, ErrNotConnected) {
		b.logger.Warn("Failed to unsubscribe from commands", "error", err)
	}
	b.cancel()
	b.cancel = nil
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// handleCommand runs one command and publishes its reply.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name, ok := b.topics.CommandName(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	outcome, err := b.dispatch(b.context(), name, payload)

	reply := Reply{Command: name, Outcome: string(outcome), Timestamp: now()}
	if err != nil {
		reply.Error = err.Error()
	}
	b.publish(b.topics.Reply(name), reply, false)

	b.logger.Debug("MQTT command handled", "command", name, "outcome", outcome, "error", err)
	if errors.Is(err, ErrUnknownCommand) {
		return err
	}
	return nil
}

func (b *Bridge) dispatch(ctx context.Context, name string, payload []byte) (glyph.Outcome, error) {
	switch name {
	case CmdCSV:
		var cmd CSVCommand
		if err := decode(payload, &cmd); err != nil {
			return "", err
		}
		return b.glyph.PlayCSV(cmd.Name, cmd.Wait)
	case CmdCharging, CmdVolume:
		var cmd ProgressCommand
		if err := decode(payload, &cmd); err != nil {
			return "", err
		}
		if name == CmdCharging {
			return b.glyph.PlayCharging(ctx, cmd.Level, cmd.Wait)
		}
		return b.glyph.PlayVolume(ctx, cmd.Level, cmd.Wait)
	case CmdChargingDismiss:
		return b.glyph.DismissCharging(ctx)
	case CmdVolumeDismiss:
		return b.glyph.DismissVolume(ctx)
	case CmdCall:
		var cmd CallCommand
		if err := decode(payload, &cmd); err != nil {
			return "", err
		}
		return b.glyph.PlayCall(ctx, cmd.Name)
	case CmdCallStop:
		return b.glyph.StopCall(ctx)
	case CmdEssential:
		return b.glyph.PlayEssential(ctx)
	case CmdEssentialStop:
		return b.glyph.StopEssential(ctx)
	case CmdMusic:
		var cmd MusicCommand
		if err := decode(payload, &cmd); err != nil {
			return "", err
		}
		return b.glyph.PlayMusic(ctx, cmd.Band)
	case CmdOverride:
		var cmd OverrideCommand
		if err := decode(payload, &cmd); err != nil {
			return "", err
		}
		b.glyph.SetOverride(cmd.Active)
		return glyph.OutcomeCompleted, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

func (b *Bridge) publishEvent(kind string, e any) {
	b.publish(b.topics.Event(kind), e, false)
}

func (b *Bridge) publishStatus() {
	b.publish(b.topics.Status(), b.glyph.Status(), true)
}

func (b *Bridge) publish(topic string, v any, retained bool) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("Failed to marshal MQTT payload", "topic", topic, "error", err)
		return
	}
	if err := b.client.Publish(topic, data, retained); err != nil {
		if errors.Is(err, ErrNotConnected) {
			b.logger.Debug("Dropped MQTT message while offline", "topic", topic)
			return
		}
		b.logger.Warn("Failed to publish MQTT message", "topic", topic, "error", err)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
