package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. A nil *Bus drops everything, which
// lets components run without one in tests and CLI commands.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case AnimationStartedEvent:
		event.Publish(b.dispatcher, e)
	case AnimationFinishedEvent:
		event.Publish(b.dispatcher, e)
	case AdmissionDeniedEvent:
		event.Publish(b.dispatcher, e)
	case OverrideChangedEvent:
		event.Publish(b.dispatcher, e)
	case BrightnessChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case SourceStatsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler; its parameter type selects the events it gets.
// Unknown handler types get a no-op unsubscribe.
//
//	unsub := bus.Subscribe(func(e AnimationFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(AnimationStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AnimationFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AdmissionDeniedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OverrideChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BrightnessChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SourceStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
