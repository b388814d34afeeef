package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultMemoryBusCapacity is how many events a MemoryBus retains.
const DefaultMemoryBusCapacity = 1000

// Bus publishes lifecycle events. Publishing is fire and forget.
type Bus interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, event Event) error
	Close() error
}

// MemoryBus keeps the most recent published events in memory. Once full the
// oldest event is dropped for each new one.
type MemoryBus struct {
	events   []Event
	capacity int
	lock     sync.RWMutex
}

var _ Bus = (*MemoryBus)(nil)

type MemoryBusOption func(*MemoryBus)

func WithCapacity(capacity int) MemoryBusOption {
	return func(b *MemoryBus) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

func NewMemoryBus(options ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{capacity: DefaultMemoryBusCapacity}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *MemoryBus) Capacity() int {
	return b.capacity
}

func (b *MemoryBus) Connect(context.Context) error {
	return nil
}

func (b *MemoryBus) Publish(_ context.Context, event Event) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.events) == b.capacity {
		copy(b.events, b.events[1:])
		b.events[len(b.events)-1] = event
		return nil
	}
	b.events = append(b.events, event)
	return nil
}

func (b *MemoryBus) Close() error {
	return nil
}

// Events returns retained events, oldest first, optionally filtered by topic.
func (b *MemoryBus) Events(topic string) []Event {
	b.lock.RLock()
	defer b.lock.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		if topic == "" || e.EventType == topic {
			out = append(out, e)
		}
	}
	return out
}

// LogBus writes each event to the logger and keeps nothing. It stands in when
// no broker is configured.
type LogBus struct {
	logger zerolog.Logger
}

var _ Bus = (*LogBus)(nil)

func NewLogBus(logger zerolog.Logger) *LogBus {
	return &LogBus{logger: logger}
}

func (b *LogBus) Connect(context.Context) error {
	return nil
}

func (b *LogBus) Publish(_ context.Context, event Event) error {
	entry := b.logger.Debug().Str("eventId", event.EventID).Str("eventType", event.EventType)
	if event.Metadata != nil {
		entry = entry.Str("userId", event.Metadata.UserID).Str("deviceId", event.Metadata.DeviceID)
	}
	entry.Msg("event published")
	return nil
}

func (b *LogBus) Close() error {
	return nil
}
