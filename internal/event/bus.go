// Package event provides the in-process publish/subscribe bus used to fan
// recording activity out to metrics and logging.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topics published by the recording controller.
const (
	TopicScanCompleted  = "scan.completed"
	TopicScanFailed     = "scan.failed"
	TopicScanDiscarded  = "scan.discarded"
	TopicSessionStarted = "session.started"
	TopicSessionEnded   = "session.ended"
	TopicSessionSaved   = "session.saved"
)

// Event is a single message on the bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler receives events. Handlers must not block for long: Publish runs
// them on the caller's goroutine.
type Handler func(ctx context.Context, e Event)

// Publisher is the publishing half of the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	PublishAsync(ctx context.Context, e Event)
}

// Compile-time interface guard.
var _ Publisher = (*Bus)(nil)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is a topic-keyed in-memory event bus.
type Bus struct {
	mu     sync.RWMutex
	logger *zap.Logger
	nextID uint64
	topics map[string][]subscription
	all    []subscription
}

// NewBus returns an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		topics: make(map[string][]subscription),
	}
}

// Subscribe registers fn for topic and returns its unsubscribe function.
func (b *Bus) Subscribe(topic string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.topics[topic] = remove(b.topics[topic], id)
	}
}

// SubscribeAll registers fn for every topic.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers e to every matching handler before returning. A
// panicking handler is logged and does not stop the others.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, h := range b.handlers(e.Topic) {
		b.invoke(ctx, h, e)
	}
	return nil
}

// PublishAsync delivers e to each handler on its own goroutine.
func (b *Bus) PublishAsync(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, h := range b.handlers(e.Topic) {
		go b.invoke(ctx, h, e)
	}
}

func (b *Bus) handlers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.topics[topic])+len(b.all))
	for _, s := range b.topics[topic] {
		out = append(out, s.fn)
	}
	for _, s := range b.all {
		out = append(out, s.fn)
	}
	return out
}

func (b *Bus) invoke(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, e)
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
