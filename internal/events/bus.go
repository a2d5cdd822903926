package events

import (
	"context"
	"sync"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/shared/id"
	"go.uber.org/zap"
)

const defaultBufferSize = 256

type subscriber struct {
	id   id.SubscriberID
	ch   chan Event
	gone chan struct{}
}

// drop closes the subscriber's channels. Callers hold Bus.mu.
func (s *subscriber) drop() {
	close(s.ch)
	close(s.gone)
}

// Bus fans events out to every subscriber.
//
// Publish never blocks. A subscriber whose queue is full is evicted and its
// channel closed, so a consumer either sees every event in publish order or
// observes a closed channel. With no subscribers, events are dropped.
type Bus struct {
	mu      sync.Mutex
	subs    map[id.SubscriberID]*subscriber
	closed  bool
	metrics *monitoring.Metrics
	log     *zap.Logger

	// watchers tracks the per-subscription goroutines that follow ctx.
	watchers sync.WaitGroup
}

// NewBus creates an event bus. metrics and log may be nil.
func NewBus(metrics *monitoring.Metrics, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:    make(map[id.SubscriberID]*subscriber),
		metrics: metrics,
		log:     log,
	}
}

// Subscribe registers a consumer with a queue of buffer events (a default is
// used when buffer <= 0). The subscription ends when ctx is done, cancel is
// called, the subscriber is evicted or the bus is closed; in every case the
// channel is closed exactly once and the goroutine watching ctx exits. cancel
// stays safe to call after any of these.
func (b *Bus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber{
		id:   id.NewSubscriberID(),
		ch:   make(chan Event, buffer),
		gone: make(chan struct{}),
	}
	b.subs[sub.id] = sub
	count := len(b.subs)
	b.mu.Unlock()

	b.metrics.SetSubscribers(count)

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			b.remove(sub.id)
		})
	}

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		case <-sub.gone:
		}
	}()

	return sub.ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	var evicted []id.SubscriberID
	for sid, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(b.subs, sid)
			sub.drop()
			evicted = append(evicted, sid)
		}
	}
	count := len(b.subs)
	b.mu.Unlock()

	b.metrics.RecordEvent(string(ev.Kind))
	if len(evicted) == 0 {
		return
	}

	b.metrics.SetSubscribers(count)
	for _, sid := range evicted {
		b.metrics.IncSubscriberEvicted()
		b.log.Warn("Evicted slow subscriber",
			zap.String("subscriber_id", sid.String()),
			zap.String("kind", string(ev.Kind)))
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped and later
// subscriptions receive an already-closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sid, sub := range b.subs {
		delete(b.subs, sid)
		sub.drop()
	}
	b.metrics.SetSubscribers(0)
}

func (b *Bus) remove(sid id.SubscriberID) {
	b.mu.Lock()
	sub, ok := b.subs[sid]
	if ok {
		delete(b.subs, sid)
		sub.drop()
	}
	count := len(b.subs)
	b.mu.Unlock()

	if ok {
		b.metrics.SetSubscribers(count)
	}
}
