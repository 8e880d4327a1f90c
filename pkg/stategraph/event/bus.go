package event

import (
	"sync"

	"github.com/google/uuid"
)

// Handler processes a delivered event.
type Handler func(evt Event)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 256
	BufferSize int

	// NonBlocking makes Publish drop events for subscribers whose buffer
	// is full instead of blocking the executor.
	// Default: false (blocking)
	NonBlocking bool

	// OnDrop is called when an event is dropped (non-blocking mode).
	OnDrop func(evt Event, subscriberID string)
}

// Bus fans events out to subscribers, each on its own goroutine so a slow
// consumer never stalls another.
type Bus struct {
	mu     sync.RWMutex
	cfg    BusConfig
	subs   map[string]*subscription
	closed bool
}

// NewBus creates an event bus.
func NewBus(cfg BusConfig) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Bus{
		cfg:  cfg,
		subs: make(map[string]*subscription),
	}
}

// Subscription is an active subscription handle.
type Subscription interface {
	// Unsubscribe removes the subscription and stops delivery.
	Unsubscribe()
}

// subscription delivers events from a buffered channel to its handler.
type subscription struct {
	id      string
	bus     *Bus
	types   map[Type]struct{} // nil = all types
	ch      chan Event
	done    chan struct{}
	once    sync.Once
	handler Handler
}

// Subscribe registers a handler for specific event types.
func (b *Bus) Subscribe(types []Type, handler Handler) Subscription {
	filter := make(map[Type]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}
	return b.subscribe(filter, handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	return b.subscribe(nil, handler)
}

func (b *Bus) subscribe(filter map[Type]struct{}, handler Handler) Subscription {
	sub := &subscription{
		id:      uuid.NewString(),
		bus:     b,
		types:   filter,
		ch:      make(chan Event, b.cfg.BufferSize),
		done:    make(chan struct{}),
		handler: handler,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.done)
		return sub
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.deliver()
	return sub
}

// Publish sends an event to all matching subscribers. In blocking mode the
// call waits for room in each subscriber's buffer; in non-blocking mode full
// subscribers are skipped and OnDrop is invoked.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.wants(evt.Type) {
			continue
		}
		if b.cfg.NonBlocking {
			select {
			case sub.ch <- evt:
			default:
				if b.cfg.OnDrop != nil {
					b.cfg.OnDrop(evt, sub.id)
				}
			}
			continue
		}
		select {
		case sub.ch <- evt:
		case <-sub.done:
		}
	}
}

// Close shuts down the bus and all subscriptions. Buffered events are
// discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
	return nil
}

func (s *subscription) wants(t Type) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

func (s *subscription) deliver() {
	for {
		select {
		case evt := <-s.ch:
			s.handler(evt)
		case <-s.done:
			return
		}
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Unsubscribe implements Subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	s.stop()
}
