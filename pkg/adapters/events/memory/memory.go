package memory

import (
	"context"
	"sync"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// InMemoryEventBus implements EventBus using in-memory handlers
type InMemoryEventBus struct {
	subscribers map[string]map[uint64]*subscription
	nextID      uint64
	mu          sync.RWMutex
}

// subscription delivers events to one handler in publish order
type subscription struct {
	handler ports.EventHandler
	ctx     context.Context

	mu     sync.Mutex
	queue  []domain.Event
	notify chan struct{}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]map[uint64]*subscription),
	}
}

// Publish queues an event for all subscribers of a topic. Each subscriber
// receives its events in publish order on its own goroutine; handler errors
// are dropped.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, sub := range e.subscribers[topic] {
		sub.enqueue(event)
	}

	return nil
}

// Subscribe registers handler for a topic until ctx is cancelled
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{
		handler: handler,
		ctx:     ctx,
		notify:  make(chan struct{}, 1),
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[uint64]*subscription)
	}
	e.subscribers[topic][id] = sub
	e.mu.Unlock()

	go func() {
		sub.run()
		e.unsubscribe(topic, id)
	}()

	return nil
}

// Subscribers returns the number of live subscriptions on a topic
func (e *InMemoryEventBus) Subscribers(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic])
}

// Close drops all subscriptions
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string]map[uint64]*subscription)
	return nil
}

func (e *InMemoryEventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers[topic], id)
	if len(e.subscribers[topic]) == 0 {
		delete(e.subscribers, topic)
	}
}

func (s *subscription) enqueue(event domain.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// run hands queued events to the handler until the subscription ends
func (s *subscription) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notify:
		}

		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, event := range batch {
			if s.ctx.Err() != nil {
				return
			}
			_ = s.handler(s.ctx, event)
		}
	}
}
