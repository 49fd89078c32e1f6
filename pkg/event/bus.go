package event

import (
	"sync"
	"sync/atomic"
)

// Event is a single application event delivered by an EventBus.
type Event struct {
	// Target is where the event was fired.
	Target any

	// CurrentTarget is the target whose subscription is being served; it
	// differs from Target while the event travels up the parent chain.
	CurrentTarget any

	// Name is the event name.
	Name string

	// Data is the payload.
	Data any

	stopped *bool
}

// StopPropagation prevents delivery to parent targets.
func (e Event) StopPropagation() {
	if e.stopped != nil {
		*e.stopped = true
	}
}

// Handler handles an event.
type Handler func(Event)

// Parent is implemented by targets that propagate events further up.
type Parent interface {
	EventParent() any
}

// Subscription is a single removable subscription on an EventBus.
type Subscription struct {
	id     uint64
	bus    *EventBus
	target any
	name   string // empty for listen-all subscriptions
	all    bool
	fn     Handler
	ch     chan Event
}

// Unsubscribe removes the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s)
}

// EventBus is an in-process channel for application events.
type EventBus struct {
	mu      sync.RWMutex
	subs    []*Subscription
	streams []*Subscription
	nextID  uint64
	dropped atomic.Uint64
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Listen subscribes fn to events called name fired on target.
func (b *EventBus) Listen(target any, name string, fn Handler) *Subscription {
	return b.add(&Subscription{target: target, name: name, fn: fn})
}

// ListenAll subscribes fn to every event fired on target. Targets are
// compared with ==, so they must be comparable (pointers in practice).
func (b *EventBus) ListenAll(target any, fn Handler) *Subscription {
	return b.add(&Subscription{target: target, all: true, fn: fn})
}

// Stream returns a channel receiving every event fired on the bus, on any
// target. Events are dropped when the channel buffer is full.
func (b *EventBus) Stream(buffer int) (<-chan Event, *Subscription) {
	sub := &Subscription{all: true, ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	sub.bus = b
	b.streams = append(b.streams, sub)
	b.mu.Unlock()
	return sub.ch, sub
}

// Dropped returns how many events were dropped by full stream channels.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *EventBus) add(sub *Subscription) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub.id = b.nextID
	sub.bus = b
	b.subs = append(b.subs, sub)
	return sub
}

func (b *EventBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
	for i, s := range b.streams {
		if s.id == sub.id {
			b.streams = append(b.streams[:i:i], b.streams[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Fire delivers an event to the subscriptions of target and then to those
// of each parent target, unless a handler stops propagation.
func (b *EventBus) Fire(target any, name string, data any) {
	stopped := false
	ev := Event{Target: target, Name: name, Data: data, stopped: &stopped}

	b.mu.RLock()
	for _, s := range b.streams {
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()

	for current := target; current != nil && !stopped; {
		ev.CurrentTarget = current
		for _, sub := range b.matching(current, name) {
			sub.fn(ev)
		}

		p, ok := current.(Parent)
		if !ok {
			break
		}
		current = p.EventParent()
	}
}

func (b *EventBus) matching(target any, name string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*Subscription
	for _, sub := range b.subs {
		if sub.target != target {
			continue
		}
		if sub.all || sub.name == name {
			out = append(out, sub)
		}
	}
	return out
}
