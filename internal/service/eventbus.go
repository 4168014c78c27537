package service

import (
	"sync"

	"github.com/bnema/docstruct/internal/domain"
)

// EventPublisher is told whenever a result descriptor is written.
type EventPublisher interface {
	Publish(outputKeyPrefix string, event Event)
}

type Event struct {
	Type    string // "state"
	State   domain.ResultState
	Message string
}

// EventBus fans result events out to subscribers of one output prefix.
type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(outputKeyPrefix string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	key := domain.ResultKey(outputKeyPrefix)
	ch := make(chan Event, 16)
	eb.subscribers[key] = append(eb.subscribers[key], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(outputKeyPrefix string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	key := domain.ResultKey(outputKeyPrefix)
	subs := eb.subscribers[key]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[key] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[key]) == 0 {
		delete(eb.subscribers, key)
	}
}

func (eb *EventBus) Publish(outputKeyPrefix string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[domain.ResultKey(outputKeyPrefix)] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}

func publishState(p EventPublisher, outputKeyPrefix string, state domain.ResultState, message string) {
	if p == nil {
		return
	}
	p.Publish(outputKeyPrefix, Event{Type: "state", State: state, Message: message})
}
