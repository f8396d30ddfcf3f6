package notifications

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a handle to a registered listener.
type Subscription struct {
	id     string
	once   sync.Once
	remove func(id string)
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Remove detaches the listener. Safe to call more than once and on nil.
func (s *Subscription) Remove() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.remove(s.id)
	})
}

// registry fans an event out to every attached listener.
type registry[T any] struct {
	mu        sync.RWMutex
	listeners map[string]func(T)
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{listeners: make(map[string]func(T))}
}

func (r *registry[T]) add(fn func(T)) *Subscription {
	id := uuid.New().String()

	r.mu.Lock()
	r.listeners[id] = fn
	r.mu.Unlock()

	return &Subscription{id: id, remove: r.delete}
}

func (r *registry[T]) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, id)
}

// emit calls every listener outside the lock so listeners may unsubscribe.
func (r *registry[T]) emit(v T) {
	r.mu.RLock()
	fns := make([]func(T), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
