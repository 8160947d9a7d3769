// Package live provides observable values and table-driven live queries.
package live

import "sync"

// Subject holds the latest value of T and fans it out to subscribers.
// A new subscriber receives the current value first. A subscriber that falls
// behind only sees the newest value.
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	has    bool
	closed bool
	subs   map[*Subscription[T]]struct{}
}

// NewSubject returns a subject with no value yet.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: map[*Subscription[T]]struct{}{}}
}

// NewSubjectWith returns a subject seeded with v.
func NewSubjectWith[T any](v T) *Subject[T] {
	s := NewSubject[T]()
	s.value, s.has = v, true
	return s
}

// Set replaces the value and notifies every subscriber.
func (s *Subject[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value, s.has = v, true
	for sub := range s.subs {
		sub.offer(v)
	}
}

// Update applies fn to the current value under the subject's lock.
func (s *Subject[T]) Update(fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value, s.has = fn(s.value), true
	for sub := range s.subs {
		sub.offer(s.value)
	}
}

// Current returns the latest value and whether one was ever set.
func (s *Subject[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Value returns the latest value, or the zero value.
func (s *Subject[T]) Value() T {
	v, _ := s.Current()
	return v
}

// Subscribe registers a new subscriber. On a closed subject the returned
// subscription's channel is already closed.
func (s *Subject[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, 1), owner: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.closeLocked()
		return sub
	}
	if s.has {
		sub.offer(s.value)
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Close ends every subscription. Later Sets are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.closeLocked()
	}
	s.subs = map[*Subscription[T]]struct{}{}
}

// Subscription receives values from a Subject.
type Subscription[T any] struct {
	ch     chan T
	owner  *Subject[T]
	closed bool
}

// C is closed when the subscription or its subject closes.
func (sub *Subscription[T]) C() <-chan T { return sub.ch }

// Close detaches the subscription.
func (sub *Subscription[T]) Close() {
	s := sub.owner
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
	sub.closeLocked()
}

// offer must run under the owner's lock; it is the only sender.
func (sub *Subscription[T]) offer(v T) {
	select {
	case sub.ch <- v:
	default:
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- v
	}
}

func (sub *Subscription[T]) closeLocked() {
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
