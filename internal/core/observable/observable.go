package observable

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handler receives a published message. A returned error stops delivery of the
// current message and is returned from Publish.
type Handler[T any] func(message T) error

// Subscription is the handle returned by Subscribe. It is the only way to
// remove a handler, so callers that subscribe must keep it and cancel it.
type Subscription[T any] struct {
	id      string
	handler Handler[T]
	active  atomic.Bool
	owner   *Observable[T]
}

// ID is a unique identifier for this subscription.
func (s *Subscription[T]) ID() string { return s.id }

// IsActive reports whether the handler is still registered.
func (s *Subscription[T]) IsActive() bool { return s.active.Load() }

// Cancel removes the handler from its channel. Multiple calls are safe.
func (s *Subscription[T]) Cancel() {
	if s == nil || s.owner == nil {
		return
	}
	s.owner.Unsubscribe(s)
}

// Observable is a synchronous publish/subscribe channel over a single message
// type. Handlers run in the publisher's goroutine, in subscription order.
//
// Delivery works on a snapshot of the subscriber list taken when Publish is
// called: handlers subscribed while a publish is in flight are not invoked for
// it. A subscription cancelled while a publish is in flight is skipped by that
// publish if it has not been reached yet.
//
// The subscriber list is guarded by a mutex so subscribe and cancel may come
// from any goroutine; the lock is never held while handlers run.
type Observable[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
}

// New creates an empty channel.
func New[T any]() *Observable[T] {
	return &Observable[T]{}
}

// Subscribe registers handler and returns its subscription handle.
func (o *Observable[T]) Subscribe(handler Handler[T]) *Subscription[T] {
	s := &Subscription[T]{
		id:      uuid.NewString(),
		handler: handler,
		owner:   o,
	}
	s.active.Store(true)

	o.mu.Lock()
	o.subs = append(o.subs, s)
	o.mu.Unlock()
	return s
}

// Unsubscribe removes the subscription. Unknown or nil subscriptions are ignored.
func (o *Observable[T]) Unsubscribe(sub *Subscription[T]) {
	if sub == nil || sub.owner != o {
		return
	}
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s == sub {
			// copy-on-write so snapshots held by in-flight publishes stay intact
			next := make([]*Subscription[T], 0, len(o.subs)-1)
			next = append(next, o.subs[:i]...)
			o.subs = append(next, o.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers message to every subscriber. The first handler error
// aborts delivery to the remaining subscribers and is returned.
func (o *Observable[T]) Publish(message T) error {
	o.mu.Lock()
	snapshot := o.subs
	o.mu.Unlock()

	for _, s := range snapshot {
		if !s.active.Load() {
			continue
		}
		if err := s.handler(message); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of active subscriptions.
func (o *Observable[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}
