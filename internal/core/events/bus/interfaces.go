package bus

import "time"

// EventBus is an in-process, named-event dispatcher. Each entity owns one
// instance for its lifecycle events ("initialize", "preupdate", "postupdate");
// it is composed into the entity rather than inherited.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Synchronous delivery: Publish calls handlers in the caller goroutine, in subscription order.
// - Error aggregation: every handler runs; their errors are joined and returned from Publish.
//
// All methods are safe for concurrent use.
type EventBus interface {
	// Publish delivers the event synchronously to all active subscribers of event.Type().
	Publish(event Event) error
	// Subscribe registers a handler for a specific event type and returns a
	// Subscription handle that can be used to cancel later.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error
	// Subscribers returns the number of active handlers for eventType.
	Subscribers(eventType string) int
}

// Event is an immutable message transported by the EventBus.
//
// Fields:
// - Type: routing key used to select handlers (required for delivery).
// - Source: identifier of the publisher (free-form).
// - Timestamp: creation time of the event.
// - Data: opaque payload for consumers.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is a user callback invoked per delivered event.
type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
// Use Cancel or EventBus.Unsubscribe to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the event type this subscription listens to.
	EventType() string
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}
