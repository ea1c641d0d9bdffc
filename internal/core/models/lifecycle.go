package models

import (
	"fmt"
	"time"

	"github.com/zeusync/entities/internal/core/events/bus"
)

// Lifecycle event types published on Entity.Events.
const (
	EventInitialize = "initialize"
	EventPreUpdate  = "preupdate"
	EventPostUpdate = "postupdate"
)

type (
	// EngineContext is whatever the driving engine passes to a frame. The
	// entity hands it to hooks unexamined.
	EngineContext = any
	// DeltaTime is the time elapsed since the previous frame.
	DeltaTime = time.Duration
)

// LifecycleEvent is the Data of every lifecycle event.
type LifecycleEvent struct {
	Entity *Entity
	Engine EngineContext
	Delta  DeltaTime
}

// Extension points for specialized entity kinds, installed with WithBehavior.
type (
	Initializer interface {
		OnInitialize(engine EngineContext) error
	}
	PreUpdater interface {
		OnPreUpdate(engine EngineContext, dt DeltaTime) error
	}
	PostUpdater interface {
		OnPostUpdate(engine EngineContext, dt DeltaTime) error
	}
)

// EventSource is the subscriber-side view of an entity's lifecycle events.
type EventSource interface {
	Subscribe(eventType string, handler bus.EventHandler) (bus.Subscription, error)
	Unsubscribe(sub bus.Subscription) error
	Subscribers(eventType string) int
}

// Initialize runs OnInitialize, publishes "initialize" and marks the entity
// initialized. Calls after the first successful one do nothing. If the hook
// or a handler fails the entity stays uninitialized.
func (e *Entity) Initialize(engine EngineContext) error {
	if e.initialized {
		return nil
	}
	if h, ok := e.behavior.(Initializer); ok {
		if err := h.OnInitialize(engine); err != nil {
			return fmt.Errorf("initialize %s: %w", e, err)
		}
	}
	if err := e.emit(EventInitialize, engine, 0); err != nil {
		return fmt.Errorf("initialize %s: %w", e, err)
	}
	e.initialized = true
	return nil
}

// PreUpdate publishes "preupdate" and then runs OnPreUpdate. It does not
// require the entity to be initialized.
func (e *Entity) PreUpdate(engine EngineContext, dt DeltaTime) error {
	if err := e.emit(EventPreUpdate, engine, dt); err != nil {
		return fmt.Errorf("preupdate %s: %w", e, err)
	}
	if h, ok := e.behavior.(PreUpdater); ok {
		if err := h.OnPreUpdate(engine, dt); err != nil {
			return fmt.Errorf("preupdate %s: %w", e, err)
		}
	}
	return nil
}

// PostUpdate publishes "postupdate" and then runs OnPostUpdate. It does not
// require the entity to be initialized.
func (e *Entity) PostUpdate(engine EngineContext, dt DeltaTime) error {
	if err := e.emit(EventPostUpdate, engine, dt); err != nil {
		return fmt.Errorf("postupdate %s: %w", e, err)
	}
	if h, ok := e.behavior.(PostUpdater); ok {
		if err := h.OnPostUpdate(engine, dt); err != nil {
			return fmt.Errorf("postupdate %s: %w", e, err)
		}
	}
	return nil
}

// emit skips building the event when nobody listens for it.
func (e *Entity) emit(eventType string, engine EngineContext, dt DeltaTime) error {
	if e.events.Subscribers(eventType) == 0 {
		return nil
	}
	return e.events.Publish(bus.NewEvent(eventType, e.String(), LifecycleEvent{
		Entity: e,
		Engine: engine,
		Delta:  dt,
	}))
}
