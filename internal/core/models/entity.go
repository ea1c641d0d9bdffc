package models

import (
	"fmt"
	"sync/atomic"

	"github.com/zeusync/entities/internal/core/events/bus"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observable"
)

// EntityID is assigned from a process-wide counter. Ids are never reused.
type EntityID uint64

var lastEntityID atomic.Uint64

func nextEntityID() EntityID {
	return EntityID(lastEntityID.Add(1))
}

// Entity is an identity plus an owned set of components plus a lifecycle
// state. An entity is not safe for concurrent use: confine each entity to the
// goroutine that drives its frames. Subscribing to its change feed is the
// exception and may happen from anywhere.
type Entity struct {
	id          EntityID
	name        string
	components  *ComponentMap
	changes     *observable.Observable[ComponentChange]
	events      bus.EventBus
	initialized bool
	behavior    any
	logger      log.Log
}

// Option configures an entity in NewEntity.
type Option func(*Entity)

// WithName sets the entity's display name.
func WithName(name string) Option {
	return func(e *Entity) { e.name = name }
}

// WithLogger makes the entity log component changes at debug level.
func WithLogger(l log.Log) Option {
	return func(e *Entity) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBehavior installs the lifecycle hooks of a specialized entity kind. b
// may implement any of Initializer, PreUpdater and PostUpdater.
//
//	type Player struct{ *models.Entity }
//
//	p := &Player{}
//	p.Entity = models.NewEntity(models.WithBehavior(p))
func WithBehavior(b any) Option {
	return func(e *Entity) { e.behavior = b }
}

// NewEntity creates an uninitialized entity with the next id and no
// components. Without WithName it is named "entity-<id>"; without WithLogger
// it logs nothing.
func NewEntity(opts ...Option) *Entity {
	e := &Entity{
		id:      nextEntityID(),
		changes: observable.New[ComponentChange](),
		events:  bus.New(),
		logger:  log.NewNop(),
	}
	e.components = newComponentMap(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.name == "" {
		e.name = fmt.Sprintf("entity-%d", e.id)
	}
	return e
}

func (e *Entity) ID() EntityID        { return e.id }
func (e *Entity) Name() string        { return e.name }
func (e *Entity) SetName(name string) { e.name = name }

// IsInitialized reports whether Initialize has completed successfully.
func (e *Entity) IsInitialized() bool { return e.initialized }

// Changes is the entity's component change channel.
func (e *Entity) Changes() ChangeFeed { return e.changes }

// Events carries the lifecycle events "initialize", "preupdate" and
// "postupdate".
func (e *Entity) Events() EventSource { return e.events }

// Components is a read-only view of the entity's components.
func (e *Entity) Components() *ComponentMap { return e.components }

func (e *Entity) String() string {
	return fmt.Sprintf("Entity#%d(%s)", e.id, e.name)
}

// AddComponent sets the owner, stores c under its type (publishing
// AddedComponent) and then runs its OnAdd hook. A component already stored
// under the same type is replaced without a removal message or hook; it only
// loses its owner. If a subscriber rejects the change nothing is stored and c
// keeps the owner it had. Nothing is rolled back when the hook fails.
func (e *Entity) AddComponent(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	t := c.Type()
	if t == "" {
		return ErrEmptyComponentType
	}
	if owner := c.Owner(); owner != nil && owner != e {
		return fmt.Errorf("add %q to %s: %w (owner %s)", t, e, ErrComponentOwned, owner)
	}

	prevOwner := c.Owner()
	c.setOwner(e)
	displaced, err := e.components.set(t, c)
	if err != nil {
		c.setOwner(prevOwner)
		return fmt.Errorf("add %q to %s: %w", t, e, err)
	}
	if displaced != nil && displaced != c {
		displaced.setOwner(nil)
	}
	e.logger.Debug("component added",
		log.Uint64("entity", uint64(e.id)),
		log.String("type", string(t)),
		log.Bool("replaced", displaced != nil && displaced != c))

	if h, ok := c.(AddHook); ok {
		if err = h.OnAdd(e); err != nil {
			return fmt.Errorf("add %q to %s: on add: %w", t, e, err)
		}
	}
	return nil
}

// AddFrom expands a prefab: every component currently on template is cloned
// and added to e through AddComponent. template is left untouched.
func (e *Entity) AddFrom(template *Entity) error {
	if template == nil {
		return ErrNilEntity
	}
	for _, t := range template.Types() {
		c, ok := template.Get(t)
		if !ok {
			continue
		}
		clone, err := cloneComponent(c)
		if err != nil {
			return fmt.Errorf("clone %q from %s: %w", t, template, err)
		}
		if err = e.AddComponent(clone); err != nil {
			return err
		}
	}
	return nil
}

// RemoveComponent removes whatever component is stored under c's type.
func (e *Entity) RemoveComponent(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	return e.RemoveComponentType(c.Type())
}

// RemoveComponentType clears the owner, runs the OnRemove hook and then
// deletes the entry (publishing RemovedComponent). Absent types are a no-op.
// If a subscriber rejects the removal the entry stays and gets its owner back.
func (e *Entity) RemoveComponentType(t ComponentType) error {
	c, ok := e.components.Get(t)
	if !ok {
		return nil
	}

	c.setOwner(nil)
	if h, ok := c.(RemoveHook); ok {
		if err := h.OnRemove(e); err != nil {
			return fmt.Errorf("remove %q from %s: on remove: %w", t, e, err)
		}
	}
	if _, err := e.components.remove(t); err != nil {
		c.setOwner(e)
		return fmt.Errorf("remove %q from %s: %w", t, e, err)
	}
	e.logger.Debug("component removed",
		log.Uint64("entity", uint64(e.id)),
		log.String("type", string(t)))
	return nil
}

func (e *Entity) Has(t ComponentType) bool {
	return e.components.Has(t)
}

func (e *Entity) Get(t ComponentType) (Component, bool) {
	return e.components.Get(t)
}

func (e *Entity) Types() []ComponentType {
	return e.components.Types()
}

// Clone builds a new entity with a fresh id holding clones of e's
// components. Hooks and change messages fire on the new entity. The clone
// shares the logger but not the name or behavior.
func (e *Entity) Clone() (*Entity, error) {
	clone := NewEntity(WithLogger(e.logger))
	if err := clone.AddFrom(e); err != nil {
		return nil, err
	}
	return clone, nil
}

// ComponentOf returns the component stored under t as a T.
func ComponentOf[T Component](e *Entity, t ComponentType) (T, bool) {
	var zero T
	c, ok := e.Get(t)
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
