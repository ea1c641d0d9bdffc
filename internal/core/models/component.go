package models

import "weak"

// ComponentType discriminates components within one entity. It is unique per
// entity, not across the system: two entities may each hold a "health".
type ComponentType string

// Component is a typed unit of data or behavior attached to at most one
// entity at a time. Implementations embed BaseComponent, which carries the
// type and the owner back-reference and satisfies the unexported setter.
type Component interface {
	Type() ComponentType
	Owner() *Entity

	setOwner(*Entity)
}

// Optional capabilities. The entity checks for them with a type assertion;
// a component that does not implement one gets the no-op behavior.
type (
	// Cloner returns a deep copy that shares no mutable state with the
	// original. Required for prefab expansion and Entity.Clone.
	Cloner interface {
		Clone() Component
	}

	// AddHook runs after the component has been stored on the entity.
	AddHook interface {
		OnAdd(owner *Entity) error
	}

	// RemoveHook runs after the owner is cleared and before the component
	// leaves the entity's map.
	RemoveHook interface {
		OnRemove(owner *Entity) error
	}
)

// BaseComponent is embedded by concrete components.
//
//	type Health struct {
//		models.BaseComponent
//		Current, Max int
//	}
type BaseComponent struct {
	ctype ComponentType
	owner weak.Pointer[Entity]
}

// NewBaseComponent returns a detached base of type t.
func NewBaseComponent(t ComponentType) BaseComponent {
	return BaseComponent{ctype: t}
}

// Type is the discriminator the component is stored under.
func (b *BaseComponent) Type() ComponentType { return b.ctype }

// Owner returns the entity holding this component, or nil. The reference is
// weak: it does not keep the entity alive.
func (b *BaseComponent) Owner() *Entity { return b.owner.Value() }

func (b *BaseComponent) setOwner(e *Entity) {
	if e == nil {
		b.owner = weak.Pointer[Entity]{}
		return
	}
	b.owner = weak.Make(e)
}

// CloneBase returns a copy with the same type and no owner. Clone
// implementations use it so the copy starts detached.
func (b *BaseComponent) CloneBase() BaseComponent {
	return BaseComponent{ctype: b.ctype}
}

func cloneComponent(c Component) (Component, error) {
	cl, ok := c.(Cloner)
	if !ok {
		return nil, ErrNotCloneable
	}
	return cl.Clone(), nil
}
