package models

import "github.com/zeusync/entities/internal/core/observable"

// ChangeKind tags the two structural-change messages.
type ChangeKind string

const (
	KindComponentAdded   ChangeKind = "Component Added"
	KindComponentRemoved ChangeKind = "Component Removed"
)

// ComponentChange is published on an entity's change channel. The set of
// implementations is closed: AddedComponent and RemovedComponent.
type ComponentChange interface {
	Kind() ChangeKind
	Component() Component
	Entity() *Entity

	isComponentChange()
}

// AddedComponent is published before the component becomes visible in the
// entity's map, so a handler still sees the previous state.
type AddedComponent struct {
	component Component
	entity    *Entity
}

func (m AddedComponent) Kind() ChangeKind     { return KindComponentAdded }
func (m AddedComponent) Component() Component { return m.component }
func (m AddedComponent) Entity() *Entity      { return m.entity }
func (AddedComponent) isComponentChange()     {}

// RemovedComponent is published while the component is still in the map.
type RemovedComponent struct {
	component Component
	entity    *Entity
}

func (m RemovedComponent) Kind() ChangeKind     { return KindComponentRemoved }
func (m RemovedComponent) Component() Component { return m.component }
func (m RemovedComponent) Entity() *Entity      { return m.entity }
func (RemovedComponent) isComponentChange()     {}

// ChangeFeed is the subscriber-side view of an entity's change channel.
// Only the entity's component map publishes on it.
type ChangeFeed interface {
	Subscribe(handler observable.Handler[ComponentChange]) *observable.Subscription[ComponentChange]
	Unsubscribe(sub *observable.Subscription[ComponentChange])
}
