package models

import "iter"

// ComponentMap holds one component per ComponentType in insertion order.
// Only the owning entity mutates it; every mutation publishes exactly one
// change message on the entity's channel before the write takes effect.
type ComponentMap struct {
	owner   *Entity
	entries map[ComponentType]Component
	order   []ComponentType
}

func newComponentMap(owner *Entity) *ComponentMap {
	return &ComponentMap{
		owner:   owner,
		entries: make(map[ComponentType]Component),
	}
}

// Get returns the component stored under t.
func (m *ComponentMap) Get(t ComponentType) (Component, bool) {
	c, ok := m.entries[t]
	return c, ok
}

// Has reports whether a component is stored under t.
func (m *ComponentMap) Has(t ComponentType) bool {
	_, ok := m.entries[t]
	return ok
}

// Len is the number of stored components.
func (m *ComponentMap) Len() int { return len(m.order) }

// Types returns the present types in insertion order. The slice is a copy.
func (m *ComponentMap) Types() []ComponentType {
	out := make([]ComponentType, len(m.order))
	copy(out, m.order)
	return out
}

// All iterates over a snapshot of the entries in insertion order.
func (m *ComponentMap) All() iter.Seq2[ComponentType, Component] {
	types := m.Types()
	return func(yield func(ComponentType, Component) bool) {
		for _, t := range types {
			c, ok := m.entries[t]
			if !ok {
				continue
			}
			if !yield(t, c) {
				return
			}
		}
	}
}

// set publishes AddedComponent and then stores c under t. A replaced entry
// keeps its position and is returned; no removal message is sent for it.
// If a subscriber fails the write does not happen.
func (m *ComponentMap) set(t ComponentType, c Component) (Component, error) {
	if err := m.owner.changes.Publish(AddedComponent{component: c, entity: m.owner}); err != nil {
		return nil, err
	}
	prev, exists := m.entries[t]
	m.entries[t] = c
	if !exists {
		m.order = append(m.order, t)
	}
	return prev, nil
}

// remove publishes RemovedComponent and then deletes t. It reports false,
// without publishing, when t is absent.
func (m *ComponentMap) remove(t ComponentType) (bool, error) {
	c, ok := m.entries[t]
	if !ok {
		return false, nil
	}
	if err := m.owner.changes.Publish(RemovedComponent{component: c, entity: m.owner}); err != nil {
		return false, err
	}
	delete(m.entries, t)
	for i, ot := range m.order {
		if ot == t {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}
