package models

import "errors"

type position struct {
	BaseComponent
	X, Y float64
}

func newPosition(x, y float64) *position {
	return &position{BaseComponent: NewBaseComponent("position"), X: x, Y: y}
}

func (p *position) Clone() Component {
	c := *p
	c.BaseComponent = p.CloneBase()
	return &c
}

// hooked records its hook calls and the owner seen at that time.
type hooked struct {
	BaseComponent
	calls      *[]string
	addErr     error
	removeErr  error
	ownerAtAdd *Entity
	ownerAtRem *Entity
	mapAtRem   bool
}

func newHooked(t ComponentType, calls *[]string) *hooked {
	return &hooked{BaseComponent: NewBaseComponent(t), calls: calls}
}

func (h *hooked) OnAdd(owner *Entity) error {
	*h.calls = append(*h.calls, "add:"+string(h.Type()))
	h.ownerAtAdd = h.Owner()
	return h.addErr
}

func (h *hooked) OnRemove(owner *Entity) error {
	*h.calls = append(*h.calls, "remove:"+string(h.Type()))
	h.ownerAtRem = h.Owner()
	h.mapAtRem = owner.Has(h.Type())
	return h.removeErr
}

func (h *hooked) Clone() Component {
	return &hooked{BaseComponent: h.CloneBase(), calls: h.calls}
}

// plain has no optional capabilities.
type plain struct {
	BaseComponent
}

func newPlain(t ComponentType) *plain {
	return &plain{BaseComponent: NewBaseComponent(t)}
}

var errBoom = errors.New("boom")

// recordChanges subscribes to e and returns the collected messages.
func recordChanges(e *Entity) *[]ComponentChange {
	var got []ComponentChange
	e.Changes().Subscribe(func(m ComponentChange) error {
		got = append(got, m)
		return nil
	})
	return &got
}
