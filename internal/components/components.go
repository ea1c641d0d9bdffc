// Package components holds the stock components used by the sandbox and
// its prefabs.
package components

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zeusync/entities/internal/core/events/bus"
	"github.com/zeusync/entities/internal/core/models"
)

const (
	TypeTransform models.ComponentType = "transform"
	TypeHealth    models.ComponentType = "health"
	TypeTag       models.ComponentType = "tag"
	TypeLifetime  models.ComponentType = "lifetime"
)

var ErrInvalidHealth = errors.New("health max must be positive")

// Transform places an entity in the world.
type Transform struct {
	models.BaseComponent
	X, Y     float64
	Rotation float64
}

func NewTransform(x, y, rotation float64) *Transform {
	return &Transform{BaseComponent: models.NewBaseComponent(TypeTransform), X: x, Y: y, Rotation: rotation}
}

func (t *Transform) Clone() models.Component {
	c := *t
	c.BaseComponent = t.CloneBase()
	return &c
}

type Health struct {
	models.BaseComponent
	Current int
	Max     int
}

func NewHealth(current, maxHP int) *Health {
	return &Health{BaseComponent: models.NewBaseComponent(TypeHealth), Current: current, Max: maxHP}
}

func (h *Health) Clone() models.Component {
	c := *h
	c.BaseComponent = h.CloneBase()
	return &c
}

// OnAdd rejects a non-positive max and clamps Current into [0, Max].
func (h *Health) OnAdd(*models.Entity) error {
	if h.Max <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHealth, h.Max)
	}
	h.Current = min(max(h.Current, 0), h.Max)
	return nil
}

func (h *Health) Damage(amount int) {
	h.Current = max(h.Current-amount, 0)
}

func (h *Health) Dead() bool { return h.Current == 0 }

type Tag struct {
	models.BaseComponent
	Labels []string
}

func NewTag(labels ...string) *Tag {
	return &Tag{BaseComponent: models.NewBaseComponent(TypeTag), Labels: labels}
}

func (t *Tag) Clone() models.Component {
	return &Tag{BaseComponent: t.CloneBase(), Labels: slices.Clone(t.Labels)}
}

func (t *Tag) Has(label string) bool {
	return slices.Contains(t.Labels, label)
}

// Lifetime counts down on every pre-update of its owner. While attached it
// holds a subscription on the owner's events; OnRemove cancels it.
type Lifetime struct {
	models.BaseComponent
	Remaining time.Duration

	sub bus.Subscription
}

func NewLifetime(d time.Duration) *Lifetime {
	return &Lifetime{BaseComponent: models.NewBaseComponent(TypeLifetime), Remaining: d}
}

func (l *Lifetime) Clone() models.Component {
	return &Lifetime{BaseComponent: l.CloneBase(), Remaining: l.Remaining}
}

func (l *Lifetime) OnAdd(owner *models.Entity) error {
	if l.sub != nil {
		_ = l.sub.Cancel()
	}
	sub, err := owner.Events().Subscribe(models.EventPreUpdate, func(ev bus.Event) error {
		if le, ok := ev.Data().(models.LifecycleEvent); ok {
			l.Remaining = max(l.Remaining-le.Delta, 0)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.sub = sub
	return nil
}

func (l *Lifetime) OnRemove(*models.Entity) error {
	if l.sub == nil {
		return nil
	}
	err := l.sub.Cancel()
	l.sub = nil
	return err
}

func (l *Lifetime) Expired() bool { return l.Remaining <= 0 }
