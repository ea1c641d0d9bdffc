package prefab

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/entities/internal/core/models"
)

var (
	ErrFactoryExists    = errors.New("prefab: component factory already registered")
	ErrUnknownComponent = errors.New("prefab: no factory for component type")
	ErrTypeMismatch     = errors.New("prefab: factory built a component of another type")
	ErrNilComponent     = errors.New("prefab: factory built no component")
)

// Factory builds a component from its YAML params. params is nil when the
// definition has none.
type Factory func(params *yaml.Node) (models.Component, error)

// Registry maps component types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[models.ComponentType]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[models.ComponentType]Factory)}
}

func (r *Registry) Register(t models.ComponentType, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[t]; ok {
		return fmt.Errorf("%w: %q", ErrFactoryExists, t)
	}
	r.factories[t] = f
	return nil
}

// Build runs the factory registered for t.
func (r *Registry) Build(t models.ComponentType, params *yaml.Node) (models.Component, error) {
	r.mu.RLock()
	f, ok := r.factories[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, t)
	}
	c, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", t, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilComponent, t)
	}
	if c.Type() != t {
		return nil, fmt.Errorf("%w: want %q, got %q", ErrTypeMismatch, t, c.Type())
	}
	return c, nil
}

// Types returns the registered component types, sorted.
func (r *Registry) Types() []models.ComponentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ComponentType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// DecodeParams decodes params into out. Missing params leave out unchanged.
func DecodeParams(params *yaml.Node, out any) error {
	if params == nil || params.Kind == 0 {
		return nil
	}
	return params.Decode(out)
}
