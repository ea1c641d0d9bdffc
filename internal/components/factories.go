package components

import (
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/prefab"
)

// Register installs YAML factories for the stock components.
func Register(r *prefab.Registry) error {
	return errors.Join(
		r.Register(TypeTransform, transformFactory),
		r.Register(TypeHealth, healthFactory),
		r.Register(TypeTag, tagFactory),
		r.Register(TypeLifetime, lifetimeFactory),
	)
}

func transformFactory(params *yaml.Node) (models.Component, error) {
	var p struct {
		X        float64 `yaml:"x"`
		Y        float64 `yaml:"y"`
		Rotation float64 `yaml:"rotation"`
	}
	if err := prefab.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewTransform(p.X, p.Y, p.Rotation), nil
}

// healthFactory starts at full health unless current is given.
func healthFactory(params *yaml.Node) (models.Component, error) {
	var p struct {
		Current *int `yaml:"current"`
		Max     int  `yaml:"max"`
	}
	if err := prefab.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	current := p.Max
	if p.Current != nil {
		current = *p.Current
	}
	return NewHealth(current, p.Max), nil
}

func tagFactory(params *yaml.Node) (models.Component, error) {
	var p struct {
		Labels []string `yaml:"labels"`
	}
	if err := prefab.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewTag(p.Labels...), nil
}

// lifetimeFactory takes a Go duration string such as "1.5s".
func lifetimeFactory(params *yaml.Node) (models.Component, error) {
	var p struct {
		Duration string `yaml:"duration"`
	}
	if err := prefab.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return nil, err
	}
	return NewLifetime(d), nil
}
