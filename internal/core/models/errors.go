package models

import "errors"

var (
	ErrNilComponent       = errors.New("component is nil")
	ErrNilEntity          = errors.New("entity is nil")
	ErrNotCloneable       = errors.New("component does not implement Clone")
	ErrComponentOwned     = errors.New("component is owned by another entity")
	ErrEmptyComponentType = errors.New("component type is empty")
)
