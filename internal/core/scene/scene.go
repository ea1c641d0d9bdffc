package scene

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observable"
)

var (
	ErrNilEntity      = errors.New("scene: entity is nil")
	ErrEntityExists   = errors.New("scene: entity already added")
	ErrEntityNotFound = errors.New("scene: entity not found")
)

type member struct {
	entity *models.Entity
	sub    *observable.Subscription[models.ComponentChange]
}

// Scene owns a set of entities and drives their frames: initialize once,
// then pre-update and post-update every frame. It listens to each entity's
// change feed to keep its queries current and republishes the changes on
// its own feed. A scene is driven from a single goroutine.
type Scene struct {
	name    string
	logger  log.Log
	order   []models.EntityID
	members map[models.EntityID]*member
	queries map[uint64]*Query
	pending map[models.EntityID]models.ComponentChange
	changes *observable.Observable[models.ComponentChange]
	frame   atomic.Uint64
}

func New(name string, logger log.Log) *Scene {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scene{
		name:    name,
		logger:  logger.With(log.String("scene", name)),
		members: make(map[models.EntityID]*member),
		queries: make(map[uint64]*Query),
		pending: make(map[models.EntityID]models.ComponentChange),
		changes: observable.New[models.ComponentChange](),
	}
}

func (s *Scene) Name() string    { return s.name }
func (s *Scene) Len() int        { return len(s.order) }
func (s *Scene) Frame() uint64   { return s.frame.Load() }
func (s *Scene) Logger() log.Log { return s.logger }

// Changes republishes every component change of every entity in the scene.
func (s *Scene) Changes() models.ChangeFeed { return s.changes }

// Add registers e and subscribes to its changes until Remove.
func (s *Scene) Add(e *models.Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if _, ok := s.members[e.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrEntityExists, e)
	}

	m := &member{entity: e}
	m.sub = e.Changes().Subscribe(s.onChange)
	s.members[e.ID()] = m
	s.order = append(s.order, e.ID())

	for _, q := range s.queries {
		q.refresh(e)
	}
	s.logger.Debug("entity added",
		log.Uint64("entity", uint64(e.ID())),
		log.String("name", e.Name()),
		log.Int("components", e.Components().Len()))
	return nil
}

// Remove drops the entity and cancels the scene's subscription to it.
func (s *Scene) Remove(id models.EntityID) error {
	m, ok := s.members[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	m.sub.Cancel()
	delete(s.members, id)
	delete(s.pending, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, q := range s.queries {
		q.remove(id)
	}
	s.logger.Debug("entity removed", log.Uint64("entity", uint64(id)))
	return nil
}

func (s *Scene) Get(id models.EntityID) (*models.Entity, bool) {
	m, ok := s.members[id]
	if !ok {
		return nil, false
	}
	return m.entity, true
}

// Entities returns the entities in the order they were added.
func (s *Scene) Entities() []*models.Entity {
	out := make([]*models.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.members[id].entity)
	}
	return out
}

// Query returns the cached query for types, creating it on first use.
func (s *Scene) Query(types ...models.ComponentType) *Query {
	key := QueryKey(types...)
	if q, ok := s.queries[key]; ok {
		return q
	}
	q := newQuery(s, key, normalize(types))
	for _, id := range s.order {
		q.refresh(s.members[id].entity)
	}
	s.queries[key] = q
	return q
}

// Update runs one frame. Entities added by hooks during the frame are picked
// up by the next one; entities removed during the frame are skipped by the
// passes that have not reached them yet. The first error aborts the frame.
func (s *Scene) Update(engine models.EngineContext, dt models.DeltaTime) error {
	s.frame.Add(1)
	s.sync(true)
	entities := s.Entities()

	for _, e := range entities {
		if !s.contains(e) {
			continue
		}
		if err := e.Initialize(engine); err != nil {
			return s.frameError(err)
		}
	}
	for _, e := range entities {
		if !s.contains(e) {
			continue
		}
		if err := e.PreUpdate(engine, dt); err != nil {
			return s.frameError(err)
		}
	}
	for _, e := range entities {
		if !s.contains(e) {
			continue
		}
		if err := e.PostUpdate(engine, dt); err != nil {
			return s.frameError(err)
		}
	}
	return nil
}

func (s *Scene) contains(e *models.Entity) bool {
	m, ok := s.members[e.ID()]
	return ok && m.entity == e
}

func (s *Scene) frameError(err error) error {
	frame := s.frame.Load()
	s.logger.Error("frame aborted", log.Uint64("frame", frame), log.Error(err))
	return fmt.Errorf("scene %s frame %d: %w", s.name, frame, err)
}

// onChange runs before the entity's map is written and before later
// subscribers get a say, so it only records the entity for re-checking.
func (s *Scene) onChange(m models.ComponentChange) error {
	if id := m.Entity().ID(); s.members[id] != nil {
		s.pending[id] = m
	}
	return s.changes.Publish(m)
}

// sync re-checks pending entities against every query. An entry stays
// pending until its change has landed in the map, since a read from inside
// a change handler happens before the write. final drops every entry; Update
// passes it because no change is in flight between frames.
func (s *Scene) sync(final bool) {
	if len(s.pending) == 0 {
		return
	}
	for _, id := range s.order {
		m, ok := s.pending[id]
		if !ok {
			continue
		}
		e := s.members[id].entity
		for _, q := range s.queries {
			q.refresh(e)
		}
		if final || landed(m) {
			delete(s.pending, id)
		}
	}
}

// landed reports whether the map already reflects m.
func landed(m models.ComponentChange) bool {
	c, ok := m.Entity().Get(m.Component().Type())
	if m.Kind() == models.KindComponentAdded {
		return ok && c == m.Component()
	}
	return !ok || c != m.Component()
}
