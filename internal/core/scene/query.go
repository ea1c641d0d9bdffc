package scene

import (
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/entities/internal/core/models"
)

// QueryKey identifies a set of component types regardless of order or
// duplicates.
func QueryKey(types ...models.ComponentType) uint64 {
	d := xxhash.New()
	for _, t := range normalize(types) {
		_, _ = d.WriteString(string(t))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func normalize(types []models.ComponentType) []models.ComponentType {
	out := slices.Clone(types)
	slices.Sort(out)
	return slices.Compact(out)
}

// Query is a live view of the scene's entities holding all of its types.
// Entities whose components changed are re-checked against their maps on
// the next read, so a change rejected by a subscriber never shows up here.
type Query struct {
	scene   *Scene
	key     uint64
	types   []models.ComponentType
	members []*models.Entity
	index   map[models.EntityID]int
}

func newQuery(s *Scene, key uint64, types []models.ComponentType) *Query {
	return &Query{
		scene: s,
		key:   key,
		types: types,
		index: make(map[models.EntityID]int),
	}
}

// Key is the QueryKey of the query's types.
func (q *Query) Key() uint64 { return q.key }

// Types returns the required types, sorted.
func (q *Query) Types() []models.ComponentType { return slices.Clone(q.types) }

func (q *Query) Len() int {
	q.scene.sync(false)
	return len(q.members)
}

// Entities returns the matching entities in the order they started matching.
func (q *Query) Entities() []*models.Entity {
	q.scene.sync(false)
	return slices.Clone(q.members)
}

func (q *Query) Contains(id models.EntityID) bool {
	q.scene.sync(false)
	_, ok := q.index[id]
	return ok
}

// matches reports whether e currently holds every type.
func (q *Query) matches(e *models.Entity) bool {
	for _, t := range q.types {
		if !e.Has(t) {
			return false
		}
	}
	return true
}

// refresh adds or drops e according to its current components.
func (q *Query) refresh(e *models.Entity) {
	if q.matches(e) {
		q.add(e)
		return
	}
	q.remove(e.ID())
}

func (q *Query) add(e *models.Entity) {
	if _, ok := q.index[e.ID()]; ok {
		return
	}
	q.index[e.ID()] = len(q.members)
	q.members = append(q.members, e)
}

func (q *Query) remove(id models.EntityID) {
	i, ok := q.index[id]
	if !ok {
		return
	}
	q.members = slices.Delete(q.members, i, i+1)
	delete(q.index, id)
	for j := i; j < len(q.members); j++ {
		q.index[q.members[j].ID()] = j
	}
}
