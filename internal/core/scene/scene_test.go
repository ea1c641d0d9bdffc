package scene

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/entities/internal/core/events/bus"
	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
)

type marker struct {
	models.BaseComponent
}

func newMarker(t models.ComponentType) *marker {
	return &marker{BaseComponent: models.NewBaseComponent(t)}
}

func (m *marker) Clone() models.Component {
	return &marker{BaseComponent: m.CloneBase()}
}

func entityWith(t *testing.T, types ...models.ComponentType) *models.Entity {
	e := models.NewEntity()
	for _, ct := range types {
		require.NoError(t, e.AddComponent(newMarker(ct)))
	}
	return e
}

func TestQueryKeyIgnoresOrderAndDuplicates(t *testing.T) {
	assert.Equal(t, QueryKey("a", "b"), QueryKey("b", "a", "a"))
	assert.NotEqual(t, QueryKey("a", "b"), QueryKey("ab"))
	assert.NotEqual(t, QueryKey("a"), QueryKey("a", "b"))
}

func TestAddRemoveEntities(t *testing.T) {
	s := New("test", nil)
	a := models.NewEntity()
	b := models.NewEntity()

	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))
	assert.ErrorIs(t, s.Add(a), ErrEntityExists)
	assert.ErrorIs(t, s.Add(nil), ErrNilEntity)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []*models.Entity{a, b}, s.Entities())

	got, ok := s.Get(b.ID())
	require.True(t, ok)
	assert.Same(t, b, got)

	require.NoError(t, s.Remove(a.ID()))
	assert.ErrorIs(t, s.Remove(a.ID()), ErrEntityNotFound)
	assert.Equal(t, []*models.Entity{b}, s.Entities())
}

func TestRemoveCancelsSubscription(t *testing.T) {
	s := New("test", nil)
	e := models.NewEntity()
	require.NoError(t, s.Add(e))

	var forwarded int
	s.Changes().Subscribe(func(models.ComponentChange) error { forwarded++; return nil })

	require.NoError(t, e.AddComponent(newMarker("a")))
	assert.Equal(t, 1, forwarded)

	require.NoError(t, s.Remove(e.ID()))
	require.NoError(t, e.AddComponent(newMarker("b")))
	assert.Equal(t, 1, forwarded, "removed entity must not reach the scene")
}

func TestQueryTracksChanges(t *testing.T) {
	s := New("test", nil)
	both := entityWith(t, "pos", "vel")
	posOnly := entityWith(t, "pos")
	require.NoError(t, s.Add(both))
	require.NoError(t, s.Add(posOnly))

	q := s.Query("vel", "pos")
	assert.Same(t, q, s.Query("pos", "vel"))
	assert.Equal(t, []*models.Entity{both}, q.Entities())

	// added message arrives before the write; the query must still match
	require.NoError(t, posOnly.AddComponent(newMarker("vel")))
	assert.True(t, q.Contains(posOnly.ID()))
	assert.Equal(t, 2, q.Len())

	require.NoError(t, both.RemoveComponentType("pos"))
	assert.False(t, q.Contains(both.ID()))
	assert.Equal(t, []*models.Entity{posOnly}, q.Entities())

	// unrelated type does not change membership
	require.NoError(t, posOnly.AddComponent(newMarker("tag")))
	require.NoError(t, posOnly.RemoveComponentType("tag"))
	assert.True(t, q.Contains(posOnly.ID()))

	// entities added later are matched immediately
	late := entityWith(t, "pos", "vel")
	require.NoError(t, s.Add(late))
	assert.True(t, q.Contains(late.ID()))

	require.NoError(t, s.Remove(late.ID()))
	assert.False(t, q.Contains(late.ID()))
	assert.Equal(t, []models.ComponentType{"pos", "vel"}, q.Types())
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	s := New("test", nil)
	require.NoError(t, s.Add(models.NewEntity()))
	require.NoError(t, s.Add(entityWith(t, "x")))
	assert.Equal(t, 2, s.Query().Len())
}

func TestUpdateOrder(t *testing.T) {
	s := New("test", nil)
	var calls []string
	record := func(e *models.Entity, name string) {
		for _, et := range []string{models.EventInitialize, models.EventPreUpdate, models.EventPostUpdate} {
			_, err := e.Events().Subscribe(et, func(ev bus.Event) error {
				calls = append(calls, name+":"+ev.Type())
				return nil
			})
			require.NoError(t, err)
		}
	}
	a := models.NewEntity()
	b := models.NewEntity()
	record(a, "a")
	record(b, "b")
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	require.NoError(t, s.Update(nil, 16*time.Millisecond))
	assert.Equal(t, []string{
		"a:initialize", "b:initialize",
		"a:preupdate", "b:preupdate",
		"a:postupdate", "b:postupdate",
	}, calls)

	calls = nil
	require.NoError(t, s.Update(nil, 16*time.Millisecond))
	assert.Equal(t, []string{"a:preupdate", "b:preupdate", "a:postupdate", "b:postupdate"}, calls)
	assert.Equal(t, uint64(2), s.Frame())
}

func TestUpdateErrorAbortsFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New("test", log.NewWithCore(core, log.LevelDebug))
	boom := errors.New("boom")
	a := models.NewEntity()
	b := models.NewEntity()
	_, err := a.Events().Subscribe(models.EventPreUpdate, func(bus.Event) error { return boom })
	require.NoError(t, err)
	bPost := 0
	_, err = b.Events().Subscribe(models.EventPostUpdate, func(bus.Event) error { bPost++; return nil })
	require.NoError(t, err)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	err = s.Update(nil, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, bPost)
	assert.Equal(t, 1, logs.FilterMessage("frame aborted").Len())
}

func TestEntityAddedDuringFrameWaitsForNextFrame(t *testing.T) {
	s := New("test", nil)
	spawner := models.NewEntity()
	spawned := models.NewEntity()
	_, err := spawner.Events().Subscribe(models.EventPreUpdate, func(bus.Event) error {
		if _, ok := s.Get(spawned.ID()); ok {
			return nil
		}
		return s.Add(spawned)
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(spawner))

	require.NoError(t, s.Update(nil, 0))
	assert.False(t, spawned.IsInitialized())
	require.NoError(t, s.Update(nil, 0))
	assert.True(t, spawned.IsInitialized())
}

func TestQueryIgnoresRejectedChanges(t *testing.T) {
	s := New("test", nil)
	e := entityWith(t, "pos")
	require.NoError(t, s.Add(e))
	q := s.Query("pos", "vel")
	require.Zero(t, q.Len())

	// subscribed after the scene, so it runs after the scene has seen the change
	veto := errors.New("veto")
	sub := e.Changes().Subscribe(func(models.ComponentChange) error { return veto })

	assert.ErrorIs(t, e.AddComponent(newMarker("vel")), veto)
	assert.False(t, e.Has("vel"))
	assert.False(t, q.Contains(e.ID()))
	assert.Empty(t, q.Entities())

	sub.Cancel()
	require.NoError(t, e.AddComponent(newMarker("vel")))
	assert.True(t, q.Contains(e.ID()))

	sub = e.Changes().Subscribe(func(models.ComponentChange) error { return veto })
	assert.ErrorIs(t, e.RemoveComponentType("pos"), veto)
	assert.True(t, e.Has("pos"))
	assert.True(t, q.Contains(e.ID()))
	assert.Equal(t, 1, q.Len())

	sub.Cancel()
	require.NoError(t, s.Update(nil, 0))
	assert.True(t, q.Contains(e.ID()))
}

func TestQueryReadDuringChangeCatchesUp(t *testing.T) {
	s := New("test", nil)
	e := models.NewEntity()
	require.NoError(t, s.Add(e))
	q := s.Query("vel")

	var seen bool
	sub := s.Changes().Subscribe(func(models.ComponentChange) error {
		seen = q.Contains(e.ID())
		return nil
	})
	defer sub.Cancel()

	require.NoError(t, e.AddComponent(newMarker("vel")))
	assert.False(t, seen, "the write has not happened while handlers run")
	assert.True(t, q.Contains(e.ID()))
}

func TestEntityRemovedDuringFrameSkipsRemainingPasses(t *testing.T) {
	s := New("test", nil)
	killer := models.NewEntity()
	victim := models.NewEntity()
	_, err := killer.Events().Subscribe(models.EventPreUpdate, func(bus.Event) error {
		if _, ok := s.Get(victim.ID()); !ok {
			return nil
		}
		return s.Remove(victim.ID())
	})
	require.NoError(t, err)

	var victimCalls []string
	for _, et := range []string{models.EventInitialize, models.EventPreUpdate, models.EventPostUpdate} {
		_, err = victim.Events().Subscribe(et, func(ev bus.Event) error {
			victimCalls = append(victimCalls, ev.Type())
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Add(killer))
	require.NoError(t, s.Add(victim))

	require.NoError(t, s.Update(nil, 0))
	assert.Equal(t, []string{models.EventInitialize}, victimCalls)
	assert.Equal(t, 1, s.Len())
}
