package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/entities/internal/core/models"
)

func TestTransformClone(t *testing.T) {
	src := models.NewEntity()
	tr := NewTransform(1, 2, 0.5)
	require.NoError(t, src.AddComponent(tr))

	dst, err := src.Clone()
	require.NoError(t, err)
	got, ok := models.ComponentOf[*Transform](dst, TypeTransform)
	require.True(t, ok)
	assert.NotSame(t, tr, got)
	assert.Same(t, dst, got.Owner())

	got.X = 10
	assert.Equal(t, 1.0, tr.X)
}

func TestHealthClampsOnAdd(t *testing.T) {
	e := models.NewEntity()
	h := NewHealth(150, 100)
	require.NoError(t, e.AddComponent(h))
	assert.Equal(t, 100, h.Current)

	h.Damage(40)
	assert.Equal(t, 60, h.Current)
	h.Damage(100)
	assert.Equal(t, 0, h.Current)
	assert.True(t, h.Dead())
}

func TestHealthRejectsNonPositiveMax(t *testing.T) {
	e := models.NewEntity()
	err := e.AddComponent(NewHealth(1, 0))
	assert.ErrorIs(t, err, ErrInvalidHealth)
}

func TestTagCloneIsDeep(t *testing.T) {
	tag := NewTag("enemy", "melee")
	clone := tag.Clone().(*Tag)
	clone.Labels[0] = "ally"

	assert.True(t, tag.Has("enemy"))
	assert.False(t, tag.Has("ally"))
	assert.True(t, clone.Has("melee"))
}

func TestLifetimeCountsDownOnPreUpdate(t *testing.T) {
	e := models.NewEntity()
	lt := NewLifetime(100 * time.Millisecond)
	require.NoError(t, e.AddComponent(lt))

	require.NoError(t, e.PreUpdate(nil, 60*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, lt.Remaining)
	assert.False(t, lt.Expired())

	require.NoError(t, e.PreUpdate(nil, 60*time.Millisecond))
	assert.Equal(t, time.Duration(0), lt.Remaining)
	assert.True(t, lt.Expired())
}

func TestLifetimeStopsAfterRemove(t *testing.T) {
	e := models.NewEntity()
	lt := NewLifetime(time.Second)
	require.NoError(t, e.AddComponent(lt))
	assert.Equal(t, 1, e.Events().Subscribers(models.EventPreUpdate))
	require.NoError(t, e.RemoveComponent(lt))
	assert.Zero(t, e.Events().Subscribers(models.EventPreUpdate))

	require.NoError(t, e.PreUpdate(nil, 500*time.Millisecond))
	assert.Equal(t, time.Second, lt.Remaining)
}

func TestLifetimeCloneHasOwnSubscription(t *testing.T) {
	src := models.NewEntity()
	require.NoError(t, src.AddComponent(NewLifetime(time.Second)))
	dst, err := src.Clone()
	require.NoError(t, err)

	require.NoError(t, dst.PreUpdate(nil, 300*time.Millisecond))

	orig, _ := models.ComponentOf[*Lifetime](src, TypeLifetime)
	copied, _ := models.ComponentOf[*Lifetime](dst, TypeLifetime)
	assert.Equal(t, time.Second, orig.Remaining)
	assert.Equal(t, 700*time.Millisecond, copied.Remaining)
}
