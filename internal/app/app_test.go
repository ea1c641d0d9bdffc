package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/entities/internal/components"
	"github.com/zeusync/entities/internal/config"
	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observability/metrics"
	"github.com/zeusync/entities/internal/core/prefab"
)

const prefabs = `
prefabs:
  - name: spark
    components:
      - type: transform
      - type: lifetime
        params: {duration: 100ms}
  - name: rock
    components:
      - type: transform
        params: {x: 5}
  - name: goblin
    components:
      - type: health
        params: {max: 3}
`

func newTestApp(t *testing.T, cfg *config.Config) (*App, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewWithCore(core, log.LevelDebug)

	reg, err := ProvideRegistry()
	require.NoError(t, err)
	sc := ProvideScene(cfg, logger)
	m := metrics.New()
	return New(cfg, logger, sc, prefab.NewLibrary(reg, logger), m, ProvideHTTPServer(cfg, sc, m, logger)), logs
}

func prefabDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sandbox.yaml"), []byte(prefabs), 0o600))
	return dir
}

func TestLoadSpawnsConfiguredPrefabs(t *testing.T) {
	cfg := config.Default()
	cfg.Prefabs.Dir = prefabDir(t)
	cfg.Prefabs.Spawn = []string{"rock", "spark", "rock"}
	a, logs := newTestApp(t, cfg)

	require.NoError(t, a.Load(context.Background()))
	assert.Equal(t, 3, a.Scene().Len())
	assert.Equal(t, []string{"goblin", "rock", "spark"}, a.Prefabs().Names())
	assert.Equal(t, 3, logs.FilterMessage("entity spawned").Len())

	cfg.Prefabs.Spawn = []string{"dragon"}
	b, _ := newTestApp(t, cfg)
	assert.ErrorIs(t, b.Load(context.Background()), prefab.ErrPrefabNotFound)
}

func TestStepDespawnsExpiredEntities(t *testing.T) {
	cfg := config.Default()
	cfg.Prefabs.Dir = prefabDir(t)
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.Load(context.Background()))

	spark, err := a.Spawn("spark")
	require.NoError(t, err)
	rock, err := a.Spawn("rock")
	require.NoError(t, err)

	require.NoError(t, a.Step(60*time.Millisecond))
	assert.Equal(t, 2, a.Scene().Len())
	assert.True(t, spark.IsInitialized())

	require.NoError(t, a.Step(60*time.Millisecond))
	_, ok := a.Scene().Get(spark.ID())
	assert.False(t, ok)
	_, ok = a.Scene().Get(rock.ID())
	assert.True(t, ok)
}

func TestStepDespawnsDeadEntities(t *testing.T) {
	cfg := config.Default()
	cfg.Prefabs.Dir = prefabDir(t)
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.Load(context.Background()))

	goblin, err := a.Spawn("goblin")
	require.NoError(t, err)
	h, ok := models.ComponentOf[*components.Health](goblin, components.TypeHealth)
	require.True(t, ok)
	assert.Equal(t, 3, h.Current)

	h.Damage(3)
	require.NoError(t, a.Step(time.Millisecond))
	assert.Zero(t, a.Scene().Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Scene.FrameInterval = 5 * time.Millisecond
	cfg.Prefabs.Dir = prefabDir(t)
	cfg.Prefabs.Spawn = []string{"rock"}
	cfg.Inspector.Enabled = true
	cfg.Inspector.Addr = "127.0.0.1:0"
	a, logs := newTestApp(t, cfg)
	require.NotNil(t, a.http)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.Scene().Frame() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, logs.FilterMessage("inspector stopped").Len())
}
