// Package app wires a scene, its prefab library and the optional inspector
// into a fixed-step frame loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/entities/internal/components"
	"github.com/zeusync/entities/internal/config"
	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observability/metrics"
	"github.com/zeusync/entities/internal/core/prefab"
	"github.com/zeusync/entities/internal/core/scene"
	"github.com/zeusync/entities/internal/server"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg     *config.Config
	logger  log.Log
	scene   *scene.Scene
	prefabs *prefab.Library
	metrics *metrics.Metrics
	http    *server.HTTPServer
}

// New builds an App. http may be nil when the inspector is disabled.
func New(
	cfg *config.Config,
	logger log.Log,
	sc *scene.Scene,
	prefabs *prefab.Library,
	m *metrics.Metrics,
	http *server.HTTPServer,
) *App {
	return &App{cfg: cfg, logger: logger, scene: sc, prefabs: prefabs, metrics: m, http: http}
}

func (a *App) Scene() *scene.Scene      { return a.scene }
func (a *App) Prefabs() *prefab.Library { return a.prefabs }
func (a *App) Config() *config.Config   { return a.cfg }

// Load reads the prefab directory and spawns the configured prefabs.
func (a *App) Load(ctx context.Context) error {
	if dir := a.cfg.Prefabs.Dir; dir != "" {
		if _, err := a.prefabs.LoadDir(ctx, dir); err != nil {
			return fmt.Errorf("load prefabs: %w", err)
		}
	}
	for _, name := range a.cfg.Prefabs.Spawn {
		if _, err := a.Spawn(name); err != nil {
			return err
		}
	}
	return nil
}

// Spawn instantiates a prefab and adds it to the scene.
func (a *App) Spawn(name string) (*models.Entity, error) {
	e, err := a.prefabs.Instantiate(name, models.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	if err = a.scene.Add(e); err != nil {
		return nil, fmt.Errorf("spawn %q: %w", name, err)
	}
	a.logger.Info("entity spawned", log.String("prefab", name), log.Uint64("entity", uint64(e.ID())))
	return e, nil
}

// Step runs one frame and then despawns entities whose lifetime ran out or
// whose health reached zero.
func (a *App) Step(dt time.Duration) error {
	start := time.Now()
	err := a.scene.Update(a, dt)
	if err == nil {
		err = a.reap()
	}
	a.metrics.ObserveFrame(time.Since(start), a.scene.Len(), err)
	return err
}

func (a *App) reap() error {
	var doomed []models.EntityID
	for _, e := range a.scene.Query(components.TypeLifetime).Entities() {
		if lt, ok := models.ComponentOf[*components.Lifetime](e, components.TypeLifetime); ok && lt.Expired() {
			doomed = append(doomed, e.ID())
		}
	}
	for _, e := range a.scene.Query(components.TypeHealth).Entities() {
		if h, ok := models.ComponentOf[*components.Health](e, components.TypeHealth); ok && h.Dead() && !slices.Contains(doomed, e.ID()) {
			doomed = append(doomed, e.ID())
		}
	}
	for _, id := range doomed {
		if err := a.scene.Remove(id); err != nil {
			return err
		}
		a.logger.Debug("entity despawned", log.Uint64("entity", uint64(id)))
	}
	a.metrics.Despawned(len(doomed))
	return nil
}

// Run loads the scene, starts the inspector if configured and steps the
// scene every frame interval until ctx is done or a frame fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Load(ctx); err != nil {
		return err
	}

	a.logger.Info("scene running",
		log.String("scene", a.scene.Name()),
		log.Int("entities", a.scene.Len()),
		log.Duration("frame_interval", a.cfg.Scene.FrameInterval))

	g, gctx := errgroup.WithContext(ctx)
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.http.Stop(sctx)
		})
	}
	g.Go(func() error { return a.loop(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) loop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Scene.FrameInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := a.Step(dt); err != nil {
				return err
			}
		}
	}
}
