package app

import (
	"github.com/google/wire"

	"github.com/zeusync/entities/internal/components"
	"github.com/zeusync/entities/internal/config"
	"github.com/zeusync/entities/internal/core/observability/log"
	"github.com/zeusync/entities/internal/core/observability/metrics"
	"github.com/zeusync/entities/internal/core/prefab"
	"github.com/zeusync/entities/internal/core/scene"
	"github.com/zeusync/entities/internal/server"
)

// ProviderSet builds an App from a config path.
var ProviderSet = wire.NewSet(
	config.Load,
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideScene,
	ProvideMetrics,
	ProvideRegistry,
	prefab.NewLibrary,
	ProvideHTTPServer,
	New,
)

func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	lc, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(lc)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideScene(cfg *config.Config, logger log.Log) *scene.Scene {
	return scene.New(cfg.Scene.Name, logger)
}

// ProvideMetrics counts the scene's component changes until cleanup.
func ProvideMetrics(sc *scene.Scene) (*metrics.Metrics, func()) {
	m := metrics.New()
	sub := m.Watch(sc.Changes())
	return m, sub.Cancel
}

// ProvideRegistry returns a registry holding the stock component factories.
func ProvideRegistry() (*prefab.Registry, error) {
	reg := prefab.NewRegistry()
	if err := components.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// ProvideHTTPServer returns nil when the inspector is disabled.
func ProvideHTTPServer(cfg *config.Config, sc *scene.Scene, m *metrics.Metrics, logger log.Log) *server.HTTPServer {
	if !cfg.Inspector.Enabled {
		return nil
	}
	return server.NewHTTPServer(cfg.Inspector.Addr, server.NewInspector(sc.Changes(), logger), m.Handler(), logger)
}
