package prefab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/entities/internal/core/models"
	"github.com/zeusync/entities/internal/core/observability/log"
)

var (
	ErrPrefabExists      = errors.New("prefab: already defined")
	ErrPrefabNotFound    = errors.New("prefab: not found")
	ErrInvalidDefinition = errors.New("prefab: invalid definition")
)

// File is the YAML layout of a prefab file:
//
//	prefabs:
//	  - name: goblin
//	    components:
//	      - type: health
//	        params: {current: 10, max: 10}
type File struct {
	Prefabs []Definition `yaml:"prefabs"`
}

type Definition struct {
	Name       string          `yaml:"name"`
	Components []ComponentSpec `yaml:"components"`
}

type ComponentSpec struct {
	Type   models.ComponentType `yaml:"type"`
	Params yaml.Node            `yaml:"params"`
}

// Library holds named template entities. Templates are never added to a
// scene; Instantiate clones their components onto a fresh entity.
type Library struct {
	registry  *Registry
	logger    log.Log
	mu        sync.RWMutex
	templates map[string]*models.Entity
}

func NewLibrary(registry *Registry, logger log.Log) *Library {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Library{
		registry:  registry,
		logger:    logger.With(log.String("component", "prefab")),
		templates: make(map[string]*models.Entity),
	}
}

// Define registers template under name.
func (l *Library) Define(name string, template *models.Entity) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if template == nil {
		return models.ErrNilEntity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.templates[name]; ok {
		return fmt.Errorf("%w: %q", ErrPrefabExists, name)
	}
	l.templates[name] = template
	l.logger.Debug("prefab defined",
		log.String("name", name),
		log.Int("components", template.Components().Len()))
	return nil
}

// Build turns a definition into a template entity without registering it.
func (l *Library) Build(def Definition) (*models.Entity, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	template := models.NewEntity(models.WithName(def.Name))
	for i, spec := range def.Components {
		if spec.Type == "" {
			return nil, fmt.Errorf("%w: %q component %d has no type", ErrInvalidDefinition, def.Name, i)
		}
		params := &def.Components[i].Params
		c, err := l.registry.Build(spec.Type, params)
		if err != nil {
			return nil, fmt.Errorf("prefab %q: %w", def.Name, err)
		}
		if err = template.AddComponent(c); err != nil {
			return nil, fmt.Errorf("prefab %q: %w", def.Name, err)
		}
	}
	return template, nil
}

func (l *Library) defineAll(f File) (int, error) {
	for i, def := range f.Prefabs {
		template, err := l.Build(def)
		if err != nil {
			return i, err
		}
		if err = l.Define(def.Name, template); err != nil {
			return i, err
		}
	}
	return len(f.Prefabs), nil
}

// LoadYAML reads one prefab file and defines every prefab in it. It returns
// how many were defined before any error.
func (l *Library) LoadYAML(r io.Reader) (int, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode prefabs: %w", err)
	}
	return l.defineAll(f)
}

func (l *Library) LoadFile(path string) (int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open prefab file %s: %w", path, err)
	}
	defer fh.Close()
	n, err := l.LoadYAML(fh)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// LoadDir decodes every *.yaml and *.yml file in dir concurrently, then
// defines their prefabs in file-name order.
func (l *Library) LoadDir(ctx context.Context, dir string) (int, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, fmt.Errorf("scan prefab dir %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	files := make([]File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read prefab file %s: %w", path, err)
			}
			if err = yaml.Unmarshal(data, &files[i]); err != nil {
				return fmt.Errorf("decode prefab file %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for i, f := range files {
		n, err := l.defineAll(f)
		total += n
		if err != nil {
			return total, fmt.Errorf("%s: %w", paths[i], err)
		}
	}
	l.logger.Info("prefabs loaded",
		log.String("dir", dir),
		log.Int("files", len(paths)),
		log.Int("prefabs", total))
	return total, nil
}

func (l *Library) Template(name string) (*models.Entity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	return t, ok
}

// Instantiate creates a new entity carrying clones of the template's
// components. The entity is named after the prefab unless opts say otherwise.
func (l *Library) Instantiate(name string, opts ...models.Option) (*models.Entity, error) {
	template, ok := l.Template(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPrefabNotFound, name)
	}
	opts = append([]models.Option{models.WithName(name)}, opts...)
	e := models.NewEntity(opts...)
	if err := e.AddFrom(template); err != nil {
		return nil, fmt.Errorf("instantiate %q: %w", name, err)
	}
	return e, nil
}

// Names returns the defined prefab names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.templates))
	for name := range l.templates {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
