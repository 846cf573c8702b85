package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Registry holds the flows loaded from a directory of YAML files.
type Registry struct {
	dir    string
	logger *zap.Logger
	onLoad func(count int)

	mu    sync.RWMutex
	flows map[string]*Flow
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for reload diagnostics.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLoadHook registers fn to be called with the flow count after every
// successful load.
func WithLoadHook(fn func(count int)) RegistryOption {
	return func(r *Registry) { r.onLoad = fn }
}

// NewRegistry creates an empty registry for dir. Call LoadAll to populate it.
func NewRegistry(dir string, opts ...RegistryOption) *Registry {
	r := &Registry{
		dir:    dir,
		logger: zap.NewNop(),
		flows:  make(map[string]*Flow),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory flows are loaded from.
func (r *Registry) Dir() string { return r.dir }

// LoadAll replaces the registry contents with every .yaml and .yml file in
// the directory. On error the previous contents are kept.
func (r *Registry) LoadAll() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("read flow dir %q: %w", r.dir, err)
	}

	loaded := make(map[string]*Flow)
	for _, entry := range entries {
		if entry.IsDir() || !isFlowFile(entry.Name()) {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		f, err := LoadFile(path)
		if err != nil {
			return 0, err
		}
		if prev, dup := loaded[f.Name]; dup {
			return 0, fmt.Errorf("%w: flow %q defined in both %q and %q", ErrInvalidFlow, f.Name, prev.Source, path)
		}
		loaded[f.Name] = f
	}

	r.mu.Lock()
	r.flows = loaded
	r.mu.Unlock()

	if r.onLoad != nil {
		r.onLoad(len(loaded))
	}
	return len(loaded), nil
}

// LoadFile reads and validates one flow file. A flow without a name is
// named after its file.
func LoadFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow %q: %w", path, err)
	}

	var f Flow
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flow %q: %w", path, err)
	}
	if f.Name == "" {
		base := filepath.Base(path)
		f.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	f.Source = path

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}
	return &f, nil
}

// Get returns a flow by name.
func (r *Registry) Get(name string) (*Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[name]
	return f, ok
}

// Names returns the loaded flow names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Watch reloads the registry whenever a flow file in the directory is
// written, created, removed or renamed. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", r.dir, err)
	}

	const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&reloadOps == 0 || !isFlowFile(event.Name) {
				continue
			}
			n, err := r.LoadAll()
			if err != nil {
				r.logger.Error("flow reload failed, keeping previous flows",
					zap.String("file", event.Name), zap.Error(err))
				continue
			}
			r.logger.Info("flows reloaded", zap.String("file", event.Name), zap.Int("count", n))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("flow watcher error", zap.Error(err))
		}
	}
}

func isFlowFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
