package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrPluginNotFound is returned when no discovered plugin has the
	// requested name.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest is returned for a plugin.json that cannot back a
	// binding.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// manifestFile is the manifest each plugin directory must contain.
const manifestFile = "plugin.json"

// Manager holds the plugins found in one directory and resolves action
// bindings against their manifests. Every subdirectory holding a plugin.json
// is one plugin; plugins are keyed by manifest name.
type Manager struct {
	dir string

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for dir. Nothing is loaded until Discover.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		plugins: make(map[string]*Plugin),
	}
}

// Discover rescans the directory and replaces the known plugins. A missing
// directory yields no plugins. Unreadable or invalid manifests are logged and
// skipped; when two manifests share a name the first directory wins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read plugin dir %s: %w", m.dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		p, err := loadPlugin(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Printf("Skipping plugin %s: %v", entry.Name(), err)
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			log.Printf("Skipping plugin %s: name %q already used by %s", entry.Name(), p.Manifest.Name, prev.Path)
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	log.Printf("Discovered %d plugins in %s", len(found), m.dir)
	return nil
}

// loadPlugin reads and checks dir/plugin.json. A directory without a manifest
// returns an error wrapping fs.ErrNotExist.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	switch {
	case manifest.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidManifest)
	case manifest.Executable == "":
		return nil, fmt.Errorf("%w: executable is required", ErrInvalidManifest)
	case !filepath.IsLocal(manifest.Executable):
		return nil, fmt.Errorf("%w: executable %q must stay inside the plugin directory", ErrInvalidManifest, manifest.Executable)
	case len(manifest.Actions) == 0:
		return nil, fmt.Errorf("%w: no actions declared", ErrInvalidManifest)
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns the plugin with the given manifest name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// Resolve returns the plugin a binding of pluginName/action would run. It
// fails with ErrPluginNotFound or ErrUnsupportedAction when the binding
// cannot be served by the discovered manifests.
func (m *Manager) Resolve(pluginName, action string) (*Plugin, error) {
	p, err := m.Get(pluginName)
	if err != nil {
		return nil, err
	}
	if !p.Supports(action) {
		return nil, fmt.Errorf("%w: %s does not list %q", ErrUnsupportedAction, pluginName, action)
	}
	return p, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})
	return plugins
}
