package plugin

import (
	"fmt"
	"sort"
	"sync"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Plugin)
)

// RegisterPlugin adds a plugin implementation for the provided step type.
func RegisterPlugin(stepType string, p Plugin) error {
	if p == nil {
		return driftkiterrors.NewPluginError(stepType, fmt.Errorf("plugin is nil"))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[stepType]; exists {
		return driftkiterrors.NewPluginError(stepType, fmt.Errorf("plugin already registered"))
	}

	registry[stepType] = p
	return nil
}

// GetPlugin retrieves a plugin by step type.
func GetPlugin(stepType string) (Plugin, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[stepType]
	if !ok {
		return nil, driftkiterrors.NewPluginError(stepType, fmt.Errorf("no plugin registered"))
	}

	return p, nil
}

// ListPlugins returns registered metadata sorted by step type.
func ListPlugins() []Metadata {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Metadata, 0, len(registry))
	for _, p := range registry {
		out = append(out, p.PluginMetadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResetRegistry clears plugin registrations (for tests).
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Plugin)
}
