package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all available tools
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

var globalRegistry = NewRegistry()

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the global registry
func Register(t Tool) error {
	return globalRegistry.Register(t)
}

// Get retrieves a tool from the global registry
func Get(name string) (Tool, error) {
	return globalRegistry.Get(name)
}

// List returns all registered tool names
func List() []string {
	return globalRegistry.List()
}

// Infos returns metadata about every registered tool
func Infos() []Info {
	return globalRegistry.Infos()
}

// Register adds a tool to the registry
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	return t, nil
}

// List returns all registered tool names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns metadata about all tools, sorted by name
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.tools))
	for _, t := range r.tools {
		info := Info{
			Name:        t.Name(),
			Description: t.Description(),
		}
		// Tools may describe themselves in more detail
		if ext, ok := t.(interface{ Info() Info }); ok {
			info = ext.Info()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
