package loader

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// ErrUnknownLoader is returned when a configuration names a loader that has
// not been registered.
var ErrUnknownLoader = errors.New("loader: unknown loader")

// Factory builds a template loader from the argument list configured for it.
type Factory func(args ...any) (pongo2.TemplateLoader, error)

// Registry maps loader names to factories. It replaces class-name lookups
// with an explicit table resolved at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Default returns a registry populated with the built-in loaders:
// filesystem, fs, memory and http.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(NameFilesystem, NewFilesystem)
	r.MustRegister(NameFS, NewFS)
	r.MustRegister(NameMemory, NewMemory)
	r.MustRegister(NameHTTP, NewHTTP)
	return r
}

// Register adds a factory under name. Duplicate names return an error.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("loader: name is required")
	}
	if factory == nil {
		return fmt.Errorf("loader: factory for %q is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("loader: %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve instantiates the loader registered under name with args.
func (r *Registry) Resolve(name string, args ...any) (pongo2.TemplateLoader, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownLoader, name)
	}
	l, err := factory(args...)
	if err != nil {
		return nil, fmt.Errorf("loader: create %q: %w", name, err)
	}
	if l == nil {
		return nil, fmt.Errorf("loader: factory %q returned nil", name)
	}
	return l, nil
}

// Has reports whether a factory is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}

// Names returns the registered loader names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
