package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// QualifierSeparator splits qualified template names ("mail:welcome.html")
// into a renderer name and a template name.
const QualifierSeparator = ":"

// Registry holds configured renderers by name and resolves qualified template
// names against them. The first renderer registered becomes the default until
// SetDefault picks another.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]HTMLRenderer
	order     []string
	fallback  string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]HTMLRenderer)}
}

// Register adds renderer under its Name(). Blank and duplicate names fail.
func (r *Registry) Register(renderer HTMLRenderer) error {
	if renderer == nil {
		return fmt.Errorf("render: renderer is required")
	}
	name := strings.TrimSpace(renderer.Name())
	switch {
	case name == "":
		return fmt.Errorf("render: renderer name is required")
	case strings.Contains(name, QualifierSeparator):
		return fmt.Errorf("render: renderer name %q must not contain %q", name, QualifierSeparator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("render: renderer %q already registered", name)
	}
	r.renderers[name] = renderer
	r.order = append(r.order, name)
	if r.fallback == "" {
		r.fallback = name
	}
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(renderer HTMLRenderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

// SetDefault selects the renderer used for unqualified template names.
func (r *Registry) SetDefault(name string) error {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.renderers[name]; !ok {
		return fmt.Errorf("%w %q", ErrRendererNotFound, name)
	}
	r.fallback = name
	return nil
}

// DefaultName returns the renderer used for unqualified names, or "" when the
// registry is empty.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Get retrieves a renderer by name.
func (r *Registry) Get(name string) (HTMLRenderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrRendererNotFound, name)
	}
	return renderer, nil
}

// MustGet panics if the renderer is missing.
func (r *Registry) MustGet(name string) HTMLRenderer {
	renderer, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return renderer
}

// Resolve maps a possibly qualified template name onto a renderer and the
// template name it should render. A prefix that names no registered renderer
// is kept as part of the template name and the default renderer is used.
func (r *Registry) Resolve(qualified string) (HTMLRenderer, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if prefix, rest, found := strings.Cut(qualified, QualifierSeparator); found {
		if renderer, ok := r.renderers[prefix]; ok {
			return renderer, rest, nil
		}
	}
	if r.fallback == "" {
		return nil, "", fmt.Errorf("%w: no default renderer for %q", ErrRendererNotFound, qualified)
	}
	return r.renderers[r.fallback], qualified, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has reports whether a renderer is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.renderers[name]
	return ok
}
