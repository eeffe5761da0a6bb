// Package htmlrender renders HTML through a pongo2 template engine configured
// from a name, an ordered list of loaders, engine options and extra
// functions.
package htmlrender

import (
	"fmt"

	"github.com/goliatone/go-htmlrender/pkg/config"
	"github.com/goliatone/go-htmlrender/pkg/render"
	"github.com/goliatone/go-htmlrender/pkg/render/template/pongo"
)

// Renderer is the contract exposed to view layers.
type Renderer = render.HTMLRenderer

// Config is a map-backed configuration provider.
type Config = config.Values

// LoaderSpec names a loader and its arguments in ordered loader lists.
type LoaderSpec = config.LoaderSpec

// Option configures a renderer.
type Option = render.Option

// New returns a renderer for cfg. Only `name` is validated up front; the
// engine is built on the first render.
func New(cfg config.Provider, options ...Option) (*render.Adapter, error) {
	return render.New(cfg, options...)
}

// FromFile loads a YAML or JSON configuration file and returns a renderer.
func FromFile(path string, options ...Option) (*render.Adapter, error) {
	values, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return render.New(values, options...)
}

// NewRegistry registers renderers by name.
func NewRegistry(renderers ...Renderer) (*render.Registry, error) {
	registry := render.NewRegistry()
	for _, r := range renderers {
		if err := registry.Register(r); err != nil {
			return nil, fmt.Errorf("htmlrender: %w", err)
		}
	}
	return registry, nil
}

// PredefinedFunctions lists the functions every renderer registers.
func PredefinedFunctions() []string {
	return pongo.PredefinedNames()
}
