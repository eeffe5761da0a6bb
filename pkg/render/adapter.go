package render

import (
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-htmlrender/pkg/config"
	"github.com/goliatone/go-htmlrender/pkg/loader"
	"github.com/goliatone/go-htmlrender/pkg/render/template/pongo"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLoaderRegistry resolves configured loader names against registry
// instead of loader.Default().
func WithLoaderRegistry(registry *loader.Registry) Option {
	return func(a *Adapter) {
		if registry != nil {
			a.loaders = registry
		}
	}
}

// WithLogger sets the logger handed to the adapter and its engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithSprigFunctions registers the sprig function map before the configured
// functions, so configured functions win on a name clash.
func WithSprigFunctions() Option {
	return func(a *Adapter) {
		a.sprig = true
	}
}

// WithSanitizer sets the bluemonday policy behind sanitize_html. The sanitize
// filter is process-wide and always uses the UGC policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(a *Adapter) {
		if policy != nil {
			a.engineOptions = append(a.engineOptions, pongo.WithSanitizer(policy))
		}
	}
}

// WithEngineOptions appends raw engine options. They are applied after the
// configured `options` mapping.
func WithEngineOptions(options ...pongo.Option) Option {
	return func(a *Adapter) {
		a.engineOptions = append(a.engineOptions, options...)
	}
}

// Adapter is an HTMLRenderer backed by a pongo2 engine built from
// configuration. The engine is built on first use and reused afterwards.
type Adapter struct {
	cfg           config.Provider
	name          string
	loaders       *loader.Registry
	logger        zerolog.Logger
	sprig         bool
	engineOptions []pongo.Option

	mu     sync.Mutex
	built  bool
	driver *pongo.Engine
}

var _ HTMLRenderer = (*Adapter)(nil)

// New validates the required `name` key and returns an adapter. Loaders,
// options and functions are read when the engine is first built.
func New(cfg config.Provider, options ...Option) (*Adapter, error) {
	name, err := config.Name(cfg)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	a := &Adapter{
		cfg:     cfg,
		name:    name,
		loaders: loader.Default(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a, nil
}

// Name returns the configured renderer name.
func (a *Adapter) Name() string {
	return a.name
}

// Render builds the engine if needed and renders template with data. Engine
// errors are returned as they are.
func (a *Adapter) Render(template string, data map[string]any) (string, error) {
	driver, err := a.NativeDriver()
	if err != nil {
		return "", err
	}
	return driver.RenderTemplate(template, data)
}

// NativeDriver returns the underlying engine, building it on the first call.
// A failed build is not remembered; the next call tries again.
func (a *Adapter) NativeDriver() (*pongo.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.built {
		return a.driver, nil
	}

	driver, err := a.build()
	if err != nil {
		return nil, err
	}
	a.driver = driver
	a.built = true
	return driver, nil
}

func (a *Adapter) build() (*pongo.Engine, error) {
	specs, err := config.Loaders(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}
	loaders := make([]pongo2.TemplateLoader, 0, len(specs))
	for _, spec := range specs {
		l, err := a.loaders.Resolve(spec.Name, spec.Args...)
		if err != nil {
			return nil, fmt.Errorf("render %q: %w", a.name, err)
		}
		loaders = append(loaders, l)
	}

	rawOptions, err := config.Options(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}
	configured, err := pongo.OptionsFromMap(rawOptions)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}

	options := []pongo.Option{
		pongo.WithSetName(a.name),
		pongo.WithLogger(a.logger),
		pongo.WithLoaders(loaders...),
	}
	options = append(options, configured...)
	options = append(options, a.engineOptions...)

	engine, err := pongo.New(options...)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}

	if a.sprig {
		if err := engine.RegisterSprig(); err != nil {
			return nil, fmt.Errorf("render %q: sprig: %w", a.name, err)
		}
	}

	fns, err := config.Functions(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}
	if err := engine.RegisterFunctions(fns); err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}
	if err := engine.RegisterPredefined(); err != nil {
		return nil, fmt.Errorf("render %q: %w", a.name, err)
	}

	a.logger.Debug().
		Str("renderer", a.name).
		Int("loaders", len(loaders)).
		Int("functions", len(fns)).
		Msg("template engine built")

	return engine, nil
}
