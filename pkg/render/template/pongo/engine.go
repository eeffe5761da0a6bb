package pongo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-htmlrender/pkg/loader"
	"github.com/goliatone/go-htmlrender/pkg/render/template"
)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	setName       string
	loaders       []pongo2.TemplateLoader
	debug         bool
	cache         bool
	autoescape    *bool
	bannedTags    []string
	bannedFilters []string
	globalData    map[string]any
	sanitizer     *bluemonday.Policy
	strict        bool
	logger        zerolog.Logger
}

// WithSetName names the underlying pongo2 template set.
func WithSetName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.setName = trimmed
		}
	}
}

// WithLoaders appends template loaders. They are chained in the given order.
func WithLoaders(loaders ...pongo2.TemplateLoader) Option {
	return func(cfg *config) {
		cfg.loaders = append(cfg.loaders, loaders...)
	}
}

// WithDebug disables the template cache and enables pongo2 debug output.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithCache toggles reuse of parsed templates. Caching is on by default.
func WithCache(cache bool) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithAutoescape sets pongo2's autoescape flag. pongo2 keeps this flag
// process-wide, so it applies to every engine in the process.
func WithAutoescape(enabled bool) Option {
	return func(cfg *config) {
		cfg.autoescape = &enabled
	}
}

// WithBannedTags forbids the named tags in templates of this engine.
func WithBannedTags(tags ...string) Option {
	return func(cfg *config) {
		cfg.bannedTags = append(cfg.bannedTags, tags...)
	}
}

// WithBannedFilters forbids the named filters in templates of this engine.
func WithBannedFilters(filters ...string) Option {
	return func(cfg *config) {
		cfg.bannedFilters = append(cfg.bannedFilters, filters...)
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithSanitizer replaces the bluemonday policy behind this engine's
// sanitize_html function. The process-wide sanitize filter keeps the UGC
// policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.sanitizer = policy
		}
	}
}

// WithStrictFunctions toggles the check that fails a render calling a function
// that is neither registered, present in the data nor bound by the template.
// It is on by default; pongo2 alone renders such calls as empty output.
func WithStrictFunctions(strict bool) Option {
	return func(cfg *config) {
		cfg.strict = strict
	}
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Engine satisfies template.TemplateRenderer using a pongo2 template set
// whose templates are resolved through a loader.Chain.
type Engine struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	chain       *loader.Chain
	cache       bool
	raising     bool
	strict      bool
	functions   map[string]struct{}
	logger      zerolog.Logger

	scansMu sync.Mutex
	scans   map[string]*templateScan
}

// Ensure Engine implements the TemplateRenderer interface.
var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{
		setName:   "htmlrender",
		cache:     true,
		sanitizer: bluemonday.UGCPolicy(),
		strict:    true,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	if len(cfg.loaders) == 0 {
		return nil, errors.New("pongo: at least one template loader is required")
	}

	chain := loader.NewChain(cfg.loaders...)
	set := pongo2.NewSet(cfg.setName, chain)
	set.Debug = cfg.debug

	for _, tag := range cfg.bannedTags {
		if err := set.BanTag(strings.TrimSpace(tag)); err != nil {
			return nil, fmt.Errorf("pongo: ban tag %q: %w", tag, err)
		}
	}
	for _, filter := range cfg.bannedFilters {
		if err := set.BanFilter(strings.TrimSpace(filter)); err != nil {
			return nil, fmt.Errorf("pongo: ban filter %q: %w", filter, err)
		}
	}
	if cfg.autoescape != nil {
		pongo2.SetAutoescape(*cfg.autoescape)
	}

	engine := &Engine{
		templateSet: set,
		chain:       chain,
		cache:       cfg.cache && !cfg.debug,
		strict:      cfg.strict,
		functions:   make(map[string]struct{}),
		scans:       make(map[string]*templateScan),
		logger:      cfg.logger,
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo: apply global data: %w", err)
	}
	if err := engine.RegisterFunction(FuncSanitizeHTML, sanitizeHTML(cfg.sanitizer)); err != nil {
		return nil, err
	}

	engine.logger.Debug().
		Str("set", cfg.setName).
		Int("loaders", chain.Len()).
		Bool("debug", cfg.debug).
		Bool("cache", engine.cache).
		Msg("pongo engine ready")

	return engine, nil
}

// Render renders inline template content when name looks like template
// source and a named template otherwise.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if isTemplateContent(name) {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate loads name through the loader chain and executes it.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("pongo: engine is nil")
	}

	tmpl, err := e.getTemplate(name)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, e.scanTemplate(name), data, out)
}

// RenderString parses templateContent and executes it.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("pongo: engine is nil")
	}

	tmpl, err := e.templateSet.FromString(templateContent)
	if err != nil {
		return "", fmt.Errorf("pongo: parse template string: %w", err)
	}
	var scan *templateScan
	if e.strict {
		scan = scanGraph(templateContent, e.source)
	}
	return e.execute(tmpl, scan, data, out)
}

// RegisterFilter registers a filter. pongo2 filters are process-wide, so a
// name can only be registered once.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// RegisterFunction exposes fn to templates of this engine as a callable
// global. Registering an existing name replaces it.
func (e *Engine) RegisterFunction(name string, fn any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("pongo: engine is nil")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("pongo: function name is required")
	}
	if !isCallable(fn) {
		return fmt.Errorf("pongo: function %q is not callable (%T)", trimmed, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	e.functions[trimmed] = struct{}{}
	return nil
}

// RegisterFunctions registers every entry of fns in name order.
func (e *Engine) RegisterFunctions(fns map[string]any) error {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.RegisterFunction(name, fns[name]); err != nil {
			return err
		}
	}
	return nil
}

// Functions lists the names of registered functions, sorted.
func (e *Engine) Functions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.functions))
	for name := range e.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTemplate reports whether any loader resolves name.
func (e *Engine) HasTemplate(name string) bool {
	if e == nil || e.chain == nil {
		return false
	}
	return e.chain.Exists(name)
}

// GlobalContext seeds global data on the template set.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("pongo: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := toContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) getTemplate(name string) (*pongo2.Template, error) {
	var (
		tmpl *pongo2.Template
		err  error
	)
	if e.cache {
		tmpl, err = e.templateSet.FromCache(name)
	} else {
		tmpl, err = e.templateSet.FromFile(name)
	}
	if err == nil {
		return tmpl, nil
	}

	if !e.chain.Exists(name) {
		return nil, &loader.NotFoundError{Name: name}
	}
	e.logger.Debug().Err(err).Str("template", name).Msg("template failed to load")
	return nil, fmt.Errorf("pongo: load template %q: %w", name, err)
}

// scanTemplate returns the call scan of name and the templates it references,
// or nil when strict checking is off.
func (e *Engine) scanTemplate(name string) *templateScan {
	if !e.strict {
		return nil
	}
	key := e.chain.Abs("", name)
	if e.cache {
		e.scansMu.Lock()
		scan, ok := e.scans[key]
		e.scansMu.Unlock()
		if ok {
			return scan
		}
	}

	scan := scanGraph(e.source(key), e.source)
	if e.cache {
		e.scansMu.Lock()
		e.scans[key] = scan
		e.scansMu.Unlock()
	}
	return scan
}

func (e *Engine) source(name string) string {
	r, err := e.chain.Get(name)
	if err != nil {
		return ""
	}
	return readSource(r)
}

func (e *Engine) execute(tmpl *pongo2.Template, scan *templateScan, data any, out []io.Writer) (string, error) {
	viewContext, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("pongo: convert data: %w", err)
	}

	e.mu.RLock()
	if scan != nil {
		if name := scan.undefined(func(name string) bool {
			return e.resolves(name, viewContext)
		}); name != "" {
			e.mu.RUnlock()
			return "", &UndefinedFunctionError{Name: name}
		}
	}

	var scope *raiseScope
	if e.raising {
		scope = &raiseScope{}
		viewContext[FuncThrowError] = scope.throw
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()

	if scope != nil && scope.err != nil {
		return "", scope.err
	}
	if err != nil {
		return "", fmt.Errorf("pongo: execute template: %w", err)
	}

	rendered := buf.String()
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

// resolves reports whether a called name is available at render time. The
// caller holds e.mu.
func (e *Engine) resolves(name string, viewContext pongo2.Context) bool {
	if _, ok := viewContext[name]; ok {
		return true
	}
	if _, ok := e.templateSet.Globals[name]; ok {
		return true
	}
	return e.raising && name == FuncThrowError
}

func isTemplateContent(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return copyContext(v), nil
	case map[string]any:
		return copyContext(v), nil
	default:
		return nil, fmt.Errorf("data must be a map[string]any, got %T", data)
	}
}

func copyContext(in map[string]any) pongo2.Context {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}
