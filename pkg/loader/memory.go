package loader

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Memory serves templates from an in-memory name -> source table.
type Memory struct {
	mu        sync.RWMutex
	templates map[string]string
}

var _ pongo2.TemplateLoader = (*Memory)(nil)

// NewMemory accepts any number of map[string]string or map[string]any
// arguments; later maps override earlier ones.
func NewMemory(args ...any) (pongo2.TemplateLoader, error) {
	m := &Memory{templates: make(map[string]string)}
	for i, arg := range args {
		switch v := arg.(type) {
		case map[string]string:
			for name, source := range v {
				m.Set(name, source)
			}
		case map[string]any:
			for name, raw := range v {
				source, ok := raw.(string)
				if !ok {
					return nil, fmt.Errorf("%s: template %q must be a string, got %T", NameMemory, name, raw)
				}
				m.Set(name, source)
			}
		default:
			return nil, fmt.Errorf("%s: argument %d must be a map of templates, got %T", NameMemory, i, arg)
		}
	}
	return m, nil
}

// Set stores or replaces a template source.
func (m *Memory) Set(name, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[cleanName(name)] = source
}

func (m *Memory) Abs(_, name string) string {
	return cleanName(name)
}

func (m *Memory) Get(name string) (io.Reader, error) {
	m.mu.RLock()
	source, ok := m.templates[cleanName(name)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", NameMemory, name, fs.ErrNotExist)
	}
	return strings.NewReader(source), nil
}
