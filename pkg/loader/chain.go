package loader

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// ErrTemplateNotFound is wrapped by every NotFoundError.
var ErrTemplateNotFound = errors.New("template not found")

// NotFoundError reports that no loader in a chain could resolve Name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("loader: template %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrTemplateNotFound
}

// Chain tries an ordered list of loaders until one resolves the template.
// Names are treated as root-relative: each sub-loader maps them onto its
// own root through its Abs method.
type Chain struct {
	loaders []pongo2.TemplateLoader
}

// Ensure Chain implements the pongo2 loader contract.
var _ pongo2.TemplateLoader = (*Chain)(nil)

// NewChain builds a chain from loaders, skipping nil entries.
func NewChain(loaders ...pongo2.TemplateLoader) *Chain {
	c := &Chain{loaders: make([]pongo2.TemplateLoader, 0, len(loaders))}
	for _, l := range loaders {
		if l != nil {
			c.loaders = append(c.loaders, l)
		}
	}
	return c
}

// Len returns the number of sub-loaders.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.loaders)
}

// Abs normalises name to a root-relative path. Template references resolve
// from the loader roots, so base is ignored.
func (c *Chain) Abs(_, name string) string {
	return cleanName(name)
}

// Get returns the source of the first loader that resolves name. Names never
// escape the loader roots: absolute paths and ".." segments are folded back
// under the root before sub-loaders see them.
func (c *Chain) Get(name string) (io.Reader, error) {
	if c != nil {
		relative := cleanName(name)
		if relative == "" {
			return nil, &NotFoundError{Name: name}
		}
		for _, l := range c.loaders {
			r, err := l.Get(l.Abs("", relative))
			if err != nil {
				continue
			}
			return r, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// Exists reports whether any sub-loader resolves name.
func (c *Chain) Exists(name string) bool {
	r, err := c.Get(cleanName(name))
	if err != nil {
		return false
	}
	if closer, ok := r.(io.Closer); ok {
		_ = closer.Close()
	}
	return true
}

// cleanName maps name onto a root-relative slash path.
func cleanName(name string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if trimmed == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+trimmed), "/")
}
