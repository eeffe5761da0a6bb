package template

import (
	"io"
)

// TemplateRenderer is the seam between the configured HTML renderer and the
// engine that actually parses and executes templates.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	RegisterFunction(name string, fn any) error
	GlobalContext(data any) error
}
