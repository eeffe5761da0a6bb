// Package echoview plugs configured HTML renderers into echo as its
// echo.Renderer.
package echoview

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-htmlrender/pkg/render"
)

// Separator splits "renderer:template" names.
const Separator = render.QualifierSeparator

// RendererQueryParam selects a renderer for Handler requests.
const RendererQueryParam = "renderer"

// View resolves renderers from a registry. Names of the form
// "renderer:template" select a renderer; plain names use the registry
// default.
type View struct {
	registry *render.Registry
}

var _ echo.Renderer = (*View)(nil)

// New builds a View. A non-empty defaultRenderer must be registered and
// becomes the registry default; an empty one keeps the registry's choice.
func New(registry *render.Registry, defaultRenderer string) (*View, error) {
	if registry == nil {
		return nil, errors.New("echoview: registry is required")
	}
	if name := strings.TrimSpace(defaultRenderer); name != "" {
		if err := registry.SetDefault(name); err != nil {
			return nil, fmt.Errorf("echoview: default renderer: %w", err)
		}
	}
	if registry.DefaultName() == "" {
		return nil, errors.New("echoview: registry has no renderers")
	}
	return &View{registry: registry}, nil
}

// Render implements echo.Renderer.
func (v *View) Render(w io.Writer, name string, data any, _ echo.Context) error {
	renderer, templateName, err := v.registry.Resolve(name)
	if err != nil {
		return err
	}

	payload, err := toMap(data)
	if err != nil {
		return err
	}

	html, err := renderer.Render(templateName, payload)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, html)
	return err
}

// Handler serves GET requests whose wildcard path names a template. Query
// parameters become template data; `renderer` picks a registered renderer.
func (v *View) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		templateName := strings.TrimLeft(c.Param("*"), "/")
		if templateName == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "template name is required")
		}

		data := map[string]any{}
		for key, values := range c.QueryParams() {
			if key == RendererQueryParam {
				continue
			}
			if len(values) == 1 {
				data[key] = values[0]
			} else {
				data[key] = values
			}
		}

		name := templateName
		if rendererName := strings.TrimSpace(c.QueryParam(RendererQueryParam)); rendererName != "" {
			if !v.registry.Has(rendererName) {
				return HTTPError(fmt.Errorf("%w %q", render.ErrRendererNotFound, rendererName))
			}
			name = rendererName + Separator + templateName
		}

		if err := c.Render(http.StatusOK, name, data); err != nil {
			return HTTPError(err)
		}
		return nil
	}
}

// HTTPError maps render failures onto HTTP status codes.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case render.IsNotFound(err), errors.Is(err, render.ErrRendererNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}

func toMap(data any) (map[string]any, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return d, nil
	case echo.Map:
		return map[string]any(d), nil
	default:
		return nil, fmt.Errorf("echoview: data must be a map[string]any, got %T", data)
	}
}
