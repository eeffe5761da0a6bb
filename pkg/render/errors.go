package render

import (
	"errors"

	"github.com/goliatone/go-htmlrender/pkg/config"
	"github.com/goliatone/go-htmlrender/pkg/loader"
)

var (
	// ErrMissingConfig reports a required configuration key that is absent.
	ErrMissingConfig = config.ErrMissingKey
	// ErrUnknownLoader reports a configured loader name with no factory.
	ErrUnknownLoader = loader.ErrUnknownLoader
	// ErrTemplateNotFound reports a template no loader could resolve.
	ErrTemplateNotFound = loader.ErrTemplateNotFound
	// ErrRendererNotFound reports a Registry lookup for an unknown name.
	ErrRendererNotFound = errors.New("render: renderer not found")
)

// IsNotFound reports whether err means the template does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
