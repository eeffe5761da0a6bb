package render

// HTMLRenderer renders a named template with a data mapping into HTML. Name
// identifies the renderer in a Registry.
type HTMLRenderer interface {
	Name() string
	Render(template string, data map[string]any) (string, error)
}
