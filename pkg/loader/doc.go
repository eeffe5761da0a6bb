// Package loader resolves template sources for the pongo2 engine. Loaders are
// created by name through a Registry and combined into a Chain that tries
// each one in order.
package loader
