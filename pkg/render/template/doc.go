// Package template defines the engine-agnostic contract used by the HTML
// renderer. The pongo2-backed implementation lives in the pongo sub-package.
package template
