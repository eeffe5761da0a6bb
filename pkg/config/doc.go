// Package config reads renderer configuration: the `name`, `loaders`,
// `options` and `functions` keys, from a Provider or a YAML/JSON file.
package config
