package loader

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Built-in loader names.
const (
	NameFilesystem = "filesystem"
	NameFS         = "fs"
	NameMemory     = "memory"
	NameHTTP       = "http"
)

// NewFilesystem creates a loader over one or more base directories. Every
// directory must exist; multiple directories are searched in order.
func NewFilesystem(args ...any) (pongo2.TemplateLoader, error) {
	dirs, err := stringArgs(NameFilesystem, args)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%s: at least one directory is required", NameFilesystem)
	}

	loaders := make([]pongo2.TemplateLoader, 0, len(dirs))
	for _, dir := range dirs {
		l, err := pongo2.NewLocalFileSystemLoader(dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", NameFilesystem, dir, err)
		}
		loaders = append(loaders, l)
	}
	if len(loaders) == 1 {
		return loaders[0], nil
	}
	return NewChain(loaders...), nil
}

// NewFS creates a loader over an fs.FS. An optional second argument selects a
// sub-directory of the filesystem.
func NewFS(args ...any) (pongo2.TemplateLoader, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("%s: expected fs.FS and optional sub-directory, got %d arguments", NameFS, len(args))
	}
	fsys, ok := args[0].(fs.FS)
	if !ok || fsys == nil {
		return nil, fmt.Errorf("%s: first argument must be fs.FS, got %T", NameFS, args[0])
	}
	if len(args) == 2 {
		dir, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("%s: sub-directory must be a string, got %T", NameFS, args[1])
		}
		if dir = strings.Trim(strings.TrimSpace(dir), "/"); dir != "" && dir != "." {
			sub, err := fs.Sub(fsys, dir)
			if err != nil {
				return nil, fmt.Errorf("%s: sub %q: %w", NameFS, dir, err)
			}
			fsys = sub
		}
	}
	return pongo2.NewFSLoader(fsys), nil
}

func stringArgs(loaderName string, args []any) ([]string, error) {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				out = append(out, trimmed)
			}
		case []string:
			nested := make([]any, 0, len(v))
			for _, s := range v {
				nested = append(nested, s)
			}
			more, err := stringArgs(loaderName, nested)
			if err != nil {
				return nil, err
			}
			out = append(out, more...)
		case []any:
			more, err := stringArgs(loaderName, v)
			if err != nil {
				return nil, err
			}
			out = append(out, more...)
		default:
			return nil, fmt.Errorf("%s: argument %d must be a string, got %T", loaderName, i, arg)
		}
	}
	return out, nil
}
