package config

import (
	"context"

	"github.com/vk/expgrid/internal/params"
)

// IncludesKey is the reserved top-level key naming the ordered list of
// parent parameter files whose keys this file inherits and overrides.
const IncludesKey = "_includes"

// File is the parsed, format-agnostic content of a single parameter file.
type File struct {
	// Path is the absolute path the file was read from.
	Path string
	// Includes holds the `_includes` entries in file order, as written
	// (relative to the file's own directory).
	Includes []string
	// Params holds the file's own keys, with the includes directive
	// stripped out.
	Params *params.Parameters
}

// Parser is the interface for a format-specific parameter-file parser.
type Parser interface {
	// Extensions lists the filename suffixes this parser claims,
	// including the leading dot.
	Extensions() []string

	// Parse reads and parses a single file. It must not resolve
	// includes; that is the loader's job.
	Parse(ctx context.Context, path string) (*File, error)
}
