// Package config defines the format-agnostic contract between the include
// resolver and the concrete parameter-file parsers. A Parser turns one file
// of one concrete format (YAML, HCL) into a File: the file's own parameter
// tree plus its ordered `_includes` list. Everything downstream of the
// parsers operates on this model and never sees format-specific syntax.
package config
