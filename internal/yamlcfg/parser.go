// Package yamlcfg provides the YAML implementation of the config.Parser
// interface. YAML is the primary parameter-file format; files are nested
// mappings whose scalar types are inferred by the YAML decoder and
// normalized into cty values.
package yamlcfg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vk/expgrid/internal/config"
	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/params"
)

// Parser parses YAML parameter files.
type Parser struct{}

// NewParser creates a new YAML parameter-file parser.
func NewParser() *Parser {
	return &Parser{}
}

// Extensions implements config.Parser. The bare ".params" extension is the
// conventional name for experiment parameter files and is YAML underneath.
func (p *Parser) Extensions() []string {
	return []string{".yaml", ".yml", ".params"}
}

// Parse implements config.Parser.
func (p *Parser) Parse(ctx context.Context, path string) (*config.File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing YAML parameter file.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	includes, err := extractIncludes(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	delete(doc, config.IncludesKey)

	root, err := goToCty(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	fileParams, err := params.New(root)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &config.File{Path: abs, Includes: includes, Params: fileParams}, nil
}

// extractIncludes pulls the `_includes` directive out of the decoded
// document and validates its shape.
func extractIncludes(doc map[string]any) ([]string, error) {
	rawIncludes, ok := doc[config.IncludesKey]
	if !ok {
		return nil, nil
	}

	list, ok := rawIncludes.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list of file paths, got %T", config.IncludesKey, rawIncludes)
	}

	includes := make([]string, 0, len(list))
	for i, entry := range list {
		s, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string, got %T", config.IncludesKey, i, entry)
		}
		includes = append(includes, s)
	}
	return includes, nil
}
