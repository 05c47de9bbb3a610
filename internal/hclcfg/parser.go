// Package hclcfg provides the HCL implementation of the config.Parser
// interface. A parameter file in HCL is a flat set of attributes whose
// values may be object expressions (nested namespaces), evaluated
// statically: parameter files cannot reference variables or functions.
package hclcfg

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expgrid/internal/config"
	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/params"
)

// Parser parses HCL parameter files.
type Parser struct{}

// NewParser creates a new HCL parameter-file parser.
func NewParser() *Parser {
	return &Parser{}
}

// Extensions implements config.Parser.
func (p *Parser) Extensions() []string {
	return []string{".hcl"}
}

// Parse implements config.Parser.
func (p *Parser) Parse(ctx context.Context, path string) (*config.File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing HCL parameter file.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	body, ok := hclFile.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parsing %s: unexpected body type %T", path, hclFile.Body)
	}
	if len(body.Blocks) > 0 {
		block := body.Blocks[0]
		return nil, fmt.Errorf("parsing %s: block %q at %s: parameter files hold only attributes; write nested namespaces as object values",
			path, block.Type, block.DefRange().String())
	}

	var includes []string
	attrs := make(map[string]cty.Value, len(body.Attributes))
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: attribute %q: %w", path, name, diags)
		}

		if name == config.IncludesKey {
			list, err := includesFromValue(val)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			includes = list
			continue
		}
		attrs[name] = val
	}

	fileParams := params.FromMap(attrs)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &config.File{Path: abs, Includes: includes, Params: fileParams}, nil
}

// includesFromValue validates the `_includes` attribute shape.
func includesFromValue(val cty.Value) ([]string, error) {
	if val.IsNull() || !(val.Type().IsTupleType() || val.Type().IsListType()) {
		return nil, fmt.Errorf("%s must be a list of file paths, got %s", config.IncludesKey, val.Type().FriendlyName())
	}

	var includes []string
	for i, elem := range val.AsValueSlice() {
		if elem.IsNull() || elem.Type() != cty.String {
			return nil, fmt.Errorf("%s[%d] must be a string", config.IncludesKey, i)
		}
		includes = append(includes, elem.AsString())
	}
	return includes, nil
}
