// Package loader resolves a parameter file and its transitive `_includes`
// chain into one merged parameter tree. The include graph is built on the
// dag package and must be acyclic; merge precedence is child-over-parent:
// included files are unified first, in listed order, and the including
// file's own keys are unified last.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/expgrid/internal/config"
	"github.com/vk/expgrid/internal/ctxlog"
	"github.com/vk/expgrid/internal/dag"
	"github.com/vk/expgrid/internal/params"
)

// Result is the outcome of loading one root parameter file.
type Result struct {
	// Params is the fully merged (but not yet interpolated) tree.
	Params *params.Parameters
	// Files lists every file that contributed, in dependency order:
	// deepest ancestors first, the root file last. Watch mode re-loads
	// when any of them changes.
	Files []string
	// Graph is the include graph, keyed by absolute file path.
	Graph *dag.Graph
}

// Loader composes parameter files using a set of format parsers.
type Loader struct {
	parsers map[string]config.Parser
}

// New creates a Loader that dispatches to the given parsers by filename
// extension. Later parsers win on extension conflicts.
func New(parsers ...config.Parser) *Loader {
	byExt := make(map[string]config.Parser)
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			byExt[ext] = p
		}
	}
	return &Loader{parsers: byExt}
}

// Extensions returns the sorted filename extensions the loader accepts.
func (l *Loader) Extensions() []string {
	exts := make([]string, 0, len(l.parsers))
	for ext := range l.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// parserFor picks the parser responsible for a path.
func (l *Loader) parserFor(path string) (config.Parser, error) {
	ext := filepath.Ext(path)
	p, ok := l.parsers[ext]
	if !ok {
		known := make([]string, 0, len(l.parsers))
		for e := range l.parsers {
			known = append(known, e)
		}
		return nil, fmt.Errorf("no parser for %q (extension %q, known: %s)", path, ext, strings.Join(known, ", "))
	}
	return p, nil
}

// Load reads the root file, crawls its include closure, verifies the
// include graph is acyclic, and merges everything into a single tree.
func (l *Loader) Load(ctx context.Context, rootPath string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loading parameter file closure.", "root", abs)

	crawl := &crawler{
		loader:   l,
		graph:    dag.New(),
		files:    make(map[string]*config.File),
		includes: make(map[string][]string),
	}
	if err := crawl.visit(ctx, abs, ""); err != nil {
		return nil, err
	}

	if err := crawl.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("circular _includes chain: %w", err)
	}

	order, err := crawl.graph.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("ordering include graph: %w", err)
	}

	merged := crawl.merge(abs, make(map[string]*params.Parameters))
	logger.Debug("Parameter closure loaded.", "files", len(order), "top_level_keys", merged.Len())

	return &Result{Params: merged, Files: order, Graph: crawl.graph}, nil
}

// crawler walks the include closure, parsing each file exactly once.
type crawler struct {
	loader *Loader
	graph  *dag.Graph
	files  map[string]*config.File
	// includes maps a file to the absolute paths of its includes, in
	// file order.
	includes map[string][]string
}

// visit parses one file and recurses into its includes. includedFrom names
// the including file for error messages; it is empty for the root.
func (c *crawler) visit(ctx context.Context, path, includedFrom string) error {
	if _, seen := c.files[path]; seen {
		return nil
	}

	parser, err := c.loader.parserFor(path)
	if err != nil {
		return annotate(err, includedFrom)
	}
	file, err := parser.Parse(ctx, path)
	if err != nil {
		return annotate(err, includedFrom)
	}

	c.files[path] = file
	c.graph.AddNode(path)

	dir := filepath.Dir(path)
	for _, inc := range file.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		incPath = filepath.Clean(incPath)

		c.includes[path] = append(c.includes[path], incPath)

		if err := c.visit(ctx, incPath, path); err != nil {
			return err
		}
		// The including file depends on its parent.
		if err := c.graph.AddEdge(incPath, path); err != nil {
			return fmt.Errorf("include %q of %s: %w", inc, path, err)
		}
	}
	return nil
}

// annotate attaches the including file to a parse error.
func annotate(err error, includedFrom string) error {
	if includedFrom == "" {
		return err
	}
	return fmt.Errorf("included from %s: %w", includedFrom, err)
}

// merge computes the effective parameter tree for a file: its parents in
// include order, overridden by its own keys. Results are memoized so
// diamond includes are computed once.
func (c *crawler) merge(path string, memo map[string]*params.Parameters) *params.Parameters {
	if cached, ok := memo[path]; ok {
		return cached
	}

	acc := params.Empty()
	for _, incPath := range c.includes[path] {
		acc = acc.Unify(c.merge(incPath, memo))
	}
	acc = acc.Unify(c.files[path].Params)

	memo[path] = acc
	return acc
}
