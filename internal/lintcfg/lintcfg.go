// Package lintcfg parses and validates the linter configuration file that
// accompanies an experiment repository: an INI file with a [flake8]
// section holding `exclude`, `ignore`, and `max-line-length`.
package lintcfg

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-ini/ini"
)

// SectionName is the required INI section.
const SectionName = "flake8"

// knownOptions is the documented option set; anything else is a typo.
var knownOptions = map[string]bool{
	"exclude":         true,
	"ignore":          true,
	"max-line-length": true,
}

// codePattern matches linter warning codes such as E203 or W503.
var codePattern = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

// Config is the validated content of the [flake8] section.
type Config struct {
	// Exclude lists paths the linter should skip.
	Exclude []string
	// Ignore lists suppressed warning codes.
	Ignore []string
	// MaxLineLength is the line-length limit; 0 means not set.
	MaxLineLength int
}

// Load reads and validates a linter configuration file.
func Load(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		// Codes are commonly annotated in place, e.g.
		// "ignore = E203, # whitespace before ':'".
		IgnoreInlineComment: false,
		// setup.cfg values are often written one entry per indented
		// continuation line.
		AllowPythonMultilineValues: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("reading lint config: %w", err)
	}
	return validate(file)
}

// validate checks the section and option set.
func validate(file *ini.File) (*Config, error) {
	section, err := file.GetSection(SectionName)
	if err != nil {
		return nil, fmt.Errorf("lint config: missing [%s] section", SectionName)
	}

	var unknown []string
	for _, key := range section.Keys() {
		if !knownOptions[key.Name()] {
			unknown = append(unknown, key.Name())
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("lint config: unknown option(s) in [%s]: %s", SectionName, strings.Join(unknown, ", "))
	}

	cfg := &Config{}

	if section.HasKey("exclude") {
		cfg.Exclude = splitList(section.Key("exclude").String())
	}

	if section.HasKey("ignore") {
		cfg.Ignore = splitList(section.Key("ignore").String())
		for _, code := range cfg.Ignore {
			if !codePattern.MatchString(code) {
				return nil, fmt.Errorf("lint config: ignore entry %q is not a warning code", code)
			}
		}
	}

	if section.HasKey("max-line-length") {
		n, err := section.Key("max-line-length").Int()
		if err != nil {
			return nil, fmt.Errorf("lint config: max-line-length: %w", err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("lint config: max-line-length must be positive, got %d", n)
		}
		cfg.MaxLineLength = n
	}

	return cfg, nil
}

// splitList splits a comma- or newline-separated option value, dropping
// blanks, surrounding whitespace, and per-line comments that survive
// multi-line value folding.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' }) {
		if i := strings.IndexAny(part, "#;"); i >= 0 {
			part = part[:i]
		}
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
