package agent

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolve implements the pattern semantics shared by LookupPaths and
// Poll: the pattern is first brace-expanded (foo{a,b} -> fooa, foob),
// then each expansion is treated as a file glob. This adopts the
// stricter rule that every sub-expansion must resolve to at least one
// match, or the whole call fails identifying the offending expansion.
func Resolve(pattern string) ([]string, error) {
	expansions, err := braceExpand(pattern)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, expansion := range expansions {
		matches, err := filepath.Glob(expansion)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", expansion, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q: expansion %q matched no files", pattern, expansion)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// braceExpand expands a single, non-nested {a,b,c} group into one
// string per alternative. A pattern with no brace group expands to
// itself.
func braceExpand(pattern string) ([]string, error) {
	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return []string{pattern}, nil
	}
	closeIdx := strings.IndexByte(pattern[open:], '}')
	if closeIdx == -1 {
		return nil, fmt.Errorf("pattern %q: unbalanced brace", pattern)
	}
	closeIdx += open

	prefix := pattern[:open]
	suffix := pattern[closeIdx+1:]
	alternatives := strings.Split(pattern[open+1:closeIdx], ",")

	out := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		out = append(out, prefix+alt+suffix)
	}
	return out, nil
}
