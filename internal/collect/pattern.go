package collect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

type Category string

const (
	System   Category = "system"
	Browser  Category = "browser"
	Office   Category = "office"
	Artifact Category = "artifact"
)

// Categories lists all categories in collection order.
func Categories() []Category {
	return []Category{System, Browser, Office, Artifact}
}

// Pattern is an absolute filesystem glob and the kind of resource it
// selects. Supported syntax: '*' and '?' within one path element, '**'
// across elements, character classes and {a,b} alternatives.
type Pattern struct {
	Glob     string
	Category Category
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s:%s", p.Category, p.Glob)
}

// Patterns builds patterns of one category.
func Patterns(category Category, globs ...string) []Pattern {
	patterns := make([]Pattern, 0, len(globs))
	for _, g := range globs {
		patterns = append(patterns, Pattern{Glob: g, Category: category})
	}
	return patterns
}

// An InvalidPatternError is a pattern that can never match, as opposed to
// one that matches nothing on this system.
type InvalidPatternError struct {
	Glob string
	Err  error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Glob, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

var errNotAbsolute = errors.New("not an absolute path")

const metaChars = "*?[{"

func hasMeta(s string) bool {
	return strings.ContainsAny(s, metaChars)
}

// resolve returns the absolute paths, as seen below sourceRoot, of all
// entries matching the pattern. A directory match is returned as a whole,
// entries below it are not matched separately. A pattern whose static
// prefix does not exist resolves to nothing.
func resolve(sourceRoot string, p Pattern) ([]string, error) {
	if !path.IsAbs(p.Glob) {
		return nil, &InvalidPatternError{Glob: p.Glob, Err: errNotAbsolute}
	}
	clean := path.Clean(p.Glob)

	if !hasMeta(clean) {
		if _, err := os.Lstat(hostPath(sourceRoot, clean)); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []string{clean}, nil
	}

	g, err := glob.Compile(clean, '/')
	if err != nil {
		return nil, &InvalidPatternError{Glob: p.Glob, Err: err}
	}

	elements := strings.Split(clean, "/")[1:]
	var static []string
	for _, e := range elements {
		if hasMeta(e) {
			break
		}
		static = append(static, e)
	}
	base := "/" + strings.Join(static, "/")

	maxDepth := len(elements)
	if strings.Contains(clean, "**") {
		maxDepth = -1
	}

	var matches []string
	walkRoot := hostPath(sourceRoot, base)
	err = filepath.WalkDir(walkRoot, func(hp string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable or missing entries simply do not match
			return nil
		}
		rel, err := filepath.Rel(walkRoot, hp)
		if err != nil {
			return err
		}
		abs := path.Join(base, filepath.ToSlash(rel))

		depth := 0
		if abs != "/" {
			depth = strings.Count(abs, "/")
		}
		if maxDepth >= 0 && depth > maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if g.Match(abs) {
			matches = append(matches, abs)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && maxDepth >= 0 && depth == maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// hostPath maps an absolute path of the collected system to the path it
// has on the host, below sourceRoot.
func hostPath(sourceRoot, abs string) string {
	if sourceRoot == "" || sourceRoot == "/" {
		return filepath.FromSlash(abs)
	}
	return filepath.Join(sourceRoot, filepath.FromSlash(abs))
}
