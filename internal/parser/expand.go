package parser

import (
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Expander turns a path pattern into concrete file paths. An error yielded
// for one entry does not stop the expansion of the others.
type Expander interface {
	Expand(pattern string) iter.Seq2[string, error]
}

// GlobExpander expands unix style patterns, including "**", against Fs (the
// OS filesystem when nil). Paths are yielded in lexical order.
type GlobExpander struct {
	Fs afero.Fs
}

// Expand implements Expander
func (e GlobExpander) Expand(pattern string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
		if !doublestar.ValidatePattern(pat) {
			yield("", fmt.Errorf("%w: %q: %w", ErrExpandPattern, pattern, doublestar.ErrBadPattern))
			return
		}

		matches, err := doublestar.Glob(e.dirFS(filepath.FromSlash(base)), pat, doublestar.WithFilesOnly())
		if err != nil {
			yield("", fmt.Errorf("%w: %q: %w", ErrExpandPattern, pattern, err))
			return
		}
		slices.Sort(matches)

		for _, match := range matches {
			if !yield(filepath.Join(filepath.FromSlash(base), filepath.FromSlash(match)), nil) {
				return
			}
		}
	}
}

// dirFS exposes the tree below base as an fs.FS
func (e GlobExpander) dirFS(base string) fs.FS {
	fsys := e.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if base != "." {
		fsys = afero.NewBasePathFs(fsys, base)
	}
	return afero.NewIOFS(fsys)
}

// StaticExpander yields a fixed list of paths per pattern. Patterns missing
// from the map yield an error.
type StaticExpander map[string][]string

// Expand implements Expander
func (e StaticExpander) Expand(pattern string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		paths, ok := e[pattern]
		if !ok {
			yield("", fmt.Errorf("%w: %q: no such pattern", ErrExpandPattern, pattern))
			return
		}
		for _, p := range paths {
			if !yield(p, nil) {
				return
			}
		}
	}
}
