package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taggedSource = `/**
 * @Article Usage
 * call it
 */
fn f() {}
`

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestParsePathCoverage(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		paths    []string
		coverage float64
		articles int
	}{
		{
			name:     "all files documented",
			files:    map[string]string{"/p/a.rs": taggedSource, "/p/b.rs": taggedSource},
			paths:    []string{"/p/a.rs", "/p/b.rs"},
			coverage: 100,
			articles: 2,
		},
		{
			name:     "half documented",
			files:    map[string]string{"/p/a.rs": taggedSource, "/p/b.rs": "fn g() {}\n"},
			paths:    []string{"/p/a.rs", "/p/b.rs"},
			coverage: 50,
			articles: 1,
		},
		{
			name:     "none documented",
			files:    map[string]string{"/p/a.rs": "fn g() {}\n"},
			paths:    []string{"/p/a.rs"},
			coverage: 0,
			articles: 0,
		},
		{
			name:     "disabled article does not count",
			files:    map[string]string{"/p/a.rs": "// fundoc-disable\n" + taggedSource, "/p/b.rs": taggedSource},
			paths:    []string{"/p/a.rs", "/p/b.rs"},
			coverage: 50,
			articles: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewParser(
				WithFs(memFs(t, tt.files)),
				WithExpander(StaticExpander{"src": tt.paths}),
			)

			result, err := p.ParsePath(t.Context(), []string{"src"})
			require.NoError(t, err)
			assert.InDelta(t, tt.coverage, result.Coverage, 1e-9)
			assert.True(t, result.HasCoverage())
			assert.Len(t, result.Articles, tt.articles)
		})
	}
}

func TestParsePathNoFiles(t *testing.T) {
	t.Parallel()

	p := NewParser(WithFs(afero.NewMemMapFs()), WithExpander(StaticExpander{"src": nil}))

	result, err := p.ParsePath(t.Context(), []string{"src"})
	require.NoError(t, err)
	assert.Empty(t, result.Articles)
	assert.False(t, result.HasCoverage())
}

func TestParsePathSkipsBadEntries(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{
		"/p/good.rs":   taggedSource,
		"/p/binary.rs": string([]byte{0xff, 0xfe, 0x00, 0x01}),
	})
	p := NewParser(
		WithFs(fs),
		WithExpander(StaticExpander{"src": {"/p/good.rs", "/p/missing.rs", "/p/binary.rs"}}),
	)

	result, err := p.ParsePath(t.Context(), []string{"src", "unknown"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadFile)
	assert.ErrorIs(t, err, ErrDecodeFile)
	assert.ErrorIs(t, err, ErrExpandPattern)

	// Only the readable file counts towards coverage
	assert.InDelta(t, 100.0, result.Coverage, 1e-9)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "Usage", result.Articles[0].Topic)
}

func TestParsePathOrder(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{
		"/p/a.rs": "/**\n * @Article A1\n * x\n * @Article A2\n * y\n */\n",
		"/p/b.rs": "/**\n * @Article B\n * z\n */\n",
		"/p/c.rs": "/**\n * @Article C\n * w\n */\n",
	})
	p := NewParser(
		WithFs(fs),
		WithExpander(StaticExpander{"first": {"/p/b.rs"}, "second": {"/p/a.rs", "/p/c.rs"}}),
	)

	result, err := p.ParsePath(t.Context(), []string{"first", "second"})
	require.NoError(t, err)

	var topics []string
	for _, a := range result.Articles {
		topics = append(topics, a.Topic)
	}
	assert.Equal(t, []string{"B", "A1", "A2", "C"}, topics)
}

func TestParsePathResetsBetweenCalls(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{"/p/a.rs": taggedSource})
	p := NewParser(WithFs(fs), WithExpander(StaticExpander{"src": {"/p/a.rs"}}))

	first, err := p.ParsePath(t.Context(), []string{"src"})
	require.NoError(t, err)
	second, err := p.ParsePath(t.Context(), []string{"src"})
	require.NoError(t, err)

	assert.Len(t, first.Articles, 1)
	assert.Len(t, second.Articles, 1)
}

func TestParsePathOriginalLineNumbers(t *testing.T) {
	t.Parallel()

	source := `// fundoc-disable
/**
 * @Article Hidden
 */
// fundoc-enable
/**
 * @Article Visible
 * text
 */
`
	fs := memFs(t, map[string]string{"/proj/src/lib.rs": source})
	p := NewParser(
		WithFs(fs),
		WithRoot("/proj"),
		WithExpander(StaticExpander{"src": {"/proj/src/lib.rs"}}),
	)

	result, err := p.ParsePath(t.Context(), []string{"src"})
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)

	assert.Equal(t, Article{
		Topic:     "Visible",
		Content:   "text",
		Path:      "src/lib.rs",
		StartLine: 7,
		EndLine:   8,
	}, result.Articles[0])
}

func TestParsePathCancelled(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{"/p/a.rs": taggedSource})
	p := NewParser(WithFs(fs), WithExpander(StaticExpander{"src": {"/p/a.rs"}}))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result, err := p.ParsePath(ctx, []string{"src"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Articles)
	assert.False(t, result.HasCoverage())
}

func TestParsePathGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"a.rs":                 taggedSource,
		"sub/b.rs":             "fn b() {}\n",
		"sub/deep/c.rs":        taggedSource,
		"notes.txt":            taggedSource,
		"docs/Intro.fdoc.md":   "# Intro\n",
		"sub/deep/skip.rs.bak": taggedSource,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	p := NewParser(WithRoot(dir))
	result, err := p.ParsePath(t.Context(), []string{
		filepath.Join(dir, "**", "*.fdoc.md"),
		filepath.Join(dir, "**", "*.rs"),
	})
	require.NoError(t, err)

	var paths []string
	for _, a := range result.Articles {
		paths = append(paths, a.Path)
	}
	assert.Equal(t, []string{"docs/Intro.fdoc.md", "a.rs", "sub/deep/c.rs"}, paths)
	assert.InDelta(t, 75.0, result.Coverage, 1e-9)
	assert.Equal(t, "Intro", result.Articles[0].Topic)
}

func TestGlobExpanderBadPattern(t *testing.T) {
	t.Parallel()

	var errs []error
	for _, err := range (GlobExpander{}).Expand(filepath.Join(t.TempDir(), "[")) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrExpandPattern)
}

func TestCoverageBounds(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, coverage(0, 3), 1e-9)
	assert.InDelta(t, 100.0, coverage(3, 3), 1e-9)
	assert.InDelta(t, 100.0/3, coverage(1, 3), 1e-9)
}

func TestParsePathGlobsParserFs(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{
		"/proj/a.rs":           taggedSource,
		"/proj/sub/b.rs":       "fn b() {}\n",
		"/proj/sub/notes.txt":  taggedSource,
		"/elsewhere/c.rs":      taggedSource,
		"/proj/Guide.fdoc.md":  "Read me.\n",
		"/proj/sub/skip.rs.go": taggedSource,
	})
	p := NewParser(WithFs(fs), WithRoot("/proj"))

	result, err := p.ParsePath(t.Context(), []string{"/proj/**/*.rs"})
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "a.rs", result.Articles[0].Path)
	assert.InDelta(t, 50.0, result.Coverage, 1e-9)
}

func TestParsePathOverlappingPatterns(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{
		"/p/Guide.fdoc.md": "Read me.\n",
		"/p/empty.md":      "nothing\n",
	})
	p := NewParser(WithFs(fs), WithExpander(StaticExpander{
		"prerendered": {"/p/Guide.fdoc.md"},
		"markdown":    {"/p/./Guide.fdoc.md", "/p/empty.md"},
	}))

	result, err := p.ParsePath(t.Context(), []string{"prerendered", "markdown"})
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "Guide", result.Articles[0].Topic)
	assert.InDelta(t, 50.0, result.Coverage, 1e-9)
}
