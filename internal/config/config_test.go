package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/fundoc/internal/parser"
)

func writeConfig(t *testing.T, fs afero.Fs, dir, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoadFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/proj", `{
  "project_path": "src",
  "files_patterns": ["**/*.rs", "**/*.go"],
  "repository_host": "https://github.com/org/proj/blob/master",
  "mdbook": true,
  "repositories": ["https://github.com/org/other.git"]
}`)

	cfg, err := LoadFs(fs, "/proj")
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.ProjectPath)
	assert.Equal(t, []string{"**/*.rs", "**/*.go"}, cfg.FilesPatterns)
	assert.Equal(t, "https://github.com/org/proj/blob/master", cfg.RepositoryHost)
	assert.True(t, cfg.Mdbook)
	assert.Equal(t, []string{"https://github.com/org/other.git"}, cfg.Repositories)
	assert.Equal(t, "/proj", cfg.Dir)

	// Defaults
	assert.Equal(t, "docs", cfg.DocsFolder)
	assert.Equal(t, "book", cfg.BookBuildDir)
	assert.Equal(t, "Documentation", cfg.BookName)
	assert.Equal(t, filepath.Join("plugins", "preprocessors"), cfg.PluginsDir)
	assert.Equal(t, filepath.Join("/proj", "docs"), cfg.DocsPath())
}

func TestLoadFsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "missing file", wantErr: ErrNotFound},
		{name: "no patterns", content: `{"project_path": "."}`, wantErr: ErrInvalid},
		{name: "long prefix", content: `{"files_patterns": ["*"], "comment_prefix": "//"}`, wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			if tt.content != "" {
				writeConfig(t, fs, "/proj", tt.content)
			}

			_, err := LoadFs(fs, "/proj")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFsMalformed(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/proj", `{"files_patterns": [`)

	_, err := LoadFs(fs, "/proj")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FUNDOC_DOCS_FOLDER", "generated")

	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/proj", `{"files_patterns": ["*.go"], "docs_folder": "docs"}`)

	cfg, err := LoadFs(fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, "generated", cfg.DocsFolder)
}

func TestWriteDefaultFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj", 0o755))
	require.NoError(t, WriteDefaultFs(fs, "/proj"))

	cfg, err := LoadFs(fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.ProjectPath)
	assert.Equal(t, []string{"**/*.go"}, cfg.FilesPatterns)
	assert.False(t, cfg.Mdbook)

	err = WriteDefaultFs(fs, "/proj")
	require.ErrorIs(t, err, ErrExists)
}

func TestDelimiters(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected parser.Delimiters
	}{
		{
			name:     "unset",
			cfg:      Config{},
			expected: parser.Delimiters{},
		},
		{
			name:     "python",
			cfg:      Config{CommentStartString: `"""`, CommentEndString: `"""`},
			expected: parser.Delimiters{Start: `"""`, End: `"""`},
		},
		{
			name:     "hash",
			cfg:      Config{CommentStartString: "#--", CommentPrefix: "#", CommentEndString: "#--"},
			expected: parser.Delimiters{Start: "#--", Prefix: '#', End: "#--"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.Delimiters())
		})
	}
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	cfg := Config{ProjectPath: "src", FilesPatterns: []string{"**/*.rs", "/abs/*.go"}}

	assert.Equal(t, []string{
		filepath.Join("repo", "src", "**", "*.fdoc.md"),
		filepath.Join("repo", "src", "**", "*.rs"),
		"/abs/*.go",
	}, cfg.Patterns("repo"))
}
