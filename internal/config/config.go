package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/gubarz/fundoc/internal/parser"
)

// FileName is the project configuration file looked up in a project root
const FileName = "fundoc.json"

// DefaultPluginsDir holds preprocessor scripts unless plugins_dir says otherwise
var DefaultPluginsDir = filepath.Join("plugins", "preprocessors")

var (
	// ErrNotFound indicates the directory has no configuration file
	ErrNotFound = errors.New("config file not found")
	// ErrExists indicates WriteDefault would overwrite an existing file
	ErrExists = errors.New("config file already exists")
	// ErrInvalid indicates the configuration cannot drive a documentation run
	ErrInvalid = errors.New("invalid config")
)

// Config holds the configuration of one project
type Config struct {
	ProjectPath        string   `mapstructure:"project_path"`
	FilesPatterns      []string `mapstructure:"files_patterns"`
	DocsFolder         string   `mapstructure:"docs_folder"`
	RepositoryHost     string   `mapstructure:"repository_host"`
	CommentStartString string   `mapstructure:"comment_start_string"`
	CommentPrefix      string   `mapstructure:"comment_prefix"`
	CommentEndString   string   `mapstructure:"comment_end_string"`
	Mdbook             bool     `mapstructure:"mdbook"`
	BookName           string   `mapstructure:"book_name"`
	BookBuildDir       string   `mapstructure:"book_build_dir"`
	Repositories       []string `mapstructure:"repositories"`
	PluginsDir         string   `mapstructure:"plugins_dir"`

	// Dir is the directory the configuration was loaded from
	Dir string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_path", ".")
	v.SetDefault("files_patterns", []string{})
	v.SetDefault("docs_folder", "docs")
	v.SetDefault("repository_host", "")
	v.SetDefault("comment_start_string", "") // Empty markers fall back to /** * */
	v.SetDefault("comment_prefix", "")
	v.SetDefault("comment_end_string", "")
	v.SetDefault("mdbook", false)
	v.SetDefault("book_name", "Documentation")
	v.SetDefault("book_build_dir", "book")
	v.SetDefault("repositories", []string{})
	v.SetDefault("plugins_dir", DefaultPluginsDir)
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix("FUNDOC")
	v.AutomaticEnv()
	return v
}

// Load reads fundoc.json from dir. Values can be overridden with FUNDOC_*
// environment variables, e.g. FUNDOC_DOCS_FOLDER.
func Load(dir string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), dir)
}

// LoadFs is Load on an arbitrary filesystem
func LoadFs(fs afero.Fs, dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	v := newViper(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields a documentation run cannot do without
func (c *Config) Validate() error {
	if len(c.FilesPatterns) == 0 {
		return fmt.Errorf("%w: files_patterns is empty", ErrInvalid)
	}
	if utf8.RuneCountInString(c.CommentPrefix) > 1 {
		return fmt.Errorf("%w: comment_prefix must be a single character, got %q", ErrInvalid, c.CommentPrefix)
	}
	return nil
}

// WriteDefault creates a starter fundoc.json in dir. An existing file is
// never overwritten.
func WriteDefault(dir string) error {
	return WriteDefaultFs(afero.NewOsFs(), dir)
}

// WriteDefaultFs is WriteDefault on an arbitrary filesystem
func WriteDefaultFs(fs afero.Fs, dir string) error {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)
	v.Set("files_patterns", []string{"**/*.go"})

	path := filepath.Join(dir, FileName)
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Delimiters returns the comment markers to scan with. Unset markers are
// filled in by the parser.
func (c *Config) Delimiters() parser.Delimiters {
	prefix, _ := utf8.DecodeRuneInString(c.CommentPrefix)
	if prefix == utf8.RuneError {
		prefix = 0
	}
	return parser.Delimiters{
		Start:  c.CommentStartString,
		Prefix: prefix,
		End:    c.CommentEndString,
	}
}

// ProjectRoot is the directory scanned for sources, relative to root
func (c *Config) ProjectRoot(root string) string {
	return filepath.Join(root, c.ProjectPath)
}

// Patterns returns the file patterns to scan for a project checked out at
// root. Pre-rendered documents are always picked up first.
func (c *Config) Patterns(root string) []string {
	base := c.ProjectRoot(root)

	patterns := make([]string, 0, len(c.FilesPatterns)+1)
	patterns = append(patterns, filepath.Join(base, "**", "*"+parser.PrerenderedSuffix))
	for _, p := range c.FilesPatterns {
		if filepath.IsAbs(p) {
			patterns = append(patterns, p)
			continue
		}
		patterns = append(patterns, filepath.Join(base, p))
	}
	return patterns
}

// DocsPath returns the generated documentation folder
func (c *Config) DocsPath() string {
	return c.resolve(c.DocsFolder)
}

// PluginsPath returns the preprocessor scripts folder
func (c *Config) PluginsPath() string {
	return c.resolve(c.PluginsDir)
}

// resolve expands ~ and anchors relative paths at the config directory
func (c *Config) resolve(path string) string {
	path = expandTilde(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[1:])
	}
	return path
}
