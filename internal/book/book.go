// Package book turns the generated docs folder into an mdBook project and
// builds it.
package book

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/gubarz/fundoc/internal/executor"
)

// ConfigFile is the mdBook configuration file name
const ConfigFile = "book.toml"

// Program is the mdBook executable
const Program = "mdbook"

// PreprocessorCommand is how mdBook invokes fundoc as a preprocessor
const PreprocessorCommand = "fundoc --extension"

var (
	// ErrBuild indicates mdbook failed to build the book
	ErrBuild = errors.New("build book")
	// ErrConfig indicates book.toml could not be written
	ErrConfig = errors.New("write book config")
)

// Config is the subset of book.toml fundoc writes
type Config struct {
	Book         Section                 `toml:"book"`
	Build        Build                   `toml:"build"`
	Preprocessor map[string]Preprocessor `toml:"preprocessor,omitempty"`
}

// Section is the [book] table
type Section struct {
	Title string `toml:"title"`
	Src   string `toml:"src"`
}

// Build is the [build] table
type Build struct {
	BuildDir      string `toml:"build-dir"`
	CreateMissing bool   `toml:"create-missing"`
}

// Preprocessor is one [preprocessor.<name>] table
type Preprocessor struct {
	Command string `toml:"command"`
}

// Options describe the book to build
type Options struct {
	Title      string
	BuildDir   string // Relative to the docs folder
	UsePlugins bool   // Register fundoc as a preprocessor
	Command    string // Preprocessor command line, PreprocessorCommand when empty
}

// NewConfig returns the book.toml content for a docs folder
func NewConfig(opts Options) Config {
	cfg := Config{
		Book:  Section{Title: opts.Title, Src: "."},
		Build: Build{BuildDir: opts.BuildDir, CreateMissing: false},
	}
	if opts.UsePlugins {
		command := opts.Command
		if command == "" {
			command = PreprocessorCommand
		}
		cfg.Preprocessor = map[string]Preprocessor{
			"fundoc": {Command: command},
		}
	}
	return cfg
}

// Builder writes book.toml and runs mdbook
type Builder struct {
	Fs     afero.Fs
	Runner executor.Runner
	Log    zerolog.Logger
}

// WriteConfig writes book.toml into dir
func (b *Builder) WriteConfig(dir string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	path := filepath.Join(dir, ConfigFile)
	if err := afero.WriteFile(b.Fs, path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	return nil
}

// Build writes the configuration for dir and builds the book in it
func (b *Builder) Build(ctx context.Context, dir string, opts Options) error {
	if err := b.WriteConfig(dir, NewConfig(opts)); err != nil {
		return err
	}

	version, err := b.Runner.Run(ctx, "", Program, "--version")
	if err != nil {
		return fmt.Errorf("%w: %s is not usable: %w", ErrBuild, Program, err)
	}

	b.Log.Info().Str("dir", dir).Str("mdbook", version).Bool("plugins", opts.UsePlugins).Msg("building book")
	if err := b.Runner.Execute(ctx, "", Program, "build", dir); err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}
	return nil
}
