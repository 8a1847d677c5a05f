package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gubarz/fundoc/internal/book"
	"github.com/gubarz/fundoc/internal/config"
	"github.com/gubarz/fundoc/internal/executor"
	"github.com/gubarz/fundoc/internal/generator"
	"github.com/gubarz/fundoc/internal/parser"
	"github.com/gubarz/fundoc/internal/plugins"
	"github.com/gubarz/fundoc/internal/repos"
)

var doneStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("%w (create one with fundoc --init)", err)
	}
	return cfg, err
}

// parseProject extracts the articles of a project checked out at root. File
// errors are logged and skipped; only cancellation stops the run.
func parseProject(ctx context.Context, cfg *config.Config, root string) (parser.ParsingResult, error) {
	p := parser.NewParser(
		parser.WithDelimiters(cfg.Delimiters()),
		parser.WithRoot(root),
		parser.WithLogger(logger.With().Str("project", root).Logger()),
	)

	result, err := p.ParsePath(ctx, cfg.Patterns(root))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if err != nil {
		logger.Warn().Err(err).Str("project", root).Msg("some files were skipped")
	}
	return result, nil
}

func printCoverage(w io.Writer, name string, result parser.ParsingResult) {
	if !result.HasCoverage() {
		fmt.Fprintf(w, "%s %s: no files matched\n", doneStyle.Render("Documentation coverage:"), name)
		return
	}
	fmt.Fprintf(w, "%s %s %.2f%%\n", doneStyle.Render("Documentation coverage:"), name, result.Coverage)
}

// generateDocs runs a whole documentation build for the project in dir
func generateDocs(ctx context.Context, dir string, out io.Writer, runner executor.Runner) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	result, err := parseProject(ctx, cfg, dir)
	if err != nil {
		return err
	}
	printCoverage(out, dir, result)
	sources := []generator.Source{{Articles: result.Articles, Host: cfg.RepositoryHost}}

	if len(cfg.Repositories) > 0 {
		m := repos.NewManager(logger)
		m.Root = filepath.Join(dir, repos.TmpDir)
		defer func() {
			if err := m.Cleanup(); err != nil {
				logger.Warn().Err(err).Msg("failed to remove cloned repositories")
			}
		}()

		projects, err := m.CloneAll(ctx, cfg.Repositories)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn().Err(err).Msg("some repositories were skipped")
		}

		for _, project := range projects {
			result, err := parseProject(ctx, project.Config, project.Path)
			if err != nil {
				return err
			}
			printCoverage(out, project.URL, result)
			sources = append(sources, generator.Source{Articles: result.Articles, Host: project.Config.RepositoryHost})
		}
	}

	fs := afero.NewOsFs()
	docs := generator.MergeSources(sources...)
	docsDir := cfg.DocsPath()
	if err := generator.Generate(fs, docs, docsDir, cfg.Mdbook); err != nil {
		return err
	}
	logger.Info().Int("documents", len(docs)).Str("dir", docsDir).Msg("documentation generated")

	if cfg.Mdbook {
		if err := buildBook(ctx, fs, cfg, runner); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, doneStyle.Render("Done!"))
	return nil
}

func buildBook(ctx context.Context, fs afero.Fs, cfg *config.Config, runner executor.Runner) error {
	usePlugins, err := afero.DirExists(fs, cfg.PluginsPath())
	if err != nil {
		return err
	}

	// mdBook runs preprocessors from the book root, point them back at the config
	configDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return err
	}

	b := &book.Builder{Fs: fs, Runner: runner, Log: logger}
	return b.Build(ctx, cfg.DocsPath(), book.Options{
		Title:      cfg.BookName,
		BuildDir:   cfg.BookBuildDir,
		UsePlugins: usePlugins,
		Command:    fmt.Sprintf("%s --dir %q", book.PreprocessorCommand, configDir),
	})
}

// runExtension speaks the mdBook preprocessor protocol: "supports <renderer>"
// answers through the exit code, otherwise the book is read from stdin.
func runExtension(cmd *cobra.Command, dir string, args []string) error {
	pre := &plugins.Preprocessor{Log: logger}

	if len(args) > 0 {
		if args[0] != "supports" || len(args) != 2 {
			return fmt.Errorf("unexpected arguments: %v", args)
		}
		if !pre.Supports(args[1]) {
			return errUnsupported
		}
		return nil
	}

	pluginsDir := filepath.Join(dir, config.DefaultPluginsDir)
	cfg, err := config.Load(dir)
	switch {
	case err == nil:
		pluginsDir = cfg.PluginsPath()
	case !errors.Is(err, config.ErrNotFound):
		return err
	}

	scripts, err := plugins.LoadDir(afero.NewOsFs(), pluginsDir, logger)
	if err != nil {
		return err
	}
	pre.Scripts = scripts
	return pre.Run(cmd.InOrStdin(), cmd.OutOrStdout())
}
