package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gubarz/fundoc/internal/config"
	"github.com/gubarz/fundoc/internal/executor"
	"github.com/gubarz/fundoc/internal/logging"
	"github.com/gubarz/fundoc/internal/ui"
)

var version = "0.1.0"

// errUnsupported makes mdBook skip the preprocessor for a renderer
var errUnsupported = errors.New("renderer not supported")

// logger is set up from --log-level before any command runs
var logger = zerolog.Nop()

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fundoc",
		Short: "Documentation from source comments",
		Long: `Fundoc extracts documentation from source files and merges it into
readable .md files with references to the sources.

Tag comments with @Article <topic> to publish them, @FileArticle to put
the whole file under a topic and @Ignore to skip a comment.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("log-level")
			level, err := logging.ParseLevel(name)
			if err != nil {
				return err
			}
			logger = logging.New(cmd.ErrOrStderr(), level)
			return nil
		},
		RunE: runRoot,
	}

	rootCmd.PersistentFlags().StringP("dir", "d", ".", "Project directory holding fundoc.json")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolP("init", "i", false, "Creates the config file")
	rootCmd.Flags().BoolP("extension", "e", false, "Run as an mdBook preprocessor")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse extracted articles interactively",
		Long: `Parses the project and lets you pick an article with a live preview.

The location of the picked article (path:start-end) is printed or copied.`,
		Args: cobra.NoArgs,
		RunE: runBrowse,
	}
	browseCmd.Flags().StringP("output", "o", "print", "Output mode: print, copy")
	browseCmd.Flags().StringP("query", "q", "", "Initial search query")

	rootCmd.AddCommand(browseCmd)
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")

	if ext, _ := cmd.Flags().GetBool("extension"); ext {
		return runExtension(cmd, dir, args)
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	if initCfg, _ := cmd.Flags().GetBool("init"); initCfg {
		if err := config.WriteDefault(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
		return nil
	}

	// mdbook output goes to stderr next to the logs, stdout carries the summary
	runner := executor.NewExecutor().WithOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	return generateDocs(cmd.Context(), dir, cmd.OutOrStdout(), runner)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	output, _ := cmd.Flags().GetString("output")
	query, _ := cmd.Flags().GetString("query")

	mode, err := executor.ParseOutputMode(output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	result, err := parseProject(cmd.Context(), cfg, dir)
	if err != nil {
		return err
	}

	return ui.Run(result.Articles, dir, executor.NewExecutor(), mode, query)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errUnsupported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
