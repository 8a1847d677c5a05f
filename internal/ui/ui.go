package ui

import (
	"errors"
	"os"
	"os/exec"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/fundoc/internal/executor"
	"github.com/gubarz/fundoc/internal/parser"
)

// ErrNoArticles is returned when there is nothing to browse
var ErrNoArticles = errors.New("no articles found")

// glamourRenderer renders previews with the terminal's light or dark style
func glamourRenderer(width int) (markdownRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

// getTTY returns file handles for TUI input/output
// Uses /dev/tty to bypass shell pipes and command substitution
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	// If stdout is captured (piped or $()), draw on the terminal directly
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr // Last resort fallback
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		// Tell lipgloss to use the TTY for color detection
		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}

	return os.Stdin, os.Stdout, func() {}
}

// Run lets the user pick an article and hands its location to exec. Article
// paths are relative to root.
func Run(articles []parser.Article, root string, exec *executor.Executor, mode executor.OutputMode, initialQuery string) error {
	if len(articles) == 0 {
		return ErrNoArticles
	}

	m := newMainModel(articles, glamourRenderer)
	m.root = root
	if initialQuery != "" {
		m.textInput.SetValue(initialQuery)
		m.filterArticles()
	}

	ttyIn, ttyOut, cleanup := getTTY()
	RefreshStyles() // Refresh after getTTY sets up the renderer
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	finalModel, err := p.Run()
	cleanup()

	if err != nil {
		return err
	}

	result := finalModel.(mainModel)
	if result.selected == nil {
		return nil
	}
	return exec.Output(Location(*result.selected), mode)
}

// openFileInViewer opens the file in $EDITOR or the system default viewer
func openFileInViewer(filePath string) {
	var cmd *exec.Cmd

	if editor := os.Getenv("EDITOR"); editor != "" {
		cmd = exec.Command(editor, filePath)
	} else {
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", filePath)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", filePath)
		default: // linux, freebsd, etc.
			if !executor.LookPath("xdg-open") {
				return
			}
			cmd = exec.Command("xdg-open", filePath)
		}
	}
	_ = cmd.Start()
}
