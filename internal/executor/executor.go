package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ============================================================================
// Command Runner Interface
// ============================================================================

// Runner runs external programs
type Runner interface {
	// Run executes name in dir and returns its trimmed stdout
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
	// Execute runs name in dir with output streamed to the runner's writers
	Execute(ctx context.Context, dir, name string, args ...string) error
}

// ============================================================================
// Clipboard Interface
// ============================================================================

// Clipboard defines the interface for clipboard operations
type Clipboard interface {
	Copy(text string) error
}

// systemClipboard implements Clipboard using system commands
type systemClipboard struct {
	fallback io.Writer
}

// Copy copies text to the system clipboard
func (c *systemClipboard) Copy(text string) error {
	cmd := c.findClipboardCommand()
	if cmd == nil {
		// No clipboard tool found, just print
		_, err := fmt.Fprintln(c.fallback, text)
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// findClipboardCommand returns the appropriate clipboard command for the system
func (c *systemClipboard) findClipboardCommand() *exec.Cmd {
	switch {
	case commandExists("wl-copy"):
		return exec.Command("wl-copy")
	case commandExists("xclip"):
		return exec.Command("xclip", "-selection", "clipboard")
	case commandExists("xsel"):
		return exec.Command("xsel", "--clipboard", "--input")
	case commandExists("pbcopy"):
		return exec.Command("pbcopy")
	default:
		return nil
	}
}

// commandExists checks if a command is available in PATH
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// LookPath reports whether a program is installed
func LookPath(name string) bool {
	return commandExists(name)
}

// ============================================================================
// Executor
// ============================================================================

// Executor runs programs with the process environment and hands results to
// the clipboard or an output stream
type Executor struct {
	stdout    io.Writer
	stderr    io.Writer
	clipboard Clipboard
}

// NewExecutor creates an executor writing to the process stdout and stderr
func NewExecutor() *Executor {
	return &Executor{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		clipboard: &systemClipboard{fallback: os.Stdout},
	}
}

// WithClipboard sets a custom clipboard implementation (useful for testing)
func (e *Executor) WithClipboard(c Clipboard) *Executor {
	e.clipboard = c
	return e
}

// WithOutput redirects the output of executed programs
func (e *Executor) WithOutput(stdout, stderr io.Writer) *Executor {
	e.stdout = stdout
	e.stderr = stderr
	return e
}

// ============================================================================
// Command Execution
// ============================================================================

// Run executes a program and returns stdout
func (e *Executor) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Execute runs a program with its output streamed through
func (e *Executor) Execute(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ============================================================================
// Output Handling
// ============================================================================

// OutputMode represents how a selected value should be handled
type OutputMode string

const (
	OutputPrint OutputMode = "print"
	OutputCopy  OutputMode = "copy"
)

// ParseOutputMode validates an output mode name
func ParseOutputMode(s string) (OutputMode, error) {
	switch mode := OutputMode(s); mode {
	case OutputPrint, OutputCopy:
		return mode, nil
	case "":
		return OutputPrint, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want print or copy)", s)
	}
}

// Output handles a value with an explicit mode
func (e *Executor) Output(text string, mode OutputMode) error {
	switch mode {
	case OutputCopy:
		return e.clipboard.Copy(text)
	default: // print
		_, err := fmt.Fprintln(e.stdout, text)
		return err
	}
}
