package executor

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	copied []string
}

func (c *fakeClipboard) Copy(text string) error {
	c.copied = append(c.copied, text)
	return nil
}

func TestOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	clip := &fakeClipboard{}
	e := NewExecutor().WithOutput(&out, &out).WithClipboard(clip)

	require.NoError(t, e.Output("src/lib.rs:3", OutputPrint))
	require.NoError(t, e.Output("src/lib.rs:9", OutputCopy))

	assert.Equal(t, "src/lib.rs:3\n", out.String())
	assert.Equal(t, []string{"src/lib.rs:9"}, clip.copied)
}

func TestParseOutputMode(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputMode
		wantErr  bool
	}{
		{input: "", expected: OutputPrint},
		{input: "print", expected: OutputPrint},
		{input: "copy", expected: OutputCopy},
		{input: "exec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			mode, err := ParseOutputMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	if !LookPath("sh") {
		t.Skip("sh not installed")
	}

	out, err := NewExecutor().Run(t.Context(), t.TempDir(), "sh", "-c", "echo '  hello  '")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = NewExecutor().Run(t.Context(), "", "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecuteStreamsOutput(t *testing.T) {
	t.Parallel()

	if !LookPath("sh") {
		t.Skip("sh not installed")
	}

	var stdout, stderr bytes.Buffer
	e := NewExecutor().WithOutput(&stdout, &stderr)

	require.NoError(t, e.Execute(t.Context(), "", "sh", "-c", "echo out; echo err >&2"))
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecuteCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := NewExecutor().Execute(ctx, "", "sh", "-c", "true")
	require.Error(t, err)
}

func TestLookPath(t *testing.T) {
	t.Parallel()

	assert.False(t, LookPath("fundoc-no-such-program"))
	assert.False(t, LookPath(""))
}
