package plugins

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upperScript = `
def transform(text):
    log("transforming")
    return "<pre>" + text.strip().upper() + "</pre>"
`

func TestScriptApply(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "single fragment",
			content:  "before\n{{ #upper\ngraph TD;\n}}\nafter",
			expected: "before\n<pre>GRAPH TD;</pre>\nafter",
		},
		{
			name:     "two fragments are replaced separately",
			content:  "{{ #upper a }} and {{ #upper b }}",
			expected: "<pre>A</pre> and <pre>B</pre>",
		},
		{
			name:     "empty fragment",
			content:  "{{ #upper}}",
			expected: "<pre></pre>",
		},
		{
			name:     "other plugin untouched",
			content:  "{{ #mermaid x }} {{ #uppercase y }}",
			expected: "{{ #mermaid x }} {{ #uppercase y }}",
		},
	}

	s, err := LoadScript("upper", upperScript, zerolog.Nop())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := s.Apply(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestLoadScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "syntax error", src: "def transform(text)\n  return text"},
		{name: "no transform", src: "x = 1"},
		{name: "transform not callable", src: "transform = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadScript("bad", tt.src, zerolog.Nop())
			require.ErrorIs(t, err, ErrScript)
		})
	}
}

func TestScriptApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "runtime error", src: "def transform(text):\n    return text + 1"},
		{name: "non string result", src: "def transform(text):\n    return 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := LoadScript("bad", tt.src, zerolog.Nop())
			require.NoError(t, err)

			content := "keep {{ #bad x }}"
			out, err := s.Apply(content)
			require.ErrorIs(t, err, ErrScript)
			assert.Equal(t, content, out)
		})
	}
}

func TestScriptLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s, err := LoadScript("upper", upperScript+"\nprint(\"loaded\")\n", zerolog.New(&buf))
	require.NoError(t, err)

	_, err = s.Apply("{{ #upper x }}")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"message":"loaded"`)
	assert.Contains(t, buf.String(), `"message":"transforming"`)
	assert.Contains(t, buf.String(), `"script":"upper"`)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/plugins/b.star", []byte(upperScript), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/plugins/a.star", []byte(upperScript), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/plugins/readme.md", []byte("# not a script"), 0o644))

	scripts, err := LoadDir(fs, "/plugins", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a", scripts[0].Name)
	assert.Equal(t, "b", scripts[1].Name)

	scripts, err = LoadDir(fs, "/missing", zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, scripts)
}
