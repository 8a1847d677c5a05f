package plugins

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ScriptExt is the file extension of preprocessor scripts
const ScriptExt = ".star"

// ErrScript indicates a script failed to load or to transform a fragment
var ErrScript = errors.New("preprocessor script")

// Script is a loaded preprocessor. A script named mermaid.star rewrites every
// {{ #mermaid ... }} fragment of a chapter with the value its transform
// function returns for the fragment body.
type Script struct {
	Name      string
	transform starlark.Value
	fragment  *regexp.Regexp
	log       zerolog.Logger
}

// LoadScript compiles src and looks up its transform function
func LoadScript(name, src string, log zerolog.Logger) (*Script, error) {
	log = log.With().Str("script", name).Logger()

	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{},
		thread(name, log),
		name+ScriptExt,
		src,
		starlark.StringDict{
			"log": starlark.NewBuiltin("log", logBuiltin(log)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, name, err)
	}

	transform, ok := globals["transform"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: transform must be defined", ErrScript, name)
	}
	if _, ok := transform.(starlark.Callable); !ok {
		return nil, fmt.Errorf("%w: %s: transform must be a function, got %s", ErrScript, name, transform.Type())
	}

	return &Script{
		Name:      name,
		transform: transform,
		fragment:  regexp.MustCompile(`\{\{ #` + regexp.QuoteMeta(name) + `(\s[\s\S]*?)?\}\}`),
		log:       log,
	}, nil
}

// LoadDir loads every script of dir in name order. A missing directory holds
// no scripts.
func LoadDir(fs afero.Fs, dir string, log zerolog.Logger) ([]*Script, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, dir, err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ScriptExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	scripts := make([]*Script, 0, len(names))
	for _, file := range names {
		src, err := afero.ReadFile(fs, filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrScript, file, err)
		}
		s, err := LoadScript(strings.TrimSuffix(file, ScriptExt), string(src), log)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// Apply replaces every fragment handled by the script in content
func (s *Script) Apply(content string) (string, error) {
	var firstErr error
	out := s.fragment.ReplaceAllStringFunc(content, func(match string) string {
		if firstErr != nil {
			return match
		}
		body := s.fragment.FindStringSubmatch(match)[1]
		replaced, err := s.call(body)
		if err != nil {
			firstErr = err
			return match
		}
		return replaced
	})
	if firstErr != nil {
		return content, firstErr
	}
	return out, nil
}

func (s *Script) call(body string) (string, error) {
	v, err := starlark.Call(thread(s.Name, s.log), s.transform, starlark.Tuple{starlark.String(body)}, nil)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return "", fmt.Errorf("%w: %s: %s", ErrScript, s.Name, evalErr.Backtrace())
		}
		return "", fmt.Errorf("%w: %s: %w", ErrScript, s.Name, err)
	}
	str, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("%w: %s: transform returned %s, want string", ErrScript, s.Name, v.Type())
	}
	return str, nil
}

func thread(name string, log zerolog.Logger) *starlark.Thread {
	return &starlark.Thread{
		Name:  name,
		Print: func(_ *starlark.Thread, msg string) { log.Info().Msg(msg) },
	}
}

func logBuiltin(log zerolog.Logger) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var msg string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg); err != nil {
			return nil, err
		}
		log.Info().Msg(msg)
		return starlark.None, nil
	}
}
