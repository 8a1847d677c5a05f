// Package plugins runs Starlark scripts over mdBook chapters. fundoc is
// registered as an mdBook preprocessor and is invoked with the book on
// stdin.
package plugins

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrInput indicates the preprocessor input is not an mdBook [context, book] pair
var ErrInput = errors.New("invalid preprocessor input")

// Preprocessor applies scripts to every chapter of a book
type Preprocessor struct {
	Scripts []*Script
	Log     zerolog.Logger
}

// Supports reports whether the preprocessor works with a renderer. Scripts
// produce plain markdown, so every renderer is supported.
func (p *Preprocessor) Supports(renderer string) bool {
	return true
}

// Run reads [context, book] from r and writes the processed book to w.
// Fields the preprocessor does not touch are passed through unchanged.
func (p *Preprocessor) Run(r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var input []any
	if err := dec.Decode(&input); err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	if len(input) != 2 {
		return fmt.Errorf("%w: want [context, book], got %d elements", ErrInput, len(input))
	}
	book, ok := input[1].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: book is not an object", ErrInput)
	}

	if err := p.Process(book); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(book); err != nil {
		return fmt.Errorf("encode book: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Process rewrites the chapters of a decoded book in place
func (p *Preprocessor) Process(book map[string]any) error {
	// mdBook 0.4 calls the top level list "sections", later versions "items"
	for _, key := range []string{"sections", "items"} {
		if items, ok := book[key].([]any); ok {
			if err := p.items(items); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Preprocessor) items(items []any) error {
	for _, item := range items {
		wrapper, ok := item.(map[string]any)
		if !ok {
			continue // "Separator"
		}
		chapter, ok := wrapper["Chapter"].(map[string]any)
		if !ok {
			continue // {"PartTitle": ...}
		}
		if err := p.chapter(chapter); err != nil {
			return err
		}
	}
	return nil
}

func (p *Preprocessor) chapter(chapter map[string]any) error {
	if content, ok := chapter["content"].(string); ok {
		for _, s := range p.Scripts {
			out, err := s.Apply(content)
			if err != nil {
				p.Log.Error().Err(err).Any("chapter", chapter["name"]).Msg("transform failed")
				return err
			}
			content = out
		}
		chapter["content"] = content
	}

	if sub, ok := chapter["sub_items"].([]any); ok {
		return p.items(sub)
	}
	return nil
}
