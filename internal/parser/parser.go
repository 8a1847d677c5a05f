package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var (
	// ErrExpandPattern indicates a pattern entry could not be expanded
	ErrExpandPattern = errors.New("expand pattern")
	// ErrReadFile indicates a matched file could not be read
	ErrReadFile = errors.New("read file")
	// ErrDecodeFile indicates a matched file is not valid UTF-8 text
	ErrDecodeFile = errors.New("decode file")
)

// Parser extracts articles from source files. It is configured once per
// project and reused for every file of that project. A Parser is not safe
// for concurrent use; parallel scans need one Parser each.
type Parser struct {
	delims   Delimiters
	expander Expander
	fs       afero.Fs
	root     string
	log      zerolog.Logger
	articles []Article
}

// Option configures a Parser
type Option func(*Parser)

// WithDelimiters sets the comment markers. Unset fields keep their defaults.
func WithDelimiters(d Delimiters) Option {
	return func(p *Parser) {
		p.delims = d.withDefaults()
	}
}

// WithExpander sets the path expansion used by ParsePath
func WithExpander(e Expander) Option {
	return func(p *Parser) {
		p.expander = e
	}
}

// WithFs sets the filesystem files are read from
func WithFs(fs afero.Fs) Option {
	return func(p *Parser) {
		p.fs = fs
	}
}

// WithRoot makes article paths relative to root
func WithRoot(root string) Option {
	return func(p *Parser) {
		p.root = root
	}
}

// WithLogger sets the logger used to report skipped entries
func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) {
		p.log = l
	}
}

// NewParser creates a parser with the default comment markers and the OS
// filesystem. Patterns are globbed on the parser's filesystem unless an
// Expander is set.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		delims: DefaultDelimiters(),
		fs:     afero.NewOsFs(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.expander == nil {
		p.expander = GlobExpander{Fs: p.fs}
	}
	return p
}

// Delimiters returns the comment markers in use
func (p *Parser) Delimiters() Delimiters {
	return p.delims
}

// ParseFile extracts the articles of one file. content is expected to be
// pre-filtered already. Pre-rendered documents become a single article.
func (p *Parser) ParseFile(content, path string) []Article {
	return p.parseFile(content, path, nil)
}

func (p *Parser) parseFile(content, path string, lineOf func(int) int) []Article {
	if IsPrerendered(path) {
		return []Article{{
			Topic:     PrerenderedTopic(path),
			Content:   content,
			Path:      path,
			StartLine: 1,
			EndLine:   1,
		}}
	}
	return newScanner(p.delims, path, lineOf).scan(content)
}

// ParsePath expands every pattern in order, parses each matched file once
// and folds the articles into one result. Expansion and read failures are
// logged, excluded from coverage, and returned joined next to the result.
// ctx is checked between files; a cancelled scan returns what was gathered.
func (p *Parser) ParsePath(ctx context.Context, patterns []string) (ParsingResult, error) {
	p.articles = p.articles[:0]

	var (
		errs         []error
		scanned      int
		withArticles int
		seen         = make(map[string]struct{})
	)

	for _, pattern := range patterns {
		for path, err := range p.expander.Expand(pattern) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs = append(errs, ctxErr)
				return p.result(withArticles, scanned), errors.Join(errs...)
			}

			if err != nil {
				p.log.Warn().Err(err).Str("pattern", pattern).Msg("skipping pattern entry")
				errs = append(errs, err)
				continue
			}

			// Overlapping patterns yield a file once
			key := filepath.Clean(path)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			articles, err := p.parseEntry(path)
			if err != nil {
				p.log.Warn().Err(err).Str("path", path).Msg("skipping file")
				errs = append(errs, err)
				continue
			}

			scanned++
			if len(articles) > 0 {
				withArticles++
			}
			p.articles = append(p.articles, articles...)

			p.log.Debug().Str("path", path).Int("articles", len(articles)).Msg("parsed file")
		}
	}

	return p.result(withArticles, scanned), errors.Join(errs...)
}

func (p *Parser) result(withArticles, scanned int) ParsingResult {
	return ParsingResult{
		Articles: slices.Clone(p.articles),
		Coverage: coverage(withArticles, scanned),
	}
}

// parseEntry reads, pre-filters and parses one matched file
func (p *Parser) parseEntry(path string) ([]Article, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: invalid UTF-8", ErrDecodeFile, path)
	}

	text, shift := removeIgnored(string(data))
	return p.parseFile(text, p.relative(path), shift.original), nil
}

func (p *Parser) relative(path string) string {
	if p.root == "" {
		return path
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
