// Package generator merges extracted articles into markdown documents, one
// per topic, and writes them with a summary page.
package generator

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/gubarz/fundoc/internal/parser"
)

// ErrWrite indicates a generated file could not be written
var ErrWrite = errors.New("write document")

// Document is the merged content of every article sharing a topic
type Document struct {
	Key     string // Normalized topic, also the file name stem
	Title   string // Topic as first seen
	Content string
}

// FileName returns the markdown file name of the document
func (d Document) FileName() string {
	return d.Key + ".md"
}

// Markdown renders the document page
func (d Document) Markdown() string {
	return "# " + d.Title + "\n" + d.Content
}

// TopicKey normalizes a topic into a file name stem
func TopicKey(topic string) string {
	return strings.ReplaceAll(strings.ToLower(topic), " ", "_")
}

// SourceLink returns the markdown link to the lines an article came from, or
// "" without a repository host
func SourceLink(host string, a parser.Article) string {
	if host == "" {
		return ""
	}
	return fmt.Sprintf("[[~]](%s/%s#L%d-L%d)",
		strings.TrimSuffix(host, "/"), strings.TrimPrefix(a.Path, "./"), a.StartLine, a.EndLine)
}

// Source is a set of articles sharing the repository host their links point to
type Source struct {
	Articles []parser.Article
	Host     string
}

// Merge groups articles by topic key. Articles keep their discovery order
// inside a document; documents are sorted by key.
func Merge(articles []parser.Article, repositoryHost string) []Document {
	return MergeSources(Source{Articles: articles, Host: repositoryHost})
}

// MergeSources is Merge over several projects. Topics shared between sources
// end up in one document, in source order.
func MergeSources(sources ...Source) []Document {
	index := make(map[string]int)
	var docs []Document

	for _, src := range sources {
		for _, a := range src.Articles {
			key := TopicKey(a.Topic)
			i, ok := index[key]
			if !ok {
				i = len(docs)
				index[key] = i
				docs = append(docs, Document{Key: key, Title: a.Topic})
			}
			docs[i].Content += "\n" + a.Content + "\n" + SourceLink(src.Host, a) + "\n"
		}
	}

	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.Key, b.Key)
	})
	return docs
}

// Summary renders the table of contents. docs must be sorted by key.
func Summary(docs []Document) string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "* [%s](./%s)\n", d.Title, d.FileName())
	}
	return b.String()
}

// SummaryFileName is SUMMARY.md for mdBook and README.md otherwise
func SummaryFileName(mdbook bool) string {
	if mdbook {
		return "SUMMARY.md"
	}
	return "README.md"
}

// RecreateDir removes dir with everything in it and creates it empty
func RecreateDir(fs afero.Fs, dir string) error {
	if err := fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrWrite, dir, err)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrWrite, dir, err)
	}
	return nil
}

// Generate replaces the content of dir with the summary and one page per
// document
func Generate(fs afero.Fs, docs []Document, dir string, mdbook bool) error {
	if err := RecreateDir(fs, dir); err != nil {
		return err
	}

	if err := write(fs, filepath.Join(dir, SummaryFileName(mdbook)), Summary(docs)); err != nil {
		return err
	}

	var errs []error
	for _, d := range docs {
		if err := write(fs, filepath.Join(dir, d.FileName()), d.Markdown()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func write(fs afero.Fs, path, content string) error {
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}
