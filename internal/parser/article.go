package parser

import (
	"math"
	"strings"
)

// Article is one topic-tagged documentation fragment extracted from a file
type Article struct {
	Topic     string // Section name, used to merge fragments into documents
	Content   string // De-commented body, trimmed
	Path      string // Source file the fragment came from
	StartLine int    // First line of the section (1-based, original file)
	EndLine   int    // Last line of the section (1-based, inclusive)
}

// Equal reports whether two articles carry the same topic, content and provenance
func (a Article) Equal(b Article) bool {
	return a.Topic == b.Topic &&
		a.Content == b.Content &&
		a.Path == b.Path &&
		a.StartLine == b.StartLine &&
		a.EndLine == b.EndLine
}

// ParsingResult holds the articles found in a batch of files
type ParsingResult struct {
	Articles []Article // Discovery order: file order, then in-file order
	Coverage float64   // Percentage of scanned files that produced an article
}

// HasCoverage reports whether Coverage is a number. It is NaN when no file
// was scanned.
func (r ParsingResult) HasCoverage() bool {
	return !math.IsNaN(r.Coverage)
}

// coverage returns 100*withArticles/scanned. Zero scanned files yields NaN.
func coverage(withArticles, scanned int) float64 {
	if scanned == 0 {
		return math.NaN()
	}
	return 100 * float64(withArticles) / float64(scanned)
}

// articleBuilder accumulates the article under construction
type articleBuilder struct {
	topic     string
	startLine int
	inherited bool // Opened implicitly from the file-level topic
	content   strings.Builder
}

func (b *articleBuilder) reset() {
	b.topic = ""
	b.startLine = 0
	b.inherited = false
	b.content.Reset()
}

func (b *articleBuilder) hasContent() bool {
	return strings.TrimSpace(b.content.String()) != ""
}

func (b *articleBuilder) writeLine(s string) {
	b.content.WriteString(s)
	b.content.WriteByte('\n')
}

// build finalizes the article. endLine is clamped so that a section opened
// and closed on the same line still satisfies StartLine <= EndLine.
func (b *articleBuilder) build(path string, endLine int) Article {
	if endLine < b.startLine {
		endLine = b.startLine
	}
	return Article{
		Topic:     b.topic,
		Content:   strings.TrimSpace(b.content.String()),
		Path:      path,
		StartLine: b.startLine,
		EndLine:   endLine,
	}
}
