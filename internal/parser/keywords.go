package parser

import (
	"path/filepath"
	"strings"
)

// Keyword is a directive recognized inside tagged comments. The strings are
// part of the comment format used by annotated codebases and never change.
type Keyword string

const (
	KeywordArticle        Keyword = "@Article"
	KeywordFileArticle    Keyword = "@FileArticle"
	KeywordIgnore         Keyword = "@Ignore"
	KeywordCodeBlockStart Keyword = "@CodeBlockStart"
	KeywordCodeBlockEnd   Keyword = "@CodeBlockEnd"
)

// Pre-filter markers, written as // line comments
const (
	DisableMarker = "fundoc-disable"
	EnableMarker  = "fundoc-enable"
)

// PrerenderedSuffix marks markdown files that are taken verbatim as one article
const PrerenderedSuffix = ".fdoc.md"

// match reports whether line starts with the keyword as a whole word and
// returns the trimmed remainder.
func (k Keyword) match(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, string(k))
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// IsPrerendered reports whether path names a pre-rendered document
func IsPrerendered(path string) bool {
	return strings.HasSuffix(path, PrerenderedSuffix)
}

// PrerenderedTopic derives a topic from a file name by dropping its final
// two dot-separated suffixes ("Getting started.fdoc.md" -> "Getting started")
func PrerenderedTopic(path string) string {
	name := filepath.Base(path)
	for range 2 {
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
	}
	return name
}
