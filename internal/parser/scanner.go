package parser

import (
	"strings"
	"unicode/utf8"
)

// Delimiters are the comment markers recognized by the scanner
type Delimiters struct {
	Start  string // Opens a tagged comment, "/**" by default
	Prefix rune   // Leads each comment line, '*' by default
	End    string // Closes a tagged comment, "*/" by default
}

// DefaultDelimiters returns the C-style doc comment markers
func DefaultDelimiters() Delimiters {
	return Delimiters{Start: "/**", Prefix: '*', End: "*/"}
}

// withDefaults fills every unset marker with its default
func (d Delimiters) withDefaults() Delimiters {
	def := DefaultDelimiters()
	if d.Start == "" {
		d.Start = def.Start
	}
	if d.Prefix == 0 {
		d.Prefix = def.Prefix
	}
	if d.End == "" {
		d.End = def.End
	}
	return d
}

// StripCommentPrefix removes a single leading comment prefix character and at
// most one space after it. Lines without the prefix are returned unchanged so
// comments written without a per-line prefix still work.
func StripCommentPrefix(line string, prefix rune) string {
	trimmed := strings.TrimLeft(line, " \t")
	r, size := utf8.DecodeRuneInString(trimmed)
	if size == 0 || r != prefix {
		return line
	}
	rest := trimmed[size:]
	if strings.HasPrefix(rest, " ") {
		rest = rest[1:]
	}
	return rest
}

// scanState is the position of the scanner relative to tagged comments
type scanState int

const (
	stateIdle    scanState = iota // Outside any comment
	stateComment                  // Inside a comment, no section open
	stateArticle                  // Inside a comment, accumulating a section
)

// fenceState tracks a @CodeBlockStart block
type fenceState int

const (
	fenceNone   fenceState = iota
	fenceHeader            // The comment holding @CodeBlockStart is still open
	fenceBody              // Source lines are copied verbatim until @CodeBlockEnd
)

// scanner is the per-file state machine. A fresh scanner is used for every
// file so no state leaks between files.
type scanner struct {
	delims      Delimiters
	path        string
	lineOf      func(int) int
	state       scanState
	depth       int // Nested comments opened inside the current one
	fence       fenceState
	fenceLang   string
	globalTopic string
	article     articleBuilder
	articles    []Article
}

func newScanner(delims Delimiters, path string, lineOf func(int) int) *scanner {
	if lineOf == nil {
		lineOf = func(n int) int { return n }
	}
	return &scanner{delims: delims, path: path, lineOf: lineOf}
}

// nestable reports whether nested comments can be told apart from the
// closing marker at all
func (s *scanner) nestable() bool {
	return s.delims.Start != s.delims.End
}

// scan runs the state machine over every line of text
func (s *scanner) scan(text string) []Article {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		s.line(strings.TrimSuffix(line, "\r"), i+1)
	}
	return s.articles
}

func (s *scanner) line(raw string, n int) {
	trimmed := strings.TrimSpace(raw)

	if s.fence == fenceBody {
		if s.isCodeBlockEnd(trimmed) {
			s.article.writeLine("```")
			s.finalize(n)
			s.leaveComment()
			return
		}
		s.article.writeLine(raw)
		return
	}

	opening := false
	closing := false

	switch {
	case s.state == stateIdle:
		if !strings.HasPrefix(trimmed, s.delims.Start) {
			return
		}
		s.state = stateComment
		opening = true
		// A comment that also ends on this line is a one-line comment
		rest := strings.TrimPrefix(trimmed, s.delims.Start)
		closing = strings.HasSuffix(rest, s.delims.End)

	case s.nestable() && strings.HasSuffix(trimmed, s.delims.Start):
		s.depth++
		s.appendNested(raw)
		return

	case s.depth > 0:
		if strings.HasSuffix(trimmed, s.delims.End) {
			s.depth--
		}
		s.appendNested(raw)
		return

	default:
		closing = strings.HasSuffix(trimmed, s.delims.End)
	}

	s.classify(s.body(trimmed, raw, opening, closing), n, opening || closing)

	if closing && s.state != stateIdle {
		s.closeComment(n)
	}
}

// body extracts the comment text of a line. Markers are stripped from the
// line that opens or closes the comment.
func (s *scanner) body(trimmed, raw string, opening, closing bool) string {
	if !opening && !closing {
		return StripCommentPrefix(raw, s.delims.Prefix)
	}
	text := trimmed
	if opening {
		text = strings.TrimPrefix(text, s.delims.Start)
	}
	if closing {
		text = strings.TrimSuffix(text, s.delims.End)
	}
	return StripCommentPrefix(strings.TrimSpace(text), s.delims.Prefix)
}

// classify interprets one comment line. edge is set on the lines holding
// the opening or closing marker, whose empty remainder is not content.
func (s *scanner) classify(body string, n int, edge bool) {
	directive := strings.TrimSpace(body)

	if topic, ok := KeywordFileArticle.match(directive); ok {
		s.globalTopic = topic
		return
	}

	if s.globalTopic != "" && s.state == stateComment {
		s.openArticle(s.globalTopic, n)
		s.article.inherited = true
	}

	if topic, ok := KeywordArticle.match(directive); ok {
		if s.state == stateArticle && s.article.hasContent() {
			s.finalize(n)
		}
		s.openArticle(topic, n)
		return
	}

	if _, ok := KeywordIgnore.match(directive); ok {
		s.article.reset()
		s.globalTopic = ""
		s.leaveComment()
		return
	}

	if lang, ok := KeywordCodeBlockStart.match(directive); ok {
		if s.state == stateArticle {
			s.fence = fenceHeader
			s.fenceLang = lang
			s.article.writeLine("```" + lang)
		}
		return
	}

	if _, ok := KeywordCodeBlockEnd.match(directive); ok {
		// Closed inside the comment that opened the block. The rest of the
		// comment belongs to no section.
		if s.fence == fenceHeader {
			s.article.writeLine("```")
			s.finalize(n)
			s.fence = fenceNone
			s.fenceLang = ""
		}
		return
	}

	if s.state == stateArticle && !(edge && directive == "") {
		s.article.writeLine(body)
	}
}

// isCodeBlockEnd reports whether the line is a comment holding only the
// @CodeBlockEnd keyword
func (s *scanner) isCodeBlockEnd(trimmed string) bool {
	if !strings.HasSuffix(trimmed, s.delims.End) {
		return false
	}
	inner := strings.TrimSuffix(trimmed, s.delims.End)
	inner = strings.TrimPrefix(inner, s.delims.Start)
	inner = StripCommentPrefix(strings.TrimSpace(inner), s.delims.Prefix)
	return strings.TrimSpace(inner) == string(KeywordCodeBlockEnd)
}

// appendNested copies a line of a nested comment. Lines starting with a
// marker are kept as written, the prefix is only stripped from the others.
func (s *scanner) appendNested(raw string) {
	if s.state != stateArticle {
		return
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, s.delims.Start) || strings.HasPrefix(trimmed, s.delims.End) {
		s.article.writeLine(trimmed)
		return
	}
	s.article.writeLine(StripCommentPrefix(raw, s.delims.Prefix))
}

func (s *scanner) openArticle(topic string, n int) {
	s.article.topic = topic
	s.article.inherited = false
	s.article.startLine = s.lineOf(n)
	s.state = stateArticle
}

// closeComment handles the end marker of the current comment
func (s *scanner) closeComment(n int) {
	if s.fence == fenceHeader {
		s.fence = fenceBody
		return
	}
	if s.state == stateArticle {
		s.finalize(n)
	}
	s.leaveComment()
}

// finalize pushes the current article. The section ends on the line before n.
// Sections inherited from @FileArticle that stayed empty are dropped.
func (s *scanner) finalize(n int) {
	if !s.article.inherited || s.article.hasContent() {
		s.articles = append(s.articles, s.article.build(s.path, s.lineOf(n-1)))
	}
	s.article.reset()
	s.state = stateComment
}

func (s *scanner) leaveComment() {
	s.state = stateIdle
	s.depth = 0
	s.fence = fenceNone
	s.fenceLang = ""
}
