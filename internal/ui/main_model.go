package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/gubarz/fundoc/internal/parser"
)

// ============================================================================
// String Builder Pool - reduces GC pressure from rendering
// ============================================================================

var builderPool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

func getBuilder() *strings.Builder {
	b := builderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

func putBuilder(b *strings.Builder) {
	if b.Cap() < 64*1024 { // Don't pool huge builders
		builderPool.Put(b)
	}
}

// ============================================================================
// Article Item
// ============================================================================

// articleItem wraps an Article with display metadata
type articleItem struct {
	article  parser.Article
	location string
}

// Location formats the source position of an article as path:start-end
func Location(a parser.Article) string {
	return fmt.Sprintf("%s:%d-%d", a.Path, a.StartLine, a.EndLine)
}

func newArticleItem(a parser.Article) articleItem {
	return articleItem{article: a, location: Location(a)}
}

// matchesQuery checks if the item matches all search words
func (item *articleItem) matchesQuery(words []string) bool {
	for _, word := range words {
		if !item.containsWord(word) {
			return false
		}
	}
	return true
}

// containsWord checks if any field contains the word (case-insensitive)
func (item *articleItem) containsWord(word string) bool {
	// Check smaller fields first for fast rejection
	if containsIgnoreCase(item.article.Topic, word) {
		return true
	}
	if containsIgnoreCase(item.location, word) {
		return true
	}
	return containsIgnoreCase(item.article.Content, word)
}

// containsIgnoreCase reports whether s contains the lowercased substr
func containsIgnoreCase(s, substr string) bool {
	if len(substr) > len(s) {
		return false
	}
	return strings.Contains(strings.ToLower(s), substr)
}

// ============================================================================
// Debounce
// ============================================================================

// filterMsg triggers filtering after debounce
type filterMsg struct{}

// debounceFilter returns a command that triggers filtering after a delay
func debounceFilter() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return filterMsg{}
	})
}

// ============================================================================
// Markdown Rendering
// ============================================================================

// markdownRenderer turns markdown into terminal output
type markdownRenderer interface {
	Render(in string) (string, error)
}

// rendererFactory builds a renderer wrapping at width
type rendererFactory func(width int) (markdownRenderer, error)

const (
	collapsedPreviewLines = 8
	maxResults            = 1000
	topicWidth            = 40
	gapWidth              = 4
)

// ============================================================================
// Main Model
// ============================================================================

// mainModel is the Bubble Tea model for browsing articles
type mainModel struct {
	width     int
	height    int
	textInput textinput.Model
	quitting  bool

	articles []articleItem
	filtered []articleItem
	cursor   int
	offset   int // viewport scroll offset
	selected *parser.Article
	expanded bool   // preview takes the whole screen
	root     string // article paths are relative to it

	newRenderer rendererFactory
	renderer    markdownRenderer
	rendered    map[string]string // rendered previews by location
}

// newMainModel creates a new mainModel over the given articles
func newMainModel(articles []parser.Article, newRenderer rendererFactory) mainModel {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	items := make([]articleItem, len(articles))
	for i, a := range articles {
		items[i] = newArticleItem(a)
	}

	m := mainModel{
		articles:    items,
		filtered:    items,
		textInput:   ti,
		newRenderer: newRenderer,
		rendered:    make(map[string]string),
	}
	m.resetRenderer(80)
	return m
}

// resetRenderer recreates the markdown renderer for a new width
func (m *mainModel) resetRenderer(width int) {
	m.rendered = make(map[string]string)
	m.renderer = nil
	if m.newRenderer == nil {
		return
	}
	if r, err := m.newRenderer(width); err == nil {
		m.renderer = r
	}
}

// Init implements tea.Model
func (m mainModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 4
		m.resetRenderer(max(msg.Width-4, 20))
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	case filterMsg:
		m.filterArticles()
		return m, nil
	}

	prevQuery := m.textInput.Value()
	var tiCmd tea.Cmd
	m.textInput, tiCmd = m.textInput.Update(msg)
	cmds = append(cmds, tiCmd)

	// Only trigger debounced filter if query changed
	if m.textInput.Value() != prevQuery {
		cmds = append(cmds, debounceFilter())
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes navigation keys. Keys it does not handle go to the
// filter input.
func (m *mainModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit, true
	case "enter":
		if m.cursor < len(m.filtered) {
			a := m.filtered[m.cursor].article
			m.selected = &a
			return tea.Quit, true
		}
		return nil, true
	case "tab":
		m.expanded = !m.expanded
	case "up", "ctrl+p":
		m.moveCursor(-1)
	case "down", "ctrl+n":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home":
		m.cursor = 0
		m.adjustOffset()
	case "end":
		m.cursor = max(0, len(m.filtered)-1)
		m.adjustOffset()
	case "ctrl+o":
		if m.cursor < len(m.filtered) {
			openFileInViewer(filepath.Join(m.root, m.filtered[m.cursor].article.Path))
		}
	default:
		return nil, false
	}
	return nil, true
}

// moveCursor moves the cursor by delta, clamping to valid range
func (m *mainModel) moveCursor(delta int) {
	m.cursor += delta
	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// adjustOffset ensures cursor is visible within viewport
func (m *mainModel) adjustOffset() {
	viewHeight := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+viewHeight {
		m.offset = m.cursor - viewHeight + 1
	}
	maxOffset := max(0, len(m.filtered)-viewHeight)
	m.offset = clamp(m.offset, 0, maxOffset)
}

// listHeight is the number of list rows that fit under the preview
func (m mainModel) listHeight() int {
	height := max(m.height, 24)
	// preview header, path, body, divider, then divider, info, input
	return max(height-(collapsedPreviewLines+3)-3, 3)
}

// filterArticles filters the list based on the search query
func (m *mainModel) filterArticles() {
	query := strings.TrimSpace(m.textInput.Value())

	if query == "" {
		m.filtered = m.articles
	} else {
		words := strings.Fields(strings.ToLower(query))
		m.filtered = make([]articleItem, 0, min(len(m.articles), maxResults))
		for i := range m.articles {
			if m.articles[i].matchesQuery(words) {
				m.filtered = append(m.filtered, m.articles[i])
				// Limit results to prevent UI lag
				if len(m.filtered) >= maxResults {
					break
				}
			}
		}
	}

	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// ============================================================================
// Rendering
// ============================================================================

// View implements tea.Model
func (m mainModel) View() string {
	if m.quitting {
		return ""
	}

	width := max(m.width, 80)
	height := max(m.height, 24)
	inputLines := 3 // divider + info + input

	var preview, list string
	if m.expanded {
		// topic, location and divider around the body
		preview = m.renderPreview(width, max(height-inputLines-3, 1))
	} else {
		preview = m.renderPreview(width, collapsedPreviewLines)
		list = m.renderList(m.listHeight())
	}

	// preview and list end with a newline, the input block does not
	padding := max(height-strings.Count(preview, "\n")-strings.Count(list, "\n")-inputLines, 0)

	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(preview)
	b.WriteString(list)
	b.WriteString(strings.Repeat("\n", padding))
	b.WriteString(m.renderInput(width))

	return b.String()
}

// renderPreview renders the selected article with at most bodyLines of body
func (m mainModel) renderPreview(width, bodyLines int) string {
	b := getBuilder()
	defer putBuilder(b)
	lines := 0

	if m.cursor < len(m.filtered) {
		item := m.filtered[m.cursor]
		b.WriteString(styles.PreviewHeader.Render(item.article.Topic))
		b.WriteString("\n")
		b.WriteString(styles.PreviewPath.Render(item.location))
		b.WriteString("\n")

		body := truncateLines(m.markdown(item), bodyLines)
		b.WriteString(body)
		b.WriteString("\n")
		lines = strings.Count(body, "\n") + 1
	} else {
		b.WriteString("\n\n")
	}

	// Pad to fixed height
	for lines < bodyLines {
		b.WriteString("\n")
		lines++
	}

	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")

	return b.String()
}

// markdown renders an article body, falling back to the raw text
func (m mainModel) markdown(item articleItem) string {
	if out, ok := m.rendered[item.location]; ok {
		return out
	}
	out := item.article.Content
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(item.article.Content); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	out = styles.Preview.Render(out)
	m.rendered[item.location] = out
	return out
}

// renderList renders the scrollable list of articles
func (m *mainModel) renderList(maxHeight int) string {
	if len(m.filtered) == 0 {
		return ""
	}

	start, end := scrollWindow(m.cursor, len(m.filtered), maxHeight, &m.offset)
	gap := strings.Repeat(" ", gapWidth)

	b := getBuilder()
	defer putBuilder(b)
	for i := start; i < end; i++ {
		b.WriteString(m.renderListItem(m.filtered[i], i == m.cursor, gap))
		b.WriteString("\n")
	}

	return b.String()
}

// renderListItem renders a single list item
func (m mainModel) renderListItem(item articleItem, selected bool, gap string) string {
	tStyle, lStyle := m.getItemStyles(selected)

	topic := truncateString(item.article.Topic, topicWidth)
	topicPadded := padRight(topic, topicWidth)

	gapStr := gap
	if selected {
		gapStr = styles.Selected.Render(gap)
	}

	line := tStyle.Render(topicPadded) + gapStr + lStyle.Render(item.location)
	if selected {
		return styles.Cursor.Render("▶ ") + line
	}
	return "  " + line
}

// getItemStyles returns the appropriate styles based on selection state
func (m mainModel) getItemStyles(selected bool) (topic, location lipgloss.Style) {
	topic, location = styles.Topic, styles.Location
	if selected {
		topic = styles.WithSelection(topic)
		location = styles.WithSelection(location)
	}
	return
}

// renderInput renders the input section at the bottom
func (m mainModel) renderInput(width int) string {
	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(styles.Dim.Render(fmt.Sprintf("  %d/%d", len(m.filtered), len(m.articles))))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Tab preview"))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Ctrl+O open"))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("ESC exit"))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	return b.String()
}

// ============================================================================
// Helpers
// ============================================================================

// clamp restricts v to the range [minV, maxV]
func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// scrollWindow calculates the visible range for a scrollable list
func scrollWindow(cursor, total, height int, offset *int) (start, end int) {
	if cursor < *offset {
		*offset = cursor
	}
	if cursor >= *offset+height {
		*offset = cursor - height + 1
	}
	maxOffset := max(0, total-height)
	*offset = clamp(*offset, 0, maxOffset)

	start = *offset
	end = min(start+height, total)
	return
}

// truncateString shortens s to maxLen terminal cells, ending with an ellipsis
func truncateString(s string, maxLen int) string {
	if maxLen <= 3 || ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "...")
}

// padRight pads s with spaces to width terminal cells
func padRight(s string, width int) string {
	return s + strings.Repeat(" ", max(width-ansi.StringWidth(s), 0))
}

// truncateLines keeps at most maxLines lines of text
func truncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		text = strings.Join(lines[:maxLines], "\n")
	}
	return text
}
