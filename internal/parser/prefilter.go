package parser

import (
	"regexp"
	"slices"
	"strings"
)

var (
	// Markers only count as a line of their own
	disableRegex = regexp.MustCompile(`^[ \t]*//[ \t]*` + regexp.QuoteMeta(DisableMarker) + `[ \t]*\r?$`)
	enableRegex  = regexp.MustCompile(`^[ \t]*//[ \t]*` + regexp.QuoteMeta(EnableMarker) + `[ \t]*\r?$`)
)

// RemoveIgnoredText deletes every line from the first fundoc-disable comment
// to the last fundoc-enable comment that follows it, marker lines included.
// Without an enable marker the text is cut from the disable marker to the
// end. Text without a disable marker is returned unchanged.
func RemoveIgnoredText(text string) string {
	out, _ := removeIgnored(text)
	return out
}

// lineShift maps line numbers of filtered text back to the original text
type lineShift struct {
	after int // last filtered line that keeps its number
	by    int // number of lines removed
}

func (s lineShift) original(line int) int {
	if line > s.after {
		return line + s.by
	}
	return line
}

// removeIgnored is RemoveIgnoredText plus the line mapping of the removal
func removeIgnored(text string) (string, lineShift) {
	lines := strings.Split(text, "\n")
	shift := lineShift{after: len(lines)}

	disable := slices.IndexFunc(lines, disableRegex.MatchString)
	if disable < 0 {
		return text, shift
	}

	enable := -1
	for i := len(lines) - 1; i > disable; i-- {
		if enableRegex.MatchString(lines[i]) {
			enable = i
			break
		}
	}
	if enable < 0 {
		return strings.Join(lines[:disable], "\n"), lineShift{after: disable}
	}

	kept := slices.Concat(lines[:disable], lines[enable+1:])
	// A disable marker left after the last enable has nothing to close it
	if rest := slices.IndexFunc(kept[disable:], disableRegex.MatchString); rest >= 0 {
		kept = kept[:disable+rest]
	}

	return strings.Join(kept, "\n"), lineShift{after: disable, by: enable - disable + 1}
}
