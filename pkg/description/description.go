// Package description provides section-based manipulation of activity
// descriptions. Sections are identified by header prefixes (typically
// emoji + label, e.g. "💪 Training Load:") so an enricher can update its own
// section on a later pass instead of blindly appending a duplicate.
package description

import (
	"strings"
	"unicode"
)

// startsWithSymbol reports whether s begins with an emoji or other non-ASCII
// symbol. Such lines mark the start of the next section.
func startsWithSymbol(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return false
	}
	first := r[0]
	return first > 127 || unicode.IsSymbol(first) || unicode.In(first, unicode.So)
}

// FindSection locates the section identified by headerPrefix and returns its
// half-open byte range [start, end). A section runs from the first occurrence
// of the header to the first blank line that is immediately followed by a
// symbol-prefixed line, or to the end of the description. Trailing whitespace
// and newlines are excluded from the range.
func FindSection(description, headerPrefix string) (start, end int, found bool) {
	if description == "" || headerPrefix == "" {
		return 0, 0, false
	}

	start = strings.Index(description, headerPrefix)
	if start == -1 {
		return 0, 0, false
	}

	// Scan line by line past the header, looking for the boundary.
	pos := start + len(headerPrefix)
	lines := strings.Split(description[pos:], "\n")
	offset := pos
	for i, line := range lines {
		if strings.TrimSpace(line) == "" && i+1 < len(lines) && startsWithSymbol(strings.TrimSpace(lines[i+1])) {
			end = offset
			return start, trimRange(description, start, end), true
		}
		offset += len(line)
		if i < len(lines)-1 {
			offset++ // newline
		}
	}

	// No boundary: section extends to end of text.
	return start, trimRange(description, start, len(description)), true
}

func trimRange(s string, start, end int) int {
	for end > start && (s[end-1] == '\n' || s[end-1] == ' ') {
		end--
	}
	return end
}

// HasSection reports whether the description contains the given section.
func HasSection(description, headerPrefix string) bool {
	_, _, found := FindSection(description, headerPrefix)
	return found
}

// ReplaceSection rewrites the section with newContent. If the section is
// absent the content is appended after a blank-line separator. Applying the
// same replacement twice yields the same result as applying it once, which is
// what makes re-running an already-applied provider a no-op.
func ReplaceSection(description, headerPrefix, newContent string) string {
	start, end, found := FindSection(description, headerPrefix)
	if !found {
		if description != "" {
			return description + "\n\n" + newContent
		}
		return newContent
	}

	before := strings.TrimRight(description[:start], "\n ")
	after := strings.TrimLeft(description[end:], "\n ")

	var b strings.Builder
	if before != "" {
		b.WriteString(before)
		b.WriteString("\n\n")
	}
	b.WriteString(newContent)
	if after != "" {
		b.WriteString("\n\n")
		b.WriteString(after)
	}
	return b.String()
}

// RemoveSection deletes the section and collapses the surrounding blank lines.
func RemoveSection(description, headerPrefix string) string {
	start, end, found := FindSection(description, headerPrefix)
	if !found {
		return description
	}

	before := strings.TrimRight(description[:start], "\n ")
	after := strings.TrimLeft(description[end:], "\n ")

	if before == "" {
		return after
	}
	if after == "" {
		return before
	}
	return before + "\n\n" + after
}
