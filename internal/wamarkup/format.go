package wamarkup

import (
	"regexp"
	"strings"
)

var (
	numberedItemPattern = regexp.MustCompile(`^\s*\d+\.\s`)
	bulletItemPattern   = regexp.MustCompile(`^\s*[\*-]\s`)
	leadingSpacePattern = regexp.MustCompile(`^(\s+)`)
	nestedNumberedSub   = regexp.MustCompile(`(\s*)(\d+)\. `)
	nestedBulletSub     = regexp.MustCompile(`(\s*)[\*-] `)
)

// Format converts conventional markdown into WhatsApp's markup dialect:
// *italic* becomes _italic_, **bold** becomes *bold*, #-headers become
// bold-italic *_header_* lines, and nested list markers are rewritten
// into a shape WhatsApp renders sensibly.
func Format(msg string) string {
	dir := DirectionOf(msg)

	msg = convertItalic(msg)
	msg = convertBold(msg)
	msg = convertHeaders(msg)

	if dir == DirectionLTR || dir == DirectionRTL {
		msg = formatNestedLists(msg)
	}
	return msg
}

// convertItalic rewrites single-asterisk spans *x* as _x_. A span only
// qualifies when the enclosing asterisks are not adjacent to another
// '*' or '_' and its content contains neither marker, so bold runs and
// already-underscored text pass through untouched.
func convertItalic(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] != '*' {
			b.WriteByte(text[i])
			i++
			continue
		}
		if i > 0 && (text[i-1] == '*' || text[i-1] == '_') {
			b.WriteByte('*')
			i++
			continue
		}

		j := i + 1
		for j < len(text) && text[j] != '*' && text[j] != '_' {
			j++
		}
		closed := j > i+1 && j < len(text) && text[j] == '*'
		clearAfter := j+1 >= len(text) || (text[j+1] != '*' && text[j+1] != '_')
		if closed && clearAfter {
			b.WriteByte('_')
			b.WriteString(text[i+1 : j])
			b.WriteByte('_')
			i = j + 1
			continue
		}

		b.WriteByte('*')
		i++
	}
	return b.String()
}

func convertBold(text string) string {
	return strings.ReplaceAll(text, "**", "*")
}

// convertHeaders rewrites "#+ Title" lines as *_Title_* followed by a
// blank line. Runs once for headers directly followed by content and
// once for headers already followed by a blank line, so both layouts
// end up identical.
func convertHeaders(text string) string {
	text = convertHeaderLines(text, false)
	return convertHeaderLines(text, true)
}

func convertHeaderLines(text string, wantBlankAfter bool) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] != '#' {
			b.WriteByte(text[i])
			i++
			continue
		}

		j := i
		for j < len(text) && text[j] == '#' {
			j++
		}
		if j >= len(text) || text[j] != ' ' {
			b.WriteString(text[i:j])
			i = j
			continue
		}

		k := j + 1
		for k < len(text) && text[k] != '\n' {
			k++
		}
		if k >= len(text) {
			b.WriteString(text[i:])
			break
		}

		blankAfter := k+1 < len(text) && text[k+1] == '\n'
		if blankAfter != wantBlankAfter {
			b.WriteString(text[i:j])
			i = j
			continue
		}

		title := strings.TrimLeft(text[j+1:k], "*")
		title = strings.TrimLeft(title, "_")
		title = strings.TrimRight(title, "_")
		title = strings.TrimRight(title, "*")
		b.WriteString("*_")
		b.WriteString(title)
		b.WriteString("_*\n\n")

		i = k + 1
		if wantBlankAfter {
			i = k + 2
		}
	}
	return b.String()
}

// formatNestedLists rewrites list markers only on indented items:
// "  1. x" becomes "  1 - x" and "  - x" / "  * x" become "  -- x".
// Top-level items keep their original markers. Nesting is tracked by
// comparing each line's indentation to the level where nesting began.
func formatNestedLists(text string) string {
	lines := strings.Split(text, "\n")
	processed := make([]string, 0, len(lines))

	inNested := false
	nestedIndent := 0

	for _, line := range lines {
		indent := 0
		if strings.TrimSpace(line) != "" {
			if m := leadingSpacePattern.FindString(line); m != "" {
				indent = len(m)
			}
		}

		numbered := numberedItemPattern.MatchString(line)
		bullet := bulletItemPattern.MatchString(line)

		switch {
		case (numbered || bullet) && indent > 0:
			if !inNested {
				inNested = true
				nestedIndent = indent
			}
			if numbered {
				line = nestedNumberedSub.ReplaceAllString(line, "$1$2 - ")
			} else {
				line = nestedBulletSub.ReplaceAllString(line, "$1-- ")
			}
		case inNested && indent < nestedIndent:
			inNested = false
		}

		processed = append(processed, line)
	}
	return strings.Join(processed, "\n")
}
