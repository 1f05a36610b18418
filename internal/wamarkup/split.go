package wamarkup

import (
	"regexp"
	"unicode/utf8"
)

// MaxMessageLength is WhatsApp's per-message character limit.
const MaxMessageLength = 4000

var (
	headerPattern = regexp.MustCompile(`\*_[^*_]+_\*`)
	boldPattern   = regexp.MustCompile(`\*[^*]+\*`)
	paraPattern   = regexp.MustCompile(`\n\n+`)
)

// Split breaks a message body into chunks that each fit within
// MaxMessageLength. Splitting prefers content-aware boundaries and
// degrades tier by tier:
//
//  1. header spans (*_HEADER_*)
//  2. bold spans (*BOLD*)
//  3. paragraphs (blank-line separated, greedily packed)
//  4. fixed-size windows
//
// A message already under the limit is returned unchanged as a single
// chunk. Chunk order follows the original text.
func Split(body string) []string {
	if utf8.RuneCountInString(body) <= MaxMessageLength {
		return []string{body}
	}

	if chunks := splitBySpans(body, headerPattern, MaxMessageLength, splitByBold); len(chunks) > 1 {
		return chunks
	}
	if chunks := splitByBold(body, MaxMessageLength); len(chunks) > 1 {
		return chunks
	}
	return splitByParagraphs(body, MaxMessageLength)
}

func splitByBold(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}
	if len(boldPattern.FindAllStringIndex(text, -1)) <= 1 {
		return splitByParagraphs(text, maxLen)
	}
	return splitBySpans(text, boldPattern, maxLen, func(chunk string, max int) []string {
		return splitByParagraphs(chunk, max)
	})
}

// splitBySpans cuts text at the start of each span the pattern matches.
// Text before the first span becomes its own leading chunk(s). Chunks
// still over the limit are handed to the next tier, never back up.
func splitBySpans(text string, pattern *regexp.Regexp, maxLen int, oversize func(string, int) []string) []string {
	spans := pattern.FindAllStringIndex(text, -1)
	if len(spans) <= 1 {
		return []string{text}
	}

	var chunks []string
	for i, span := range spans {
		if i == 0 && span[0] > 0 {
			prefix := text[:span[0]]
			if utf8.RuneCountInString(prefix) <= maxLen {
				chunks = append(chunks, prefix)
			} else {
				chunks = append(chunks, splitByParagraphs(prefix, maxLen)...)
			}
		}

		end := len(text)
		if i < len(spans)-1 {
			end = spans[i+1][0]
		}
		chunk := text[span[0]:end]

		if utf8.RuneCountInString(chunk) <= maxLen {
			chunks = append(chunks, chunk)
		} else {
			chunks = append(chunks, oversize(chunk, maxLen)...)
		}
	}
	return chunks
}

// splitByParagraphs packs blank-line separated paragraphs greedily into
// chunks, allowing two separator characters between neighbors. A single
// paragraph over the limit falls through to fixed-size windows.
func splitByParagraphs(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	paragraphs := paraPattern.Split(text, -1)
	if len(paragraphs) <= 1 {
		return splitByFixedChunks(text, maxLen)
	}

	var chunks []string
	current := ""
	for _, para := range paragraphs {
		paraLen := utf8.RuneCountInString(para)
		if current != "" && utf8.RuneCountInString(current)+paraLen+2 > maxLen {
			chunks = append(chunks, current)
			current = ""
		}

		if paraLen > maxLen {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, splitByFixedChunks(para, maxLen)...)
			continue
		}

		if current != "" {
			current += "\n\n" + para
		} else {
			current = para
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func splitByFixedChunks(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for i := 0; i < len(runes); i += maxLen {
		end := i + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
