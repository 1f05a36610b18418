package wamarkup

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSplit_ShortMessageUnchanged verifies a message under the limit is
// returned as a single identical chunk.
func TestSplit_ShortMessageUnchanged(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		strings.Repeat("a", MaxMessageLength),
		"*_Header_*\nsome body\n\nanother paragraph",
	}

	for _, in := range inputs {
		chunks := Split(in)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0] != in {
			t.Errorf("short message was altered")
		}
	}
}

// TestSplit_ChunksWithinLimit verifies no chunk ever exceeds the limit.
func TestSplit_ChunksWithinLimit(t *testing.T) {
	long := strings.Repeat("word ", 3000)
	for _, chunk := range Split(long) {
		if utf8.RuneCountInString(chunk) > MaxMessageLength {
			t.Errorf("chunk of %d runes exceeds limit", utf8.RuneCountInString(chunk))
		}
	}
}

// TestSplit_HeaderBoundaries verifies splitting happens at header spans
// and each header starts its own chunk.
func TestSplit_HeaderBoundaries(t *testing.T) {
	sectionBody := strings.Repeat("text ", 500) // ~2500 chars per section
	msg := "intro paragraph\n\n" +
		"*_First Section_*\n" + sectionBody + "\n\n" +
		"*_Second Section_*\n" + sectionBody

	chunks := Split(msg)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "intro paragraph\n\n" {
		t.Errorf("leading text should be its own chunk, got %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "*_First Section_*") {
		t.Errorf("chunk 1 should start at first header, got %q", chunks[1][:30])
	}
	if !strings.HasPrefix(chunks[2], "*_Second Section_*") {
		t.Errorf("chunk 2 should start at second header, got %q", chunks[2][:30])
	}
}

// TestSplit_BoldBoundaries verifies the bold tier kicks in when fewer
// than two headers exist.
func TestSplit_BoldBoundaries(t *testing.T) {
	sectionBody := strings.Repeat("text ", 500)
	msg := "*First topic* " + sectionBody + "*Second topic* " + sectionBody

	chunks := Split(msg)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "*First topic*") {
		t.Errorf("unexpected first chunk start: %q", chunks[0][:30])
	}
	if !strings.HasPrefix(chunks[1], "*Second topic*") {
		t.Errorf("unexpected second chunk start: %q", chunks[1][:30])
	}
}

// TestSplit_ParagraphAccumulation verifies paragraphs are packed
// greedily and content survives the split.
func TestSplit_ParagraphAccumulation(t *testing.T) {
	para := strings.Repeat("p", 1500)
	msg := para + "\n\n" + para + "\n\n" + para + "\n\n" + para

	chunks := Split(msg)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks of 2 paragraphs each, got %d", len(chunks))
	}

	joined := strings.Join(chunks, "\n\n")
	if joined != msg {
		t.Errorf("rejoined chunks differ from original")
	}
}

// TestSplit_FixedFallback verifies unstructured text falls back to
// fixed windows without losing characters.
func TestSplit_FixedFallback(t *testing.T) {
	msg := strings.Repeat("x", MaxMessageLength*2+100)

	chunks := Split(msg)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != msg {
		t.Errorf("fixed chunks do not reconstruct original")
	}
	if utf8.RuneCountInString(chunks[2]) != 100 {
		t.Errorf("expected tail chunk of 100, got %d", utf8.RuneCountInString(chunks[2]))
	}
}

// TestSplit_RuneAware verifies multi-byte text is measured in runes,
// not bytes.
func TestSplit_RuneAware(t *testing.T) {
	msg := strings.Repeat("س", MaxMessageLength) // Arabic seen, 2 bytes each
	chunks := Split(msg)
	if len(chunks) != 1 {
		t.Fatalf("message of exactly %d runes should not split, got %d chunks", MaxMessageLength, len(chunks))
	}
}

// TestSplit_OversizedHeaderSection verifies a single section larger
// than the limit recurses into lower tiers, never back up.
func TestSplit_OversizedHeaderSection(t *testing.T) {
	big := strings.Repeat("line ", 900) + "\n\n" + strings.Repeat("line ", 900)
	msg := "*_A_*\nsmall\n\n*_B_*\n" + big

	chunks := Split(msg)
	if len(chunks) < 3 {
		t.Fatalf("expected oversized section to split further, got %d chunks", len(chunks))
	}
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > MaxMessageLength {
			t.Errorf("chunk exceeds limit after recursion")
		}
	}
}
