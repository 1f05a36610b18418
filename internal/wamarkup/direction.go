package wamarkup

import "unicode/utf8"

// Direction is the dominant writing direction of a piece of text.
type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// rtlRanges covers Arabic, Arabic Supplement, Arabic Extended-A and the
// Arabic Presentation Forms blocks.
var rtlRanges = [][2]rune{
	{0x0600, 0x06FF},
	{0x0750, 0x077F},
	{0x08A0, 0x08FF},
	{0xFB50, 0xFDFF},
	{0xFE70, 0xFEFF},
}

// DirectionOf classifies text as RTL when more than 30% of its runes
// fall in the RTL ranges, LTR otherwise.
func DirectionOf(text string) Direction {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return DirectionLTR
	}

	rtl := 0
	for _, r := range text {
		for _, rng := range rtlRanges {
			if r >= rng[0] && r <= rng[1] {
				rtl++
				break
			}
		}
	}

	if float64(rtl)/float64(total) > 0.3 {
		return DirectionRTL
	}
	return DirectionLTR
}
