package views

import (
	"strings"

	"github.com/rivo/tview"
)

// displayText prepares backend text for a tview widget: color tags are
// escaped, CRLF line endings normalized, and the codepoints tcell renders
// badly are dropped. Dropping them collapses an emoji with a skin tone or
// joiner sequence to its base glyph, which tcell draws two cells wide.
func displayText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if droppedRune(r) {
			return -1
		}
		return r
	}, s)
	return tview.Escape(s)
}

// cellText is displayText for a single table cell: line breaks and tabs
// become spaces.
func cellText(s string) string {
	return strings.Join(strings.Fields(displayText(s)), " ")
}

func droppedRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	case r == '\r':
		return true
	}
	return false
}
