package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate cuts text to maxWidth terminal cells, ending in "…" when cut.
func Truncate(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= maxWidth {
		return text
	}
	return runewidth.Truncate(text, maxWidth, "…")
}

// PadRight pads text with spaces to width cells.
func PadRight(text string, width int) string {
	if w := runewidth.StringWidth(text); w < width {
		return text + strings.Repeat(" ", width-w)
	}
	return text
}
