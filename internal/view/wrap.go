package view

import (
	"strings"
	"unicode/utf8"
)

// MeasureFunc returns the rendered width of a string in pixels. The actual
// implementation belongs to the rendering layer (font metrics); the wrap
// logic only needs the measurement, which keeps this package free of any
// graphics dependency.
type MeasureFunc func(s string) int

// RuneMeasurer returns a fixed-advance MeasureFunc: every rune is advancePx
// pixels wide. Good enough for the JSON view and for tests; proportional
// fonts need a real measurer from the renderer.
func RuneMeasurer(advancePx int) MeasureFunc {
	return func(s string) int {
		return utf8.RuneCountInString(s) * advancePx
	}
}

// WrapText greedily wraps text into at most maxLines lines of at most
// maxWidthPx pixels each, as measured by measure.
//
// Words never break mid-word: a single word wider than the budget is
// emitted as its own, possibly overflowing, line. When the wrap drops
// content (words left over, or the final line still over budget), the last
// line is shortened rune by rune and suffixed with "..." until it fits or
// only three runes remain.
//
// Non-empty input yields between 1 and maxLines lines; empty input yields
// none. maxLines must be positive.
func WrapText(text string, measure MeasureFunc, maxWidthPx, maxLines int) []string {
	words := strings.Fields(text)
	lines := make([]string, 0, maxLines)
	current := ""

	for _, word := range words {
		test := word
		if current != "" {
			test = current + " " + word
		}
		if measure(test) <= maxWidthPx {
			current = test
			continue
		}
		if current != "" {
			lines = append(lines, current)
			if len(lines) >= maxLines {
				break
			}
			current = word
		} else {
			// Oversized word: its own line.
			lines = append(lines, word)
			if len(lines) >= maxLines {
				break
			}
		}
	}

	if current != "" && len(lines) < maxLines {
		lines = append(lines, current)
	}

	if len(lines) == maxLines && current != "" {
		last := lines[len(lines)-1]
		if measure(last) > maxWidthPx || len(words) > placedWords(lines) {
			runes := []rune(last)
			for measure(string(runes)+"...") > maxWidthPx && len(runes) > 3 {
				runes = runes[:len(runes)-1]
			}
			lines[len(lines)-1] = strings.TrimRight(string(runes), " ") + "..."
		}
	}

	return lines
}

func placedWords(lines []string) int {
	n := 0
	for _, line := range lines {
		n += len(strings.Fields(line))
	}
	return n
}
