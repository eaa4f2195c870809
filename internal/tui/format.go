// Package tui provides terminal formatting for CLI output.
package tui

import (
	"fmt"
	"regexp"
	"strings"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Box draws a box around text.
func Box(title, content string) string {
	lines := strings.Split(content, "\n")
	maxLen := visibleLen(title)
	for _, line := range lines {
		if n := visibleLen(line); n > maxLen {
			maxLen = n
		}
	}

	width := maxLen + 2
	top := Cyan + "╭" + strings.Repeat("─", width) + "╮" + Reset
	titleLine := Cyan + "│" + Reset + Bold + " " + title + strings.Repeat(" ", width-visibleLen(title)-1) + Reset + Cyan + "│" + Reset
	separator := Cyan + "├" + strings.Repeat("─", width) + "┤" + Reset
	bottom := Cyan + "╰" + strings.Repeat("─", width) + "╯" + Reset

	result := []string{top, titleLine, separator}
	for _, line := range lines {
		padding := width - visibleLen(line) - 1
		if padding < 0 {
			padding = 0
		}
		result = append(result, Cyan+"│"+Reset+" "+line+strings.Repeat(" ", padding)+Cyan+"│"+Reset)
	}
	result = append(result, bottom)

	return strings.Join(result, "\n")
}

// ScoreBar renders a 1-10 productivity score; nil renders as unscored.
func ScoreBar(label string, score *float64, width int) string {
	if score == nil {
		return label + " " + Dim + "n/a" + Reset
	}
	ratio := *score / 10
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	bar := ScoreColor(*score) + strings.Repeat("█", filled) + Dim + strings.Repeat("░", width-filled) + Reset
	return fmt.Sprintf("%s [%s] %.1f", label, bar, *score)
}

// ScoreColor picks green for focused, yellow for mixed and red for
// distracted scores.
func ScoreColor(score float64) string {
	switch {
	case score >= 7:
		return Green
	case score >= 4:
		return Yellow
	default:
		return Red
	}
}

// StripANSI removes escape codes, for piping output to files.
func StripANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}

func visibleLen(text string) int {
	return len([]rune(StripANSI(text)))
}
