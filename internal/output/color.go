package output

import (
	"os"
	"regexp"
	"strings"

	"github.com/tkrenek/fbmask/internal/parser"
	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// ParseColorMode converts a string to a ColorMode, defaulting to auto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(s) {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// hashPlaceholderRe matches the digests the engine leaves behind.
var hashPlaceholderRe = regexp.MustCompile(`<HASH:[0-9a-f]+>`)

// colorizeAction highlights trace actions that indicate trouble.
func colorizeAction(action string) string {
	switch {
	case strings.Contains(action, "FAILED"), strings.Contains(action, "ERROR"):
		return colorBold + colorRed + action + colorReset
	case strings.Contains(action, "ROLLBACK"):
		return colorYellow + action + colorReset
	default:
		return action
	}
}

// colorizeBlock applies color to a rendered trace block: the action token
// by severity, hash placeholders dimmed so the eye can skip them.
func colorizeBlock(rec parser.TraceRecord, block string) string {
	if rec.Action != "" {
		block = strings.Replace(block, rec.Action, colorizeAction(rec.Action), 1)
	}
	return hashPlaceholderRe.ReplaceAllStringFunc(block, func(m string) string {
		return colorGray + m + colorReset
	})
}
