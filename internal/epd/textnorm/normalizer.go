// Package textnorm turns raw extracted document text into clean logical lines.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// columnGap replaces tabs so that tab-separated cells still split as columns.
const columnGap = "  "

// Normalize splits raw text into trimmed, non-empty lines with control
// characters removed and soft line-wraps merged. Empty input yields nil.
func Normalize(raw string) []string {
	if raw == "" {
		return nil
	}
	text := norm.NFC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(cleanLine(l))
		if l == "" {
			continue
		}
		if n := len(lines); n > 0 && isSoftWrap(lines[n-1], l) {
			lines[n-1] = join(lines[n-1], l)
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// cleanLine drops control and format characters and maps exotic spaces to
// plain ones.
func cleanLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString(columnGap)
		case r == '\u00a0', r == '\u202f', r == '\u2009', r == '\u2007', r == '\u2002', r == '\u2003':
			b.WriteByte(' ')
		case r == utf8.RuneError:
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isSoftWrap reports whether next continues prev as one logical line.
func isSoftWrap(prev, next string) bool {
	if HasColumnGap(prev) || HasColumnGap(next) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	if isTerminal(last) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(next)
	return unicode.IsLower(first)
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ')', ']', '}', '»', '"':
		return true
	}
	return false
}

func join(prev, next string) string {
	if strings.HasSuffix(prev, "-") {
		before, _ := utf8.DecodeLastRuneInString(strings.TrimSuffix(prev, "-"))
		if unicode.IsLetter(before) {
			return strings.TrimSuffix(prev, "-") + next
		}
	}
	return prev + " " + next
}

// HasColumnGap reports whether s contains a run of two or more spaces.
func HasColumnGap(s string) bool {
	return strings.Contains(s, "  ")
}
