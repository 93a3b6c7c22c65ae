package railcom

import (
	"strconv"
	"strings"
	"unicode"
)

// Token is one byte read from user input, together with the digits it came from.
type Token struct {
	// Hex is the upper-cased digit group as typed, one or two characters long.
	Hex   string
	Value byte
}

// ParseHex reads hex bytes from free-form text. Every non-blank line has each
// lowercase "0x" and "0b" removed wherever it occurs, then all whitespace, and
// the rest is read two digits at a time. A trailing single digit forms its own
// byte. A group is read up to its first non-hex character; groups with no
// leading hex digit are skipped.
func ParseHex(text string) []Token {
	var tokens []Token
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		digits := stripLine(line)
		for i := 0; i < len(digits); i += 2 {
			end := min(i+2, len(digits))
			group := digits[i:end]
			v, ok := parseLeadingHex(group)
			if !ok {
				continue
			}
			tokens = append(tokens, Token{Hex: strings.ToUpper(group), Value: v})
		}
	}
	return tokens
}

// stripLine drops the radix markers and whitespace from a line. The markers are
// matched case-sensitively, so "0B" stays a byte.
func stripLine(line string) string {
	line = strings.ReplaceAll(line, "0x", "")
	line = strings.ReplaceAll(line, "0b", "")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}

// parseLeadingHex parses the longest hex prefix of s.
func parseLeadingHex(s string) (byte, bool) {
	n := 0
	for n < len(s) && isHexDigit(s[n]) {
		n++
	}
	if n == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:n], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
