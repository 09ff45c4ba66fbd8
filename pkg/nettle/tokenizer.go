package nettle

import (
	"strings"
)

// defaultEnclosures are the pairs whose contents are never split.
var defaultEnclosures = map[rune]rune{
	'"': '"',
	'(': ')',
	'<': '>',
}

// listEnclosures additionally protect anonymous types and nested bindings,
// which are common inside comma separated lists.
var listEnclosures = map[rune]rune{
	'"': '"',
	'(': ')',
	'<': '>',
	'[': ']',
	'{': '}',
}

// Tokenize splits value on spaces, keeping quoted strings, parenthesised
// groups and <key, value> pairs together.
func Tokenize(value string) []string {
	return TokenizeWith(value, ' ')
}

// TokenizeWith splits value on separator outside of enclosures.
func TokenizeWith(value string, separator rune) []string {
	return tokenize(value, separator, defaultEnclosures, false)
}

// splitList splits a comma separated list such as function parameters.
// Empty entries are kept so that callers can reject them.
func splitList(value string) []string {
	return tokenize(value, ',', listEnclosures, true)
}

func tokenize(value string, separator rune, enclosures map[rune]rune, keepEmpty bool) []string {
	runes := []rune(value)
	tokens := []string{}
	var current strings.Builder
	var stack []rune

	flush := func() {
		token := strings.TrimSpace(current.String())
		if token != "" || keepEmpty {
			tokens = append(tokens, token)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if len(stack) > 0 && c == stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
			current.WriteRune(c)
			continue
		}

		inQuote := len(stack) > 0 && stack[len(stack)-1] == '"'
		if !inQuote {
			if closer, ok := enclosures[c]; ok && opensEnclosure(runes, i, closer, separator) {
				stack = append(stack, closer)
				current.WriteRune(c)
				continue
			}
		}

		if c == separator && len(stack) == 0 {
			flush()
			continue
		}

		current.WriteRune(c)
	}
	flush()

	return tokens
}

// opensEnclosure reports whether the opener at runes[i] should be tracked.
// The closer has to occur later on, otherwise the opener is a literal and
// tracking it would swallow the rest of the input. A '<' only opens a pair
// at the start of a token and when directly followed by a value, so that the
// comparison operators '<' and '<=' are left alone.
func opensEnclosure(runes []rune, i int, closer, separator rune) bool {
	if !containsRune(runes[i+1:], closer) {
		return false
	}
	if runes[i] != '<' {
		return true
	}
	if i+1 >= len(runes) {
		return false
	}
	next := runes[i+1]
	if next == ' ' || next == '=' || next == '\t' {
		return false
	}
	if i > 0 {
		prev := runes[i-1]
		if prev != separator && prev != ' ' && prev != '(' && prev != ',' {
			return false
		}
	}
	return true
}

func containsRune(runes []rune, r rune) bool {
	for _, c := range runes {
		if c == r {
			return true
		}
	}
	return false
}
