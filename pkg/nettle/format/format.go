package format

import (
	"strings"
)

// Segment describes the rendered output of one block.
type Segment struct {
	// Output is what the block rendered to.
	Output string
	// Content marks literal text blocks.
	Content bool
	// Nestable marks loops and conditionals, whose Body holds the raw
	// template text between their tags.
	Nestable bool
	Body     string
}

// AutoFormat joins the outputs of a block collection, tidying the line
// breaks around directives. root selects the trimming applied to a whole
// template rather than to a nested body.
func AutoFormat(segments []Segment, root bool) string {
	outputs := make([]string, len(segments))
	for i, s := range segments {
		outputs[i] = s.Output
	}

	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1], segments[i]
		if prev.Content {
			continue
		}
		if cur.Content {
			if outputs[i-1] == "" || EndsWithLineBreak(outputs[i-1]) {
				outputs[i] = TrimLeadingLineBreak(outputs[i])
			}
			continue
		}
		if prev.Nestable && EndsWithLineBreak(prev.Body) {
			outputs[i-1] = EnsureTrailingLineBreak(outputs[i-1])
		}
	}

	result := strings.Join(outputs, "")
	if root {
		return strings.TrimSpace(result)
	}

	result = TrimLeadingLineBreaks(result)
	if result == "" {
		return result
	}
	return EnsureTrailingLineBreak(result)
}

// Minify strips tabs, four space indentation and line breaks.
func Minify(s string) string {
	replacer := strings.NewReplacer(
		"\t", "",
		"    ", "",
		"\r\n", "",
		"\n", "",
		"\r", "",
	)
	return replacer.Replace(s)
}

// EndsWithLineBreak reports whether s ends with "\n" or "\r".
func EndsWithLineBreak(s string) bool {
	return strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r")
}

// EnsureTrailingLineBreak appends "\n" unless s already ends with a line break.
func EnsureTrailingLineBreak(s string) string {
	if EndsWithLineBreak(s) {
		return s
	}
	return s + "\n"
}

// TrimLeadingLineBreak removes a single leading "\r\n" or "\n".
func TrimLeadingLineBreak(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "\n")
}

// TrimLeadingLineBreaks removes every leading line break.
func TrimLeadingLineBreaks(s string) string {
	return strings.TrimLeft(s, "\r\n")
}
