package nettle

import (
	"fmt"
	"strings"
)

const (
	openDelimiter  = "{{"
	closeDelimiter = "}}"
)

// scanState is an immutable cursor over the text being blockified. offset is
// the absolute position of source[0] in the template, so nested bodies keep
// reporting positions relative to the whole template.
type scanState struct {
	source string
	offset int
	pos    int
}

func (s scanState) remaining() string {
	return s.source[s.pos:]
}

func (s scanState) advance(n int) scanState {
	s.pos += n
	return s
}

func (s scanState) position() int {
	return s.offset + s.pos
}

func (s scanState) done() bool {
	return s.pos >= len(s.source)
}

// blockParser turns one kind of directive into a CodeBlock. Parse receives
// the state positioned at the start of signature and returns the state
// positioned after everything the block consumed.
type blockParser interface {
	Matches(signatureBody string) bool
	Parse(b *Blockifier, state scanState, signature string) (CodeBlock, scanState, error)
}

// Blockifier splits template text into content and directive blocks.
type Blockifier struct {
	parsers []blockParser
}

// NewBlockifier creates a blockifier with the standard parsers in priority order.
func NewBlockifier() *Blockifier {
	return &Blockifier{
		parsers: []blockParser{
			commentParser{},
			modelBindingParser{},
			conditionalBindingParser{},
			functionCallParser{},
			variableDeclarationParser{},
			variableReassignmentParser{},
			variableIncrementerParser{},
			variableDecrementerParser{},
			flagParser{},
			forEachParser{},
			whileParser{},
			ifParser{},
			partialParser{},
			anonymousTypeParser{},
			keyValuePairParser{},
		},
	}
}

// Blockify parses text into a sequence of code blocks.
func (b *Blockifier) Blockify(text string) ([]CodeBlock, error) {
	return b.blockifyAt(text, 0)
}

func (b *Blockifier) blockifyAt(text string, offset int) ([]CodeBlock, error) {
	blocks := []CodeBlock{}
	state := scanState{source: text, offset: offset}

	for !state.done() {
		block, next, err := b.nextBlock(state)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
		state = next
	}

	return blocks, nil
}

func (b *Blockifier) nextBlock(state scanState) (CodeBlock, scanState, error) {
	remaining := state.remaining()
	idx := strings.Index(remaining, openDelimiter)

	if idx == -1 {
		block := &ContentBlock{BlockInfo: newBlockInfo(remaining, state.position())}
		return block, state.advance(len(remaining)), nil
	}
	if idx > 0 {
		content := remaining[:idx]
		block := &ContentBlock{BlockInfo: newBlockInfo(content, state.position())}
		return block, state.advance(idx), nil
	}

	signature, ok := extractSignature(remaining)
	if !ok {
		return nil, state, NewParseError("unbalanced tags, missing '}}'", truncate(remaining, 40), state.position())
	}

	body := signatureBody(signature)
	if err := validateSignatureBody(body); err != nil {
		return nil, state, NewParseError(err.Error(), signature, state.position())
	}

	for _, parser := range b.parsers {
		if parser.Matches(body) {
			return parser.Parse(b, state, signature)
		}
	}

	return nil, state, NewParseError("unrecognised code block", signature, state.position())
}

// extractSignature returns the directive at the start of text, balancing
// nested {{ }} pairs: it ends at the first point where every opened pair has
// been closed.
func extractSignature(text string) (string, bool) {
	opened, closed := 0, 0
	for i := 0; i < len(text)-1; {
		switch {
		case text[i] == '{' && text[i+1] == '{':
			opened++
			i += 2
		case text[i] == '}' && text[i+1] == '}':
			closed++
			i += 2
			if opened == closed {
				return text[:i], true
			}
		default:
			i++
		}
	}
	return "", false
}

func signatureBody(signature string) string {
	return signature[len(openDelimiter) : len(signature)-len(closeDelimiter)]
}

func validateSignatureBody(body string) error {
	switch {
	case body == "":
		return fmt.Errorf("code block is empty")
	case strings.HasPrefix(body, " "):
		return fmt.Errorf("code block cannot start with a space")
	case strings.HasPrefix(body, "}"):
		return fmt.Errorf("code block cannot start with '}'")
	case strings.HasSuffix(body, "{"):
		return fmt.Errorf("code block cannot end with '{'")
	}
	return nil
}

// extractNestedBody reads the body of a nestable block, state being
// positioned right after the opening signature. Nested blocks of the same tag
// are counted so that only the matching closing tag ends the body. A
// partition tag (else if / else) at the top nesting level ends the current
// body without consuming it; closed reports whether the closing tag was
// reached and consumed instead.
func extractNestedBody(state scanState, tagName string, partitions []string, blockStart int) (body string, closed bool, next scanState, err error) {
	openTag := openDelimiter + tagName + " "
	closeTag := openDelimiter + "/" + tagName + closeDelimiter
	remaining := state.remaining()
	opened, closedCount := 1, 0

	for i := 0; i < len(remaining); {
		rest := remaining[i:]
		switch {
		case strings.HasPrefix(rest, openTag):
			opened++
			i += len(openTag)
		case strings.HasPrefix(rest, closeTag):
			closedCount++
			if opened == closedCount {
				return remaining[:i], true, state.advance(i + len(closeTag)), nil
			}
			i += len(closeTag)
		case opened-closedCount == 1 && hasAnyPrefix(rest, partitions):
			return remaining[:i], false, state.advance(i), nil
		default:
			i++
		}
	}

	return "", false, state, NewParseError(fmt.Sprintf("missing closing tag %s", closeTag), openTag, blockStart)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
