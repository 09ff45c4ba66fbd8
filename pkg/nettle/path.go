package nettle

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ModelPointer is the path segment that refers to the bound model itself.
const ModelPointer = "$"

// Indexer is one bracketed index on a path segment, either a numeric
// literal or the name of a variable holding the index.
type Indexer struct {
	Signature string
	Index     int
	Variable  string
}

// IsNumeric reports whether the indexer is a literal index.
func (i Indexer) IsNumeric() bool {
	return i.Variable == ""
}

// PathSegment is one dot separated part of a path, e.g. items[0][i].
type PathSegment struct {
	Signature string
	Name      string
	Indexers  []Indexer
}

// IsModelPointer reports whether the segment refers to the model itself.
func (s PathSegment) IsModelPointer() bool {
	return s.Name == ModelPointer
}

// Path is a parsed binding or variable path such as $.order.lines[0].price.
type Path struct {
	Signature string
	Segments  []PathSegment
}

func (p *Path) String() string {
	return p.Signature
}

// Root returns the first segment of the path.
func (p *Path) Root() PathSegment {
	return p.Segments[0]
}

// ParsePath parses and validates a binding path.
func ParsePath(signature string) (*Path, error) {
	if !IsValidPath(signature) {
		return nil, fmt.Errorf("invalid path %q", signature)
	}

	parts := strings.Split(signature, ".")
	path := &Path{
		Signature: signature,
		Segments:  make([]PathSegment, 0, len(parts)),
	}

	for i, part := range parts {
		name, indexers, err := splitIndexers(part)
		if err != nil {
			return nil, err
		}
		// $Name is shorthand for $.Name on the first segment only
		if i == 0 && len(name) > 1 && strings.HasPrefix(name, ModelPointer) {
			name = name[1:]
		}
		path.Segments = append(path.Segments, PathSegment{
			Signature: part,
			Name:      name,
			Indexers:  indexers,
		})
	}

	return path, nil
}

// IsValidPath checks the path syntax: no whitespace, a letter or $ first,
// no empty segments, and alphanumeric segment names.
func IsValidPath(signature string) bool {
	if signature == "" {
		return false
	}
	if strings.IndexFunc(signature, unicode.IsSpace) >= 0 {
		return false
	}
	first := []rune(signature)[0]
	if !unicode.IsLetter(first) && first != '$' {
		return false
	}
	if strings.Contains(signature, "..") {
		return false
	}

	for i, part := range strings.Split(signature, ".") {
		name, _, err := splitIndexers(part)
		if err != nil {
			return false
		}
		if i == 0 && strings.HasPrefix(name, ModelPointer) {
			if name == ModelPointer {
				continue
			}
			name = name[1:]
		}
		if !isAlphanumeric(name) {
			return false
		}
	}

	return true
}

// splitIndexers separates "items[0][i]" into "items" and its indexers.
func splitIndexers(segment string) (string, []Indexer, error) {
	open := strings.IndexByte(segment, '[')
	if open == -1 {
		if strings.IndexByte(segment, ']') >= 0 {
			return "", nil, fmt.Errorf("unbalanced indexer in %q", segment)
		}
		return segment, nil, nil
	}

	name := segment[:open]
	rest := segment[open:]
	var indexers []Indexer

	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("unexpected %q after indexer in %q", rest, segment)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("unterminated indexer in %q", segment)
		}
		inner := rest[1:end]
		if !isAlphanumeric(inner) {
			return "", nil, fmt.Errorf("invalid indexer %q in %q", inner, segment)
		}

		indexer := Indexer{Signature: rest[:end+1]}
		if n, err := strconv.Atoi(inner); err == nil {
			indexer.Index = n
		} else if unicode.IsLetter([]rune(inner)[0]) {
			indexer.Variable = inner
		} else {
			return "", nil, fmt.Errorf("invalid indexer %q in %q", inner, segment)
		}

		indexers = append(indexers, indexer)
		rest = rest[end+1:]
	}

	return name, indexers, nil
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidName checks a variable, flag or template name: a letter followed
// by letters and digits.
func IsValidName(name string) bool {
	if name == "" || !unicode.IsLetter([]rune(name)[0]) {
		return false
	}
	return isAlphanumeric(name)
}
