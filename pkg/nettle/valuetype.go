package nettle

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType classifies a raw value signature.
type ValueType int

const (
	ValueString ValueType = iota
	ValueNumber
	ValueBoolean
	ValueModelBinding
	ValueVariable
	ValueFunction
	ValueBooleanExpression
	ValueKeyValuePair
	ValueAnonymousType
)

var valueTypeNames = map[ValueType]string{
	ValueString:            "String",
	ValueNumber:            "Number",
	ValueBoolean:           "Boolean",
	ValueModelBinding:      "ModelBinding",
	ValueVariable:          "Variable",
	ValueFunction:          "Function",
	ValueBooleanExpression: "BooleanExpression",
	ValueKeyValuePair:      "KeyValuePair",
	ValueAnonymousType:     "AnonymousType",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// IsDeferred reports whether values of this type can only be known at render time.
func (t ValueType) IsDeferred() bool {
	return t == ValueModelBinding || t == ValueVariable
}

// ResolveType classifies a value signature. The first matching rule wins.
func ResolveType(signature string) ValueType {
	signature = strings.TrimSpace(signature)

	switch {
	case signature == "":
		return ValueString
	case isWrapped(signature, `"`, `"`):
		return ValueString
	case isWrapped(signature, "{{", "}}") || strings.HasPrefix(signature, "$"):
		return ValueModelBinding
	case strings.HasPrefix(signature, "@"):
		return ValueFunction
	case isWrapped(signature, "(", ")"):
		return ValueBooleanExpression
	case isWrapped(signature, "<", ">"):
		return ValueKeyValuePair
	case isWrapped(signature, "[", "]"):
		return ValueAnonymousType
	case isNumeric(signature):
		return ValueNumber
	case strings.EqualFold(signature, "true") || strings.EqualFold(signature, "false"):
		return ValueBoolean
	default:
		return ValueVariable
	}
}

// ParseValue converts a signature of the given type into its compile time value.
func ParseValue(valueType ValueType, signature string) (interface{}, error) {
	return parseValueAt(valueType, strings.TrimSpace(signature), 0)
}

// ParseTypedValue resolves the type of signature and parses it.
func ParseTypedValue(signature string) (TypedValue, error) {
	return parseTypedValueAt(signature, 0)
}

func parseTypedValueAt(signature string, position int) (TypedValue, error) {
	signature = strings.TrimSpace(signature)
	valueType := ResolveType(signature)
	parsed, err := parseValueAt(valueType, signature, position)
	if err != nil {
		return TypedValue{}, err
	}
	return TypedValue{Signature: signature, Type: valueType, Parsed: parsed}, nil
}

func parseValueAt(valueType ValueType, signature string, position int) (interface{}, error) {
	switch valueType {
	case ValueString:
		if isWrapped(signature, `"`, `"`) {
			return signature[1 : len(signature)-1], nil
		}
		return signature, nil

	case ValueNumber:
		n, err := strconv.ParseFloat(signature, 64)
		if err != nil {
			return nil, NewParseError("invalid number", signature, position)
		}
		return n, nil

	case ValueBoolean:
		return strings.EqualFold(signature, "true"), nil

	case ValueModelBinding:
		return parseBindingPath(signature, position)

	case ValueVariable:
		if !IsValidPath(signature) {
			return nil, NewParseError("invalid variable reference", signature, position)
		}
		return signature, nil

	case ValueFunction:
		return parseFunctionSignature(signature, position)

	case ValueBooleanExpression:
		return parseBooleanExpressionAt(unwrapParens(signature), position)

	case ValueKeyValuePair:
		return parseKeyValuePair(signature, position)

	case ValueAnonymousType:
		return parseAnonymousType(signature, position)

	default:
		return nil, NewParseError(fmt.Sprintf("unsupported value type %s", valueType), signature, position)
	}
}

// parseBindingPath unwraps {{path}} and a leading $, keeping $ and $. which
// explicitly point at the model.
func parseBindingPath(signature string, position int) (string, error) {
	path := signature
	if isWrapped(path, "{{", "}}") {
		path = strings.TrimSpace(path[2 : len(path)-2])
	}
	if strings.HasPrefix(path, "$") && path != ModelPointer && !strings.HasPrefix(path, "$.") && !strings.HasPrefix(path, "$[") {
		path = path[1:]
	}
	if !IsValidPath(path) {
		return "", NewParseError("invalid binding path", signature, position)
	}
	return path, nil
}

func parseKeyValuePair(signature string, position int) (*UnresolvedKeyValuePair, error) {
	inner := signature[1 : len(signature)-1]
	parts := splitList(inner)
	if len(parts) != 2 {
		return nil, NewParseError("a key value pair needs exactly a key and a value", signature, position)
	}

	key, err := parseTypedValueAt(parts[0], position)
	if err != nil {
		return nil, err
	}
	value, err := parseTypedValueAt(parts[1], position)
	if err != nil {
		return nil, err
	}

	return &UnresolvedKeyValuePair{
		BlockInfo: newBlockInfo(signature, position),
		Key:       key,
		Value:     value,
	}, nil
}

func parseAnonymousType(signature string, position int) (*UnresolvedAnonymousType, error) {
	inner := strings.TrimSpace(signature[1 : len(signature)-1])
	anon := &UnresolvedAnonymousType{
		BlockInfo:  newBlockInfo(signature, position),
		Properties: []UnresolvedAnonymousTypeProperty{},
	}
	if inner == "" {
		return anon, nil
	}

	seen := make(map[string]bool)
	for _, entry := range splitList(inner) {
		eq := strings.Index(entry, "=")
		if eq == -1 {
			return nil, NewParseError(fmt.Sprintf("property %q has no value", entry), signature, position)
		}
		name := strings.TrimSpace(entry[:eq])
		if !IsValidName(name) {
			return nil, NewParseError(fmt.Sprintf("invalid property name %q", name), signature, position)
		}
		if seen[name] {
			return nil, NewParseError(fmt.Sprintf("duplicate property %q", name), signature, position)
		}
		seen[name] = true

		value, err := parseTypedValueAt(entry[eq+1:], position)
		if err != nil {
			return nil, err
		}
		anon.Properties = append(anon.Properties, UnresolvedAnonymousTypeProperty{Name: name, Value: value})
	}

	return anon, nil
}

func isWrapped(s, prefix, suffix string) bool {
	return len(s) >= len(prefix)+len(suffix) && strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix)
}

func unwrapParens(s string) string {
	s = strings.TrimSpace(s)
	if isWrapped(s, "(", ")") && enclosesWhole(s) {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// enclosesWhole reports whether the opening parenthesis of s is closed by
// its last character, so that "(a) & (b)" is not unwrapped.
func enclosesWhole(s string) bool {
	depth := 0
	inQuote := false
	for i, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(c >= '0' && c <= '9') && c != '-' && c != '+' && c != '.' {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
