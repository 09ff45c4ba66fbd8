package nettle

import (
	"fmt"
	"strings"
)

// JoinOperator links a condition to the one before it.
type JoinOperator int

const (
	JoinNone JoinOperator = iota
	JoinAnd
	JoinOr
)

func (o JoinOperator) String() string {
	switch o {
	case JoinAnd:
		return "&"
	case JoinOr:
		return "|"
	default:
		return ""
	}
}

// CompareOperator compares the left and right values of a condition.
type CompareOperator int

const (
	CompareNone CompareOperator = iota
	CompareEqual
	CompareNotEqual
	CompareGreaterThan
	CompareLessThan
	CompareGreaterOrEqual
	CompareLessOrEqual
)

var compareOperators = map[string]CompareOperator{
	"==": CompareEqual,
	"!=": CompareNotEqual,
	">":  CompareGreaterThan,
	"<":  CompareLessThan,
	">=": CompareGreaterOrEqual,
	"<=": CompareLessOrEqual,
}

var joinOperators = map[string]JoinOperator{
	"&":  JoinAnd,
	"&&": JoinAnd,
	"|":  JoinOr,
	"||": JoinOr,
}

func (o CompareOperator) String() string {
	for token, op := range compareOperators {
		if op == o {
			return token
		}
	}
	return ""
}

// BooleanCondition is one `left [op right]` term of an expression.
type BooleanCondition struct {
	Left    TypedValue
	Join    JoinOperator
	Compare CompareOperator
	Right   *TypedValue
}

// BooleanExpression is a flat list of conditions evaluated left to right.
type BooleanExpression struct {
	Expression string
	Conditions []BooleanCondition
}

func (e *BooleanExpression) String() string {
	return e.Expression
}

// ParseBooleanExpression parses an expression such as `Age >= 18 & Active`.
// Surrounding parentheses are optional.
func ParseBooleanExpression(expression string) (*BooleanExpression, error) {
	return parseBooleanExpressionAt(unwrapParens(expression), 0)
}

func parseBooleanExpressionAt(expression string, position int) (*BooleanExpression, error) {
	expression = strings.TrimSpace(expression)
	tokens := Tokenize(expression)
	if len(tokens) == 0 {
		return nil, NewParseError("boolean expression is empty", expression, position)
	}

	expr := &BooleanExpression{Expression: expression}
	current := BooleanCondition{}
	hasLeft := false
	expectValue := true

	for _, token := range tokens {
		join, isJoin := joinOperators[token]
		compare, isCompare := compareOperators[token]

		if expectValue {
			if isJoin || isCompare {
				return nil, NewParseError(fmt.Sprintf("expected a value but found operator %q", token), expression, position)
			}
			value, err := parseTypedValueAt(token, position)
			if err != nil {
				return nil, err
			}
			if !hasLeft {
				current.Left = value
				hasLeft = true
			} else {
				current.Right = &value
			}
			expectValue = false
			continue
		}

		switch {
		case isJoin:
			expr.Conditions = append(expr.Conditions, current)
			current = BooleanCondition{Join: join}
			hasLeft = false
		case isCompare:
			if current.Compare != CompareNone {
				return nil, NewParseError(fmt.Sprintf("unexpected operator %q, conditions compare two values", token), expression, position)
			}
			current.Compare = compare
		default:
			return nil, NewParseError(fmt.Sprintf("expected an operator but found %q", token), expression, position)
		}
		expectValue = true
	}

	if expectValue {
		return nil, NewParseError("boolean expression ends with an operator", expression, position)
	}
	expr.Conditions = append(expr.Conditions, current)

	return expr, nil
}
