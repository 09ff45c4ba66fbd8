package nettle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound is returned when a named template is not registered.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrDuplicateTemplate is returned when a template name is registered twice.
	ErrDuplicateTemplate = errors.New("template already registered")
	// ErrFunctionNotFound is returned when a function name is not registered.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrDuplicateFunction is returned when a function name is registered twice.
	ErrDuplicateFunction = errors.New("function already registered")
	// ErrCircularReference is returned when a partial renders itself, directly or not.
	ErrCircularReference = errors.New("circular partial reference")
	// ErrUndefinedReference is returned when a binding or variable cannot be resolved.
	ErrUndefinedReference = errors.New("undefined reference")
)

// ParseError represents an error during template parsing
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at position %d near '%s': %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

// NewParseError creates a new parse error
func NewParseError(message, token string, position int) error {
	return &ParseError{
		Message:  message,
		Token:    token,
		Position: position,
	}
}

// RenderError wraps a failure raised while rendering a single block.
type RenderError struct {
	Signature string
	Position  int
	Cause     error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error at position %d in '%s': %v", e.Position, e.Signature, e.Cause)
	}
	return fmt.Sprintf("render error at position %d in '%s'", e.Position, e.Signature)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new render error for the given block
func NewRenderError(block CodeBlock, cause error) error {
	return &RenderError{
		Signature: block.Signature(),
		Position:  block.StartPosition(),
		Cause:     cause,
	}
}

// FunctionError represents an error in a template function call
type FunctionError struct {
	Function string
	Args     []interface{}
	Message  string
	Cause    error
}

func (e *FunctionError) Error() string {
	argsStr := make([]string, len(e.Args))
	for i, arg := range e.Args {
		argsStr[i] = fmt.Sprintf("%v", arg)
	}
	msg := e.Message
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg = msg + ": " + e.Cause.Error()
		}
	}
	return fmt.Sprintf("function error in '%s(%s)': %s", e.Function, strings.Join(argsStr, ", "), msg)
}

func (e *FunctionError) Unwrap() error {
	return e.Cause
}

// NewFunctionError creates a new function error
func NewFunctionError(function string, args []interface{}, message string) error {
	return &FunctionError{
		Function: function,
		Args:     args,
		Message:  message,
	}
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Signature string
	Position  int
	Message   string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s (at %d): %s", i.Signature, i.Position, i.Message)
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s", e.Issues[0])
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d validation issues:", len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s", issue))
	}
	return strings.Join(parts, "\n")
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRenderError checks if an error is a render error
func IsRenderError(err error) bool {
	var target *RenderError
	return errors.As(err, &target)
}

// IsFunctionError checks if an error is a function error
func IsFunctionError(err error) bool {
	var target *FunctionError
	return errors.As(err, &target)
}
