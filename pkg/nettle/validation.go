package nettle

import (
	"fmt"
)

// TemplateValidator performs static checks on a parsed template. No model is
// needed: every check works on the block tree alone.
type TemplateValidator struct {
	functions FunctionRegistry
}

// NewTemplateValidator creates a validator. With a nil registry function
// calls are not checked.
func NewTemplateValidator(functions FunctionRegistry) *TemplateValidator {
	return &TemplateValidator{functions: functions}
}

// Validate runs every check and returns a *ValidationError listing all
// issues found, or nil.
func (v *TemplateValidator) Validate(tmpl *Template) error {
	var issues []ValidationIssue
	issues = append(issues, v.validateVariables(tmpl)...)
	issues = append(issues, v.validateFunctions(tmpl)...)
	issues = append(issues, v.validateLoops(tmpl)...)

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func newIssue(block CodeBlock, format string, args ...interface{}) ValidationIssue {
	return ValidationIssue{
		Signature: block.Signature(),
		Position:  block.StartPosition(),
		Message:   fmt.Sprintf(format, args...),
	}
}

// variableScan tracks declarations in document order.
type variableScan struct {
	declared map[string]bool
	// later holds every name declared somewhere in the template.
	later  map[string]bool
	issues []ValidationIssue
}

// validateVariables reports duplicate declarations and references to
// undeclared variables.
//
// Assignment sources, function parameters and the targets of reassign, ++
// and -- must name a variable declared earlier in the template. Loop
// collections, conditions, conditional binding values and partial models may
// also name a model property, so an undeclared name is accepted there unless
// the template declares it further down.
func (v *TemplateValidator) validateVariables(tmpl *Template) []ValidationIssue {
	scan := &variableScan{
		declared: make(map[string]bool),
		later:    make(map[string]bool),
	}
	tmpl.Walk(func(block CodeBlock) bool {
		if decl, ok := block.(*VariableDeclaration); ok {
			scan.later[decl.VariableName] = true
		}
		return true
	})

	tmpl.Walk(func(block CodeBlock) bool {
		switch b := block.(type) {
		case *VariableDeclaration:
			scan.checkValue(block, b.Value, true)
			if scan.declared[b.VariableName] {
				scan.issues = append(scan.issues, newIssue(block, "variable %s is already declared", b.VariableName))
			}
			scan.declared[b.VariableName] = true
		case *VariableReassignment:
			scan.checkValue(block, b.Value, true)
			scan.checkName(block, b.VariableName, true)
		case *VariableIncrementer:
			scan.checkName(block, b.VariableName, true)
		case *VariableDecrementer:
			scan.checkName(block, b.VariableName, true)
		case *FunctionCall:
			for _, p := range b.Parameters {
				scan.checkValue(block, p.TypedValue, true)
			}
		case *ConditionalBinding:
			scan.checkCondition(block, b.Condition)
			scan.checkValue(block, b.TrueValue, false)
			scan.checkValue(block, b.FalseValue, false)
		case *ForEachLoop:
			scan.checkValue(block, b.Collection, false)
		case *WhileLoop:
			scan.checkCondition(block, b.Condition)
		case *IfStatement:
			scan.checkCondition(block, b.Condition)
			for _, elseIf := range b.ElseIfConditions {
				scan.checkCondition(block, elseIf.Condition)
			}
		case *RenderPartial:
			if b.Model != nil {
				scan.checkValue(block, *b.Model, false)
			}
		}
		return true
	})

	return scan.issues
}

func (s *variableScan) checkCondition(block CodeBlock, expr *BooleanExpression) {
	for _, value := range conditionValues(expr) {
		s.checkValue(block, value, false)
	}
}

// checkValue checks the variable references in value. Parameters of nested
// function calls are always checked strictly.
func (s *variableScan) checkValue(block CodeBlock, value TypedValue, strict bool) {
	switch parsed := value.Parsed.(type) {
	case *FunctionCall:
		for _, p := range parsed.Parameters {
			s.checkValue(block, p.TypedValue, true)
		}
		return
	case *BooleanExpression:
		s.checkCondition(block, parsed)
		return
	case *UnresolvedKeyValuePair:
		s.checkValue(block, parsed.Key, strict)
		s.checkValue(block, parsed.Value, strict)
		return
	case *UnresolvedAnonymousType:
		for _, p := range parsed.Properties {
			s.checkValue(block, p.Value, strict)
		}
		return
	}

	if value.Type != ValueVariable {
		return
	}
	path, err := ParsePath(value.Signature)
	if err != nil {
		s.issues = append(s.issues, newIssue(block, "invalid variable reference %s", value.Signature))
		return
	}
	s.checkName(block, path.Root().Name, strict)
}

func (s *variableScan) checkName(block CodeBlock, name string, strict bool) {
	switch {
	case s.declared[name]:
	case strict:
		s.issues = append(s.issues, newIssue(block, "variable %s is not declared", name))
	case s.later[name]:
		s.issues = append(s.issues, newIssue(block, "variable %s is used before it is declared", name))
	}
}

// validateFunctions checks that every called function exists, is enabled,
// gets an acceptable number of arguments, and that literal arguments fit the
// declared parameter types.
func (v *TemplateValidator) validateFunctions(tmpl *Template) []ValidationIssue {
	if v.functions == nil {
		return nil
	}

	var issues []ValidationIssue
	tmpl.Walk(func(block CodeBlock) bool {
		for _, call := range blockFunctionCalls(block) {
			issues = append(issues, v.validateCall(block, call)...)
		}
		return true
	})
	return issues
}

func (v *TemplateValidator) validateCall(block CodeBlock, call *FunctionCall) []ValidationIssue {
	fn, ok := v.functions.GetFunction(call.FunctionName)
	if !ok {
		return []ValidationIssue{newIssue(block, "function %s is not registered", call.FunctionName)}
	}
	if !v.functions.IsEnabled(call.FunctionName) {
		return []ValidationIssue{newIssue(block, "function %s is disabled", call.FunctionName)}
	}

	var issues []ValidationIssue
	params := fn.Parameters()
	required := RequiredParameterCount(fn)
	if len(call.Parameters) < required {
		issues = append(issues, newIssue(block, "function %s requires at least %d arguments, got %d", call.FunctionName, required, len(call.Parameters)))
	}
	if len(call.Parameters) > len(params) {
		issues = append(issues, newIssue(block, "function %s accepts at most %d arguments, got %d", call.FunctionName, len(params), len(call.Parameters)))
	}

	for i, arg := range call.Parameters {
		if i >= len(params) {
			break
		}
		if !params[i].DataType.AcceptsValueType(arg.Type) {
			issues = append(issues, newIssue(block, "argument %d of %s must be %s, got %s", i+1, call.FunctionName, params[i].DataType, arg.Type))
		}
	}
	return issues
}

// validateLoops rejects loops over number and boolean literals.
func (v *TemplateValidator) validateLoops(tmpl *Template) []ValidationIssue {
	var issues []ValidationIssue
	tmpl.Walk(func(block CodeBlock) bool {
		loop, ok := block.(*ForEachLoop)
		if !ok {
			return true
		}
		if t := loop.Collection.Type; t == ValueNumber || t == ValueBoolean {
			issues = append(issues, newIssue(block, "cannot iterate over a %s value", t))
		}
		return true
	})
	return issues
}
