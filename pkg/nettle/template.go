package nettle

// Template is a parsed template: its source text and the block tree built from it.
// A Template is never modified after parsing and may be rendered concurrently.
type Template struct {
	Text   string
	Blocks []CodeBlock
}

// ParseTemplate blockifies text into a Template. The first parse error aborts.
func ParseTemplate(text string) (*Template, error) {
	blocks, err := NewBlockifier().Blockify(text)
	if err != nil {
		return nil, err
	}
	return &Template{Text: text, Blocks: blocks}, nil
}

// Walk visits every block of the template depth first.
func (t *Template) Walk(fn func(CodeBlock) bool) {
	WalkBlocks(t.Blocks, fn)
}

// Functions returns the distinct function names the template calls,
// including calls nested inside values, in order of first appearance.
func (t *Template) Functions() []string {
	seen := make(map[string]bool)
	var names []string
	t.Walk(func(block CodeBlock) bool {
		for _, call := range blockFunctionCalls(block) {
			if !seen[call.FunctionName] {
				seen[call.FunctionName] = true
				names = append(names, call.FunctionName)
			}
		}
		return true
	})
	return names
}

// Partials returns the distinct partial names the template renders.
func (t *Template) Partials() []string {
	seen := make(map[string]bool)
	var names []string
	t.Walk(func(block CodeBlock) bool {
		if p, ok := block.(*RenderPartial); ok && !seen[p.PartialName] {
			seen[p.PartialName] = true
			names = append(names, p.PartialName)
		}
		return true
	})
	return names
}

// blockValues returns the typed values a block carries directly.
func blockValues(block CodeBlock) []TypedValue {
	switch b := block.(type) {
	case *ConditionalBinding:
		return append(conditionValues(b.Condition), b.TrueValue, b.FalseValue)
	case *FunctionCall:
		values := make([]TypedValue, len(b.Parameters))
		for i, p := range b.Parameters {
			values[i] = p.TypedValue
		}
		return values
	case *VariableDeclaration:
		return []TypedValue{b.Value}
	case *VariableReassignment:
		return []TypedValue{b.Value}
	case *ForEachLoop:
		return []TypedValue{b.Collection}
	case *WhileLoop:
		return conditionValues(b.Condition)
	case *IfStatement:
		values := conditionValues(b.Condition)
		for _, elseIf := range b.ElseIfConditions {
			values = append(values, conditionValues(elseIf.Condition)...)
		}
		return values
	case *RenderPartial:
		if b.Model != nil {
			return []TypedValue{*b.Model}
		}
	case *UnresolvedAnonymousType:
		values := make([]TypedValue, len(b.Properties))
		for i, p := range b.Properties {
			values[i] = p.Value
		}
		return values
	case *UnresolvedKeyValuePair:
		return []TypedValue{b.Key, b.Value}
	}
	return nil
}

func conditionValues(expr *BooleanExpression) []TypedValue {
	if expr == nil {
		return nil
	}
	var values []TypedValue
	for _, c := range expr.Conditions {
		values = append(values, c.Left)
		if c.Right != nil {
			values = append(values, *c.Right)
		}
	}
	return values
}

// nestedValues expands values that contain further values (function
// parameters, expressions, literals) into a flat list, the value itself first.
func nestedValues(value TypedValue) []TypedValue {
	values := []TypedValue{value}
	switch parsed := value.Parsed.(type) {
	case *FunctionCall:
		for _, p := range parsed.Parameters {
			values = append(values, nestedValues(p.TypedValue)...)
		}
	case *BooleanExpression:
		for _, v := range conditionValues(parsed) {
			values = append(values, nestedValues(v)...)
		}
	case *UnresolvedKeyValuePair:
		values = append(values, nestedValues(parsed.Key)...)
		values = append(values, nestedValues(parsed.Value)...)
	case *UnresolvedAnonymousType:
		for _, p := range parsed.Properties {
			values = append(values, nestedValues(p.Value)...)
		}
	}
	return values
}

// blockFunctionCalls returns the block itself when it is a call, followed by
// every call nested in its values.
func blockFunctionCalls(block CodeBlock) []*FunctionCall {
	var calls []*FunctionCall
	if call, ok := block.(*FunctionCall); ok {
		calls = append(calls, call)
	}
	for _, v := range blockValues(block) {
		for _, nested := range nestedValues(v) {
			if call, ok := nested.Parsed.(*FunctionCall); ok {
				calls = append(calls, call)
			}
		}
	}
	return calls
}
