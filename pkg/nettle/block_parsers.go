package nettle

import (
	"fmt"
	"strings"
)

var ifPartitions = []string{"{{else if ", "{{else}}"}

// simpleBlock is the common tail of every parser that consumes nothing
// beyond its own signature.
func simpleBlock(block CodeBlock, state scanState, signature string) (CodeBlock, scanState, error) {
	return block, state.advance(len(signature)), nil
}

type commentParser struct{}

func (commentParser) Matches(body string) bool {
	return strings.HasPrefix(body, "!")
}

func (commentParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	text := strings.TrimSpace(signatureBody(signature)[1:])
	return simpleBlock(&Comment{BlockInfo: newBlockInfo(signature, state.position()), Text: text}, state, signature)
}

type modelBindingParser struct{}

func (modelBindingParser) Matches(body string) bool {
	return body != "else" && IsValidPath(body)
}

func (modelBindingParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	path, err := parseBindingPath(signatureBody(signature), state.position())
	if err != nil {
		return nil, state, err
	}
	return simpleBlock(&ModelBinding{BlockInfo: newBlockInfo(signature, state.position()), BindingPath: path}, state, signature)
}

type conditionalBindingParser struct{}

func (conditionalBindingParser) Matches(body string) bool {
	return strings.HasPrefix(body, "=")
}

func (conditionalBindingParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	tokens := Tokenize(signatureBody(signature)[1:])
	if len(tokens) != 5 || tokens[1] != "?" || tokens[3] != ":" {
		return nil, state, NewParseError("conditional binding must have the form = (condition) ? trueValue : falseValue", signature, pos)
	}

	condition, err := parseBooleanExpressionAt(unwrapParens(tokens[0]), pos)
	if err != nil {
		return nil, state, err
	}
	trueValue, err := parseTypedValueAt(tokens[2], pos)
	if err != nil {
		return nil, state, err
	}
	falseValue, err := parseTypedValueAt(tokens[4], pos)
	if err != nil {
		return nil, state, err
	}

	block := &ConditionalBinding{
		BlockInfo:  newBlockInfo(signature, pos),
		Condition:  condition,
		TrueValue:  trueValue,
		FalseValue: falseValue,
	}
	return simpleBlock(block, state, signature)
}

type functionCallParser struct{}

func (functionCallParser) Matches(body string) bool {
	return strings.HasPrefix(body, "@")
}

func (functionCallParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	call, err := parseFunctionSignature(signatureBody(signature), state.position())
	if err != nil {
		return nil, state, err
	}
	call.BlockInfo = newBlockInfo(signature, state.position())
	return simpleBlock(call, state, signature)
}

// parseFunctionSignature parses `@Name(param, ...)`.
func parseFunctionSignature(signature string, position int) (*FunctionCall, error) {
	text := strings.TrimSpace(signature)
	text = strings.TrimPrefix(text, "@")

	open := strings.Index(text, "(")
	if open == -1 || !strings.HasSuffix(text, ")") {
		return nil, NewParseError("function call must have the form @Name(parameters)", signature, position)
	}

	name := strings.TrimSpace(text[:open])
	if !IsValidName(name) {
		return nil, NewParseError(fmt.Sprintf("invalid function name %q", name), signature, position)
	}

	call := &FunctionCall{
		BlockInfo:    newBlockInfo(signature, position),
		FunctionName: name,
		Parameters:   []FunctionCallParameter{},
	}

	inner := strings.TrimSpace(text[open+1 : len(text)-1])
	if inner == "" {
		return call, nil
	}

	for i, param := range splitList(inner) {
		if param == "" {
			return nil, NewParseError(fmt.Sprintf("parameter %d of %s is empty", i+1, name), signature, position)
		}
		value, err := parseTypedValueAt(param, position)
		if err != nil {
			return nil, err
		}
		call.Parameters = append(call.Parameters, FunctionCallParameter{TypedValue: value})
	}

	return call, nil
}

// parseAssignment splits `name = value` for var and reassign.
func parseAssignment(rest, signature string, position int) (string, TypedValue, error) {
	eq := strings.Index(rest, "=")
	if eq == -1 {
		return "", TypedValue{}, NewParseError("missing '=' in assignment", signature, position)
	}

	name := strings.TrimSpace(rest[:eq])
	if !IsValidName(name) {
		return "", TypedValue{}, NewParseError(fmt.Sprintf("invalid variable name %q", name), signature, position)
	}

	valueSignature := strings.TrimSpace(rest[eq+1:])
	if valueSignature == "" {
		return "", TypedValue{}, NewParseError(fmt.Sprintf("variable %s has no value", name), signature, position)
	}

	value, err := parseTypedValueAt(valueSignature, position)
	if err != nil {
		return "", TypedValue{}, err
	}
	return name, value, nil
}

type variableDeclarationParser struct{}

func (variableDeclarationParser) Matches(body string) bool {
	return strings.HasPrefix(body, "var ")
}

func (variableDeclarationParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	name, value, err := parseAssignment(signatureBody(signature)[len("var "):], signature, pos)
	if err != nil {
		return nil, state, err
	}
	block := &VariableDeclaration{BlockInfo: newBlockInfo(signature, pos), VariableName: name, Value: value}
	return simpleBlock(block, state, signature)
}

type variableReassignmentParser struct{}

func (variableReassignmentParser) Matches(body string) bool {
	return strings.HasPrefix(body, "reassign ")
}

func (variableReassignmentParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	name, value, err := parseAssignment(signatureBody(signature)[len("reassign "):], signature, pos)
	if err != nil {
		return nil, state, err
	}
	block := &VariableReassignment{
		VariableDeclaration: VariableDeclaration{BlockInfo: newBlockInfo(signature, pos), VariableName: name, Value: value},
	}
	return simpleBlock(block, state, signature)
}

// parseStepTarget validates the variable of an increment or decrement.
func parseStepTarget(body, suffix, signature string, position int) (string, error) {
	name := strings.TrimSuffix(body, suffix)
	if !IsValidName(name) {
		return "", NewParseError(fmt.Sprintf("invalid variable name %q", name), signature, position)
	}
	return name, nil
}

type variableIncrementerParser struct{}

func (variableIncrementerParser) Matches(body string) bool {
	return !strings.ContainsAny(body, " \t") && strings.HasSuffix(body, "++")
}

func (variableIncrementerParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	name, err := parseStepTarget(signatureBody(signature), "++", signature, pos)
	if err != nil {
		return nil, state, err
	}
	return simpleBlock(&VariableIncrementer{BlockInfo: newBlockInfo(signature, pos), VariableName: name}, state, signature)
}

type variableDecrementerParser struct{}

func (variableDecrementerParser) Matches(body string) bool {
	return !strings.ContainsAny(body, " \t") && strings.HasSuffix(body, "--")
}

func (variableDecrementerParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	name, err := parseStepTarget(signatureBody(signature), "--", signature, pos)
	if err != nil {
		return nil, state, err
	}
	return simpleBlock(&VariableDecrementer{BlockInfo: newBlockInfo(signature, pos), VariableName: name}, state, signature)
}

type flagParser struct{}

func (flagParser) Matches(body string) bool {
	return strings.HasPrefix(body, "#")
}

func (flagParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	name := strings.TrimSpace(signatureBody(signature)[1:])
	if !IsValidName(name) {
		return nil, state, NewParseError(fmt.Sprintf("invalid flag name %q", name), signature, pos)
	}
	return simpleBlock(&FlagDeclaration{BlockInfo: newBlockInfo(signature, pos), FlagName: name}, state, signature)
}

// parseNestedBody extracts and blockifies one body of a nestable block.
// after is positioned right behind the signature that opened the body.
func parseNestedBody(b *Blockifier, after scanState, tagName string, partitions []string, blockStart int) (NestableCodeBlock, bool, scanState, error) {
	body, closed, next, err := extractNestedBody(after, tagName, partitions, blockStart)
	if err != nil {
		return NestableCodeBlock{}, false, after, err
	}
	blocks, err := b.blockifyAt(body, after.position())
	if err != nil {
		return NestableCodeBlock{}, false, after, err
	}
	return NestableCodeBlock{Body: body, Blocks: blocks}, closed, next, nil
}

// spanInfo covers everything from the opening signature to the end of the
// closing tag.
func spanInfo(start, end scanState) BlockInfo {
	return newBlockInfo(start.source[start.pos:end.pos], start.position())
}

type forEachParser struct{}

func (forEachParser) Matches(body string) bool {
	return strings.HasPrefix(body, "each ")
}

func (forEachParser) Parse(b *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	collection, err := parseTypedValueAt(signatureBody(signature)[len("each "):], pos)
	if err != nil {
		return nil, state, err
	}

	nested, _, next, err := parseNestedBody(b, state.advance(len(signature)), "each", nil, pos)
	if err != nil {
		return nil, state, err
	}

	return &ForEachLoop{BlockInfo: spanInfo(state, next), NestableCodeBlock: nested, Collection: collection}, next, nil
}

type whileParser struct{}

func (whileParser) Matches(body string) bool {
	return strings.HasPrefix(body, "while ")
}

func (whileParser) Parse(b *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	condition, err := parseBooleanExpressionAt(unwrapParens(signatureBody(signature)[len("while "):]), pos)
	if err != nil {
		return nil, state, err
	}

	nested, _, next, err := parseNestedBody(b, state.advance(len(signature)), "while", nil, pos)
	if err != nil {
		return nil, state, err
	}

	return &WhileLoop{BlockInfo: spanInfo(state, next), NestableCodeBlock: nested, Condition: condition}, next, nil
}

type ifParser struct{}

func (ifParser) Matches(body string) bool {
	return strings.HasPrefix(body, "if ")
}

func (ifParser) Parse(b *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	condition, err := parseBooleanExpressionAt(unwrapParens(signatureBody(signature)[len("if "):]), pos)
	if err != nil {
		return nil, state, err
	}

	nested, closed, next, err := parseNestedBody(b, state.advance(len(signature)), "if", ifPartitions, pos)
	if err != nil {
		return nil, state, err
	}

	stmt := &IfStatement{
		NestableCodeBlock: nested,
		Condition:         condition,
		ElseIfConditions:  []*ElseIfStatement{},
	}

	for !closed {
		rest := next.remaining()
		branchPos := next.position()
		branchSig, ok := extractSignature(rest)
		if !ok {
			return nil, state, NewParseError("unbalanced tags, missing '}}'", truncate(rest, 40), branchPos)
		}
		after := next.advance(len(branchSig))

		if stmt.ElseContent != nil {
			return nil, state, NewParseError("an if statement can only have one else branch, and it must come last", branchSig, branchPos)
		}

		if strings.HasPrefix(rest, "{{else if ") {
			elseIfCondition, err := parseBooleanExpressionAt(unwrapParens(signatureBody(branchSig)[len("else if "):]), branchPos)
			if err != nil {
				return nil, state, err
			}
			var branch NestableCodeBlock
			branch, closed, next, err = parseNestedBody(b, after, "if", ifPartitions, pos)
			if err != nil {
				return nil, state, err
			}
			stmt.ElseIfConditions = append(stmt.ElseIfConditions, &ElseIfStatement{
				NestableCodeBlock: branch,
				Signature:         branchSig,
				Condition:         elseIfCondition,
			})
			continue
		}

		var branch NestableCodeBlock
		branch, closed, next, err = parseNestedBody(b, after, "if", ifPartitions, pos)
		if err != nil {
			return nil, state, err
		}
		stmt.ElseContent = &branch
	}

	stmt.BlockInfo = spanInfo(state, next)
	return stmt, next, nil
}

type partialParser struct{}

func (partialParser) Matches(body string) bool {
	return strings.HasPrefix(body, ">")
}

func (partialParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pos := state.position()
	rest := strings.TrimSpace(signatureBody(signature)[1:])
	for strings.Contains(rest, "  ") {
		rest = strings.ReplaceAll(rest, "  ", " ")
	}

	name, modelSignature, _ := strings.Cut(rest, " ")
	if name == "" || !isAlphanumeric(name) {
		return nil, state, NewParseError(fmt.Sprintf("invalid partial name %q", name), signature, pos)
	}

	block := &RenderPartial{BlockInfo: newBlockInfo(signature, pos), PartialName: name}
	if modelSignature = strings.TrimSpace(modelSignature); modelSignature != "" {
		model, err := parseTypedValueAt(modelSignature, pos)
		if err != nil {
			return nil, state, err
		}
		block.Model = &model
	}

	return simpleBlock(block, state, signature)
}

type anonymousTypeParser struct{}

func (anonymousTypeParser) Matches(body string) bool {
	return isWrapped(body, "[", "]")
}

func (anonymousTypeParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	anon, err := parseAnonymousType(signatureBody(signature), state.position())
	if err != nil {
		return nil, state, err
	}
	anon.BlockInfo = newBlockInfo(signature, state.position())
	return simpleBlock(anon, state, signature)
}

type keyValuePairParser struct{}

func (keyValuePairParser) Matches(body string) bool {
	return isWrapped(body, "<", ">")
}

func (keyValuePairParser) Parse(_ *Blockifier, state scanState, signature string) (CodeBlock, scanState, error) {
	pair, err := parseKeyValuePair(signatureBody(signature), state.position())
	if err != nil {
		return nil, state, err
	}
	pair.BlockInfo = newBlockInfo(signature, state.position())
	return simpleBlock(pair, state, signature)
}
