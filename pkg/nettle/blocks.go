package nettle

import (
	"fmt"
)

// BlockKind tags every CodeBlock variant.
type BlockKind int

const (
	KindContent BlockKind = iota
	KindComment
	KindModelBinding
	KindConditionalBinding
	KindFunctionCall
	KindVariableDeclaration
	KindVariableReassignment
	KindVariableIncrementer
	KindVariableDecrementer
	KindFlagDeclaration
	KindForEachLoop
	KindWhileLoop
	KindIfStatement
	KindRenderPartial
	KindAnonymousType
	KindKeyValuePair
)

var blockKindNames = map[BlockKind]string{
	KindContent:              "Content",
	KindComment:              "Comment",
	KindModelBinding:         "ModelBinding",
	KindConditionalBinding:   "ConditionalBinding",
	KindFunctionCall:         "FunctionCall",
	KindVariableDeclaration:  "VariableDeclaration",
	KindVariableReassignment: "VariableReassignment",
	KindVariableIncrementer:  "VariableIncrementer",
	KindVariableDecrementer:  "VariableDecrementer",
	KindFlagDeclaration:      "FlagDeclaration",
	KindForEachLoop:          "ForEachLoop",
	KindWhileLoop:            "WhileLoop",
	KindIfStatement:          "IfStatement",
	KindRenderPartial:        "RenderPartial",
	KindAnonymousType:        "AnonymousType",
	KindKeyValuePair:         "KeyValuePair",
}

func (k BlockKind) String() string {
	if name, ok := blockKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BlockKind(%d)", int(k))
}

// CodeBlock is one parsed unit of a template. The set of implementations is
// closed: only the types in this file satisfy it.
type CodeBlock interface {
	Kind() BlockKind
	Signature() string
	StartPosition() int
	EndPosition() int
	codeBlock()
}

// BlockInfo holds the fields shared by all blocks.
type BlockInfo struct {
	Sig   string
	Start int
	End   int
}

func (b *BlockInfo) Signature() string  { return b.Sig }
func (b *BlockInfo) StartPosition() int { return b.Start }
func (b *BlockInfo) EndPosition() int   { return b.End }
func (b *BlockInfo) codeBlock()         {}

func newBlockInfo(signature string, start int) BlockInfo {
	return BlockInfo{Sig: signature, Start: start, End: start + len(signature)}
}

// TypedValue is a parsed sub-expression together with its value type.
// Parsed holds the compile time value: a string, float64 or bool literal,
// a binding path, a variable name, or a nested *FunctionCall,
// *BooleanExpression, *UnresolvedKeyValuePair or *UnresolvedAnonymousType.
type TypedValue struct {
	Signature string
	Type      ValueType
	Parsed    interface{}
}

func (v TypedValue) String() string {
	return fmt.Sprintf("%s(%s)", v.Type, v.Signature)
}

// ContentBlock is literal output text.
type ContentBlock struct {
	BlockInfo
}

func (*ContentBlock) Kind() BlockKind { return KindContent }

// Comment renders to nothing.
type Comment struct {
	BlockInfo
	Text string
}

func (*Comment) Kind() BlockKind { return KindComment }

// ModelBinding writes a model or variable value.
type ModelBinding struct {
	BlockInfo
	BindingPath string
}

func (*ModelBinding) Kind() BlockKind { return KindModelBinding }

// ConditionalBinding is `= (condition) ? trueValue : falseValue`.
type ConditionalBinding struct {
	BlockInfo
	Condition  *BooleanExpression
	TrueValue  TypedValue
	FalseValue TypedValue
}

func (*ConditionalBinding) Kind() BlockKind { return KindConditionalBinding }

// FunctionCallParameter is one argument of a function call.
type FunctionCallParameter struct {
	TypedValue
}

// FunctionCall invokes a registered function.
type FunctionCall struct {
	BlockInfo
	FunctionName string
	Parameters   []FunctionCallParameter
}

func (*FunctionCall) Kind() BlockKind { return KindFunctionCall }

// VariableDeclaration defines a new variable in the current context.
type VariableDeclaration struct {
	BlockInfo
	VariableName string
	Value        TypedValue
}

func (*VariableDeclaration) Kind() BlockKind { return KindVariableDeclaration }

// VariableReassignment updates an existing variable.
type VariableReassignment struct {
	VariableDeclaration
}

func (*VariableReassignment) Kind() BlockKind { return KindVariableReassignment }

// VariableIncrementer adds one to a numeric variable.
type VariableIncrementer struct {
	BlockInfo
	VariableName string
}

func (*VariableIncrementer) Kind() BlockKind { return KindVariableIncrementer }

// VariableDecrementer subtracts one from a numeric variable.
type VariableDecrementer struct {
	BlockInfo
	VariableName string
}

func (*VariableDecrementer) Kind() BlockKind { return KindVariableDecrementer }

// FlagDeclaration is a `#name` marker. It renders to nothing; template flags
// are set when compiling, not through this block.
type FlagDeclaration struct {
	BlockInfo
	FlagName string
}

func (*FlagDeclaration) Kind() BlockKind { return KindFlagDeclaration }

// NestableCodeBlock holds the body shared by loops and conditionals.
type NestableCodeBlock struct {
	Body   string
	Blocks []CodeBlock
}

// ForEachLoop renders its body once per collection item.
type ForEachLoop struct {
	BlockInfo
	NestableCodeBlock
	Collection TypedValue
}

func (*ForEachLoop) Kind() BlockKind { return KindForEachLoop }

// WhileLoop renders its body until the condition is false.
type WhileLoop struct {
	BlockInfo
	NestableCodeBlock
	Condition *BooleanExpression
}

func (*WhileLoop) Kind() BlockKind { return KindWhileLoop }

// ElseIfStatement is one `else if` branch of an IfStatement.
type ElseIfStatement struct {
	NestableCodeBlock
	Signature string
	Condition *BooleanExpression
}

// IfStatement renders the first branch whose condition holds.
type IfStatement struct {
	BlockInfo
	NestableCodeBlock
	Condition        *BooleanExpression
	ElseIfConditions []*ElseIfStatement
	ElseContent      *NestableCodeBlock
}

func (*IfStatement) Kind() BlockKind { return KindIfStatement }

// RenderPartial renders another registered template inline.
type RenderPartial struct {
	BlockInfo
	PartialName string
	// Model is nil when the partial inherits the current model.
	Model *TypedValue
}

func (*RenderPartial) Kind() BlockKind { return KindRenderPartial }

// UnresolvedAnonymousTypeProperty is one `name = value` entry of an anonymous type.
type UnresolvedAnonymousTypeProperty struct {
	Name  string
	Value TypedValue
}

// UnresolvedAnonymousType is a `[name = value, ...]` literal.
type UnresolvedAnonymousType struct {
	BlockInfo
	Properties []UnresolvedAnonymousTypeProperty
}

func (*UnresolvedAnonymousType) Kind() BlockKind { return KindAnonymousType }

// UnresolvedKeyValuePair is a `<key, value>` literal.
type UnresolvedKeyValuePair struct {
	BlockInfo
	Key   TypedValue
	Value TypedValue
}

func (*UnresolvedKeyValuePair) Kind() BlockKind { return KindKeyValuePair }

// WalkBlocks visits blocks depth first in document order, including the
// bodies of loops and every branch of conditionals. Returning false from fn
// skips the children of that block.
func WalkBlocks(blocks []CodeBlock, fn func(CodeBlock) bool) {
	for _, block := range blocks {
		if !fn(block) {
			continue
		}
		switch b := block.(type) {
		case *ForEachLoop:
			WalkBlocks(b.Blocks, fn)
		case *WhileLoop:
			WalkBlocks(b.Blocks, fn)
		case *IfStatement:
			WalkBlocks(b.Blocks, fn)
			for _, elseIf := range b.ElseIfConditions {
				WalkBlocks(elseIf.Blocks, fn)
			}
			if b.ElseContent != nil {
				WalkBlocks(b.ElseContent.Blocks, fn)
			}
		}
	}
}
