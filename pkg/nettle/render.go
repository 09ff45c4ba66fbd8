package nettle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/go-nettle/pkg/nettle/format"
)

// TemplateLookup finds registered templates for partial rendering.
type TemplateLookup interface {
	GetTemplate(name string) (*RegisteredTemplate, bool)
}

// blockRenderer renders one kind of block.
type blockRenderer func(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error)

var blockRenderers = map[BlockKind]blockRenderer{
	KindContent:              renderContent,
	KindComment:              renderNothing,
	KindFlagDeclaration:      renderNothing,
	KindModelBinding:         renderModelBinding,
	KindConditionalBinding:   renderConditionalBinding,
	KindFunctionCall:         renderFunctionCall,
	KindVariableDeclaration:  renderVariableDeclaration,
	KindVariableReassignment: renderVariableReassignment,
	KindVariableIncrementer:  renderVariableStep,
	KindVariableDecrementer:  renderVariableStep,
	KindForEachLoop:          renderForEachLoop,
	KindWhileLoop:            renderWhileLoop,
	KindIfStatement:          renderIfStatement,
	KindRenderPartial:        renderPartial,
	KindAnonymousType:        renderAnonymousType,
	KindKeyValuePair:         renderKeyValuePair,
}

// readOnlyKinds never write to the context, so siblings of these kinds can
// render concurrently. Every other block renders alone, in document order.
var readOnlyKinds = map[BlockKind]bool{
	KindContent:            true,
	KindComment:            true,
	KindFlagDeclaration:    true,
	KindModelBinding:       true,
	KindConditionalBinding: true,
	KindFunctionCall:       true,
	KindAnonymousType:      true,
	KindKeyValuePair:       true,
}

// Renderer walks block trees against a TemplateContext.
type Renderer struct {
	functions FunctionRegistry
	templates TemplateLookup
	config    *Config
	logger    *Logger
	renderers map[BlockKind]blockRenderer
	evaluator *BooleanExpressionEvaluator
}

// NewRenderer creates a renderer. templates may be nil when partials are not used.
func NewRenderer(functions FunctionRegistry, templates TemplateLookup, config *Config, logger *Logger) *Renderer {
	if config == nil {
		config = GetGlobalConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	r := &Renderer{
		functions: functions,
		templates: templates,
		config:    config,
		logger:    logger,
		renderers: blockRenderers,
	}
	r.evaluator = &BooleanExpressionEvaluator{renderer: r}
	return r
}

// Evaluator returns the renderer's boolean expression evaluator.
func (r *Renderer) Evaluator() *BooleanExpressionEvaluator {
	return r.evaluator
}

// Render renders a template's blocks as a root collection.
func (r *Renderer) Render(ctx context.Context, tmpl *Template, tc *TemplateContext) (string, error) {
	return r.renderBlocks(ctx, tc, tmpl.Blocks, true)
}

// renderBlocks renders a block collection and joins the outputs in document
// order. Runs of read-only blocks render concurrently.
func (r *Renderer) renderBlocks(ctx context.Context, tc *TemplateContext, blocks []CodeBlock, root bool) (string, error) {
	outputs := make([]string, len(blocks))

	for start := 0; start < len(blocks); {
		end := start + 1
		if readOnlyKinds[blocks[start].Kind()] {
			for end < len(blocks) && readOnlyKinds[blocks[end].Kind()] {
				end++
			}
		}

		if err := r.renderSegment(ctx, tc, blocks[start:end], outputs[start:end]); err != nil {
			return "", err
		}
		start = end
	}

	flags := tc.Flags()
	var result string
	if flags.Has(AutoFormat) {
		result = format.AutoFormat(segmentsOf(blocks, outputs), root)
	} else {
		result = strings.Join(outputs, "")
	}
	if root && flags.Has(Minify) {
		result = format.Minify(result)
	}
	return result, nil
}

func (r *Renderer) renderSegment(ctx context.Context, tc *TemplateContext, blocks []CodeBlock, outputs []string) error {
	if len(blocks) == 1 {
		out, err := r.renderBlock(ctx, tc, blocks[0])
		outputs[0] = out
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.config.MaxConcurrency > 0 {
		g.SetLimit(r.config.MaxConcurrency)
	}
	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			out, err := r.renderBlock(gctx, tc, block)
			outputs[i] = out
			return err
		})
	}
	return g.Wait()
}

// renderBlock renders a single block. Failures are wrapped in a RenderError
// naming the block, or swallowed when the IgnoreErrors flag is set.
// Cancellation is never swallowed.
func (r *Renderer) renderBlock(ctx context.Context, tc *TemplateContext, block CodeBlock) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", NewRenderError(block, RecoverError(rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	render, ok := r.renderers[block.Kind()]
	if !ok {
		return "", NewRenderError(block, fmt.Errorf("no renderer for block kind %s", block.Kind()))
	}

	out, err = render(r, ctx, tc, block)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		if tc.Flags().Has(IgnoreErrors) {
			r.logger.WithFields(Fields{
				"kind":     block.Kind(),
				"position": block.StartPosition(),
			}).Warn("Ignoring render error: %v", err)
			return "", nil
		}
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			return "", err
		}
		return "", NewRenderError(block, err)
	}

	if tc.Flags().Has(DebugMode) {
		r.logger.DebugBlock(block, out)
	}
	return out, nil
}

func segmentsOf(blocks []CodeBlock, outputs []string) []format.Segment {
	segments := make([]format.Segment, len(blocks))
	for i, block := range blocks {
		segments[i] = format.Segment{
			Output:  outputs[i],
			Content: block.Kind() == KindContent,
		}
		if body, ok := nestedBody(block); ok {
			segments[i].Nestable = true
			segments[i].Body = body
		}
	}
	return segments
}

// nestedBody returns the raw body of a loop or conditional. For an if
// statement that is the body of its last branch.
func nestedBody(block CodeBlock) (string, bool) {
	switch b := block.(type) {
	case *ForEachLoop:
		return b.Body, true
	case *WhileLoop:
		return b.Body, true
	case *IfStatement:
		if b.ElseContent != nil {
			return b.ElseContent.Body, true
		}
		if n := len(b.ElseIfConditions); n > 0 {
			return b.ElseIfConditions[n-1].Body, true
		}
		return b.Body, true
	}
	return "", false
}

// formatValue stringifies a resolved value for output.
func formatValue(tc *TemplateContext, value interface{}) string {
	if t, ok := value.(time.Time); ok && tc.Flags().Has(UseUtc) {
		value = t.UTC()
	}
	return FormatValue(value)
}

func renderContent(_ *Renderer, _ context.Context, _ *TemplateContext, block CodeBlock) (string, error) {
	return block.Signature(), nil
}

func renderNothing(_ *Renderer, _ context.Context, _ *TemplateContext, _ CodeBlock) (string, error) {
	return "", nil
}

func renderModelBinding(_ *Renderer, _ context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*ModelBinding)
	value, err := tc.Resolve(b.BindingPath)
	if err != nil {
		return "", err
	}
	return formatValue(tc, value), nil
}

func renderConditionalBinding(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*ConditionalBinding)
	ok, err := r.evaluator.Evaluate(ctx, tc, b.Condition)
	if err != nil {
		return "", err
	}

	branch := b.FalseValue
	if ok {
		branch = b.TrueValue
	}
	value, err := r.resolveValue(ctx, tc, branch)
	if err != nil {
		return "", err
	}
	return formatValue(tc, value), nil
}

func renderFunctionCall(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	value, err := r.invoke(ctx, tc, block.(*FunctionCall))
	if err != nil {
		return "", err
	}
	return formatValue(tc, value), nil
}

func renderVariableDeclaration(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*VariableDeclaration)
	value, err := r.resolveValue(ctx, tc, b.Value)
	if err != nil {
		return "", err
	}
	return "", tc.DefineVariable(b.VariableName, value)
}

func renderVariableReassignment(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*VariableReassignment)
	value, err := r.resolveValue(ctx, tc, b.Value)
	if err != nil {
		return "", err
	}
	return "", tc.ReassignVariable(b.VariableName, value)
}

// renderVariableStep handles both ++ and --. The result is always a float64.
func renderVariableStep(_ *Renderer, _ context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	var name string
	step := 1.0
	switch b := block.(type) {
	case *VariableIncrementer:
		name = b.VariableName
	case *VariableDecrementer:
		name = b.VariableName
		step = -1
	}

	current, ok := tc.Variable(name)
	if !ok {
		return "", fmt.Errorf("%w: variable %s is not defined", ErrUndefinedReference, name)
	}
	if current == nil {
		return "", fmt.Errorf("variable %s is null", name)
	}
	n, ok := toFloat64(current)
	if !ok {
		return "", fmt.Errorf("variable %s is not numeric, got %T", name, current)
	}
	return "", tc.ReassignVariable(name, n+step)
}

func renderForEachLoop(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*ForEachLoop)
	collection, err := r.resolveValue(ctx, tc, b.Collection)
	if err != nil {
		return "", err
	}
	if collection == nil {
		return "", fmt.Errorf("collection %s is null", b.Collection.Signature)
	}
	items, ok := toSlice(collection)
	if !ok {
		return "", fmt.Errorf("collection %s of type %T is not enumerable", b.Collection.Signature, collection)
	}

	var result strings.Builder
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := r.renderBlocks(ctx, tc.CreateNestedContext(item), b.Blocks, false)
		if err != nil {
			return "", err
		}
		result.WriteString(out)
	}
	return result.String(), nil
}

func renderWhileLoop(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*WhileLoop)
	var result strings.Builder

	for iterations := 0; ; iterations++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ok, err := r.evaluator.Evaluate(ctx, tc, b.Condition)
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		if limit := r.config.MaxLoopIterations; limit > 0 && iterations >= limit {
			return "", fmt.Errorf("while loop exceeded %d iterations", limit)
		}

		out, err := r.renderBlocks(ctx, tc.CreateNestedContext(tc.Model()), b.Blocks, false)
		if err != nil {
			return "", err
		}
		result.WriteString(out)
	}
	return result.String(), nil
}

func renderIfStatement(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*IfStatement)

	ok, err := r.evaluator.Evaluate(ctx, tc, b.Condition)
	if err != nil {
		return "", err
	}
	if ok {
		return r.renderBlocks(ctx, tc.CreateNestedContext(tc.Model()), b.Blocks, false)
	}

	for _, elseIf := range b.ElseIfConditions {
		ok, err := r.evaluator.Evaluate(ctx, tc, elseIf.Condition)
		if err != nil {
			return "", err
		}
		if ok {
			return r.renderBlocks(ctx, tc.CreateNestedContext(tc.Model()), elseIf.Blocks, false)
		}
	}

	if b.ElseContent != nil {
		return r.renderBlocks(ctx, tc.CreateNestedContext(tc.Model()), b.ElseContent.Blocks, false)
	}
	return "", nil
}

func renderPartial(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	b := block.(*RenderPartial)

	stack := tc.PartialCallStack()
	for _, name := range stack {
		if name == b.PartialName {
			return "", fmt.Errorf("%w: %s -> %s", ErrCircularReference, strings.Join(stack, " -> "), b.PartialName)
		}
	}
	if len(stack) >= r.config.MaxRenderDepth {
		return "", fmt.Errorf("maximum render depth %d exceeded rendering partial %s", r.config.MaxRenderDepth, b.PartialName)
	}

	if r.templates == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, b.PartialName)
	}
	partial, ok := r.templates.GetTemplate(b.PartialName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, b.PartialName)
	}

	model := tc.Model()
	if b.Model != nil {
		var err error
		model, err = r.resolveValue(ctx, tc, *b.Model)
		if err != nil {
			return "", err
		}
	}

	return r.renderBlocks(ctx, tc.createPartialContext(model, b.PartialName), partial.Template.Blocks, false)
}

func renderAnonymousType(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	value, err := r.resolveAnonymousType(ctx, tc, block.(*UnresolvedAnonymousType))
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

func renderKeyValuePair(r *Renderer, ctx context.Context, tc *TemplateContext, block CodeBlock) (string, error) {
	value, err := r.resolveKeyValuePair(ctx, tc, block.(*UnresolvedKeyValuePair))
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
