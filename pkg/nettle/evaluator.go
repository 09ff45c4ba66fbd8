package nettle

import (
	"context"
	"fmt"
)

// BooleanExpressionEvaluator evaluates parsed boolean expressions against a
// template context.
type BooleanExpressionEvaluator struct {
	renderer *Renderer
}

// Evaluate runs the conditions left to right without precedence: each join
// combines the result so far with the next condition. A condition that
// cannot change the result is not evaluated.
func (e *BooleanExpressionEvaluator) Evaluate(ctx context.Context, tc *TemplateContext, expr *BooleanExpression) (bool, error) {
	if expr == nil || len(expr.Conditions) == 0 {
		return false, fmt.Errorf("empty boolean expression")
	}

	result := false
	for i, condition := range expr.Conditions {
		if i > 0 {
			switch condition.Join {
			case JoinAnd:
				if !result {
					continue
				}
			case JoinOr:
				if result {
					continue
				}
			}
		}

		value, err := e.evaluateCondition(ctx, tc, condition)
		if err != nil {
			return false, fmt.Errorf("failed to evaluate %q: %w", expr.Expression, err)
		}
		result = value
	}

	return result, nil
}

func (e *BooleanExpressionEvaluator) evaluateCondition(ctx context.Context, tc *TemplateContext, condition BooleanCondition) (bool, error) {
	left, err := e.renderer.resolveValue(ctx, tc, condition.Left)
	if err != nil {
		return false, err
	}
	if condition.Compare == CompareNone || condition.Right == nil {
		return isTruthy(left), nil
	}

	right, err := e.renderer.resolveValue(ctx, tc, *condition.Right)
	if err != nil {
		return false, err
	}

	switch condition.Compare {
	case CompareEqual:
		return evaluateEquals(left, right), nil
	case CompareNotEqual:
		return !evaluateEquals(left, right), nil
	}

	order, err := compareOrdered(left, right)
	if err != nil {
		return false, err
	}
	switch condition.Compare {
	case CompareGreaterThan:
		return order > 0, nil
	case CompareLessThan:
		return order < 0, nil
	case CompareGreaterOrEqual:
		return order >= 0, nil
	case CompareLessOrEqual:
		return order <= 0, nil
	}
	return false, fmt.Errorf("unknown compare operator %d", condition.Compare)
}

// resolveValue turns a parsed value into its runtime value. Nested values
// (function parameters, pair members, anonymous type properties) resolve
// recursively.
func (r *Renderer) resolveValue(ctx context.Context, tc *TemplateContext, value TypedValue) (interface{}, error) {
	switch value.Type {
	case ValueString, ValueNumber, ValueBoolean:
		return value.Parsed, nil

	case ValueModelBinding, ValueVariable:
		path, ok := value.Parsed.(string)
		if !ok {
			return nil, fmt.Errorf("invalid reference %q", value.Signature)
		}
		return tc.Resolve(path)

	case ValueFunction:
		call, ok := value.Parsed.(*FunctionCall)
		if !ok {
			return nil, fmt.Errorf("invalid function call %q", value.Signature)
		}
		return r.invoke(ctx, tc, call)

	case ValueBooleanExpression:
		expr, ok := value.Parsed.(*BooleanExpression)
		if !ok {
			return nil, fmt.Errorf("invalid boolean expression %q", value.Signature)
		}
		return r.evaluator.Evaluate(ctx, tc, expr)

	case ValueKeyValuePair:
		pair, ok := value.Parsed.(*UnresolvedKeyValuePair)
		if !ok {
			return nil, fmt.Errorf("invalid key value pair %q", value.Signature)
		}
		return r.resolveKeyValuePair(ctx, tc, pair)

	case ValueAnonymousType:
		anon, ok := value.Parsed.(*UnresolvedAnonymousType)
		if !ok {
			return nil, fmt.Errorf("invalid anonymous type %q", value.Signature)
		}
		return r.resolveAnonymousType(ctx, tc, anon)
	}

	return nil, fmt.Errorf("unsupported value type %s", value.Type)
}

func (r *Renderer) resolveKeyValuePair(ctx context.Context, tc *TemplateContext, pair *UnresolvedKeyValuePair) (KeyValuePair, error) {
	key, err := r.resolveValue(ctx, tc, pair.Key)
	if err != nil {
		return KeyValuePair{}, err
	}
	value, err := r.resolveValue(ctx, tc, pair.Value)
	if err != nil {
		return KeyValuePair{}, err
	}
	return KeyValuePair{Key: key, Value: value}, nil
}

func (r *Renderer) resolveAnonymousType(ctx context.Context, tc *TemplateContext, anon *UnresolvedAnonymousType) (*OrderedMap, error) {
	result := NewOrderedMap()
	for _, prop := range anon.Properties {
		value, err := r.resolveValue(ctx, tc, prop.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		result.Set(prop.Name, value)
	}
	return result, nil
}

// invoke resolves the parameters of a call and runs the function.
func (r *Renderer) invoke(ctx context.Context, tc *TemplateContext, call *FunctionCall) (interface{}, error) {
	fn, ok := r.functions.GetFunction(call.FunctionName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, call.FunctionName)
	}
	if !r.functions.IsEnabled(call.FunctionName) {
		return nil, fmt.Errorf("function %s is disabled", call.FunctionName)
	}

	args := make([]interface{}, len(call.Parameters))
	for i, param := range call.Parameters {
		value, err := r.resolveValue(ctx, tc, param.TypedValue)
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %s: %w", i+1, call.FunctionName, err)
		}
		args[i] = value
	}

	return callFunction(ctx, tc, fn, args)
}
