package nettle

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// ParameterType is the semantic type a function parameter accepts.
type ParameterType int

const (
	ParamAny ParameterType = iota
	ParamString
	ParamNumber
	ParamBoolean
	ParamCollection
	ParamObject
	ParamKeyValuePair
)

var parameterTypeNames = map[ParameterType]string{
	ParamAny:          "Any",
	ParamString:       "String",
	ParamNumber:       "Number",
	ParamBoolean:      "Boolean",
	ParamCollection:   "Collection",
	ParamObject:       "Object",
	ParamKeyValuePair: "KeyValuePair",
}

func (p ParameterType) String() string {
	if name, ok := parameterTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ParameterType(%d)", int(p))
}

// AcceptsValueType reports whether a parameter of this type can take a
// value of the given compile time type. Values only known at render time
// are always accepted here and checked again when the function is called.
func (p ParameterType) AcceptsValueType(t ValueType) bool {
	if p == ParamAny || t.IsDeferred() || t == ValueFunction {
		return true
	}
	switch p {
	case ParamString:
		return t == ValueString
	case ParamNumber:
		return t == ValueNumber
	case ParamBoolean:
		return t == ValueBoolean || t == ValueBooleanExpression
	case ParamObject:
		return t == ValueAnonymousType
	case ParamKeyValuePair:
		return t == ValueKeyValuePair
	}
	return false
}

// AcceptsValue reports whether a resolved argument fits the parameter type.
func (p ParameterType) AcceptsValue(value interface{}) bool {
	if p == ParamAny || value == nil {
		return true
	}
	switch p {
	case ParamString:
		_, ok := value.(string)
		return ok
	case ParamNumber:
		return isNumber(value)
	case ParamBoolean:
		_, ok := value.(bool)
		return ok
	case ParamCollection:
		_, ok := toSlice(value)
		return ok
	case ParamObject:
		switch value.(type) {
		case *OrderedMap, PropertyBag:
			return true
		}
		v := reflect.Indirect(reflect.ValueOf(value))
		return v.Kind() == reflect.Struct || v.Kind() == reflect.Map
	case ParamKeyValuePair:
		_, ok := value.(KeyValuePair)
		return ok
	}
	return false
}

// FunctionParameter declares one parameter of a Function.
type FunctionParameter struct {
	Name         string
	Description  string
	DataType     ParameterType
	Optional     bool
	DefaultValue interface{}
}

// Function represents a callable function in templates
type Function interface {
	// Name returns the function name
	Name() string

	// Description returns a short human readable summary
	Description() string

	// Parameters returns the ordered parameter declarations
	Parameters() []*FunctionParameter

	// Call executes the function with resolved arguments. Optional
	// parameters the template left out are filled with their defaults.
	Call(ctx context.Context, tc *TemplateContext, args ...interface{}) (interface{}, error)
}

// RequiredParameterCount returns how many leading parameters are mandatory.
func RequiredParameterCount(fn Function) int {
	count := 0
	for _, p := range fn.Parameters() {
		if p.Optional {
			break
		}
		count++
	}
	return count
}

// validateFunction checks the function name and that required parameters
// precede optional ones.
func validateFunction(fn Function) error {
	name := fn.Name()
	if !IsValidName(name) {
		return fmt.Errorf("invalid function name %q", name)
	}
	optionalSeen := false
	for i, p := range fn.Parameters() {
		if p == nil {
			return fmt.Errorf("function %s: parameter %d is nil", name, i+1)
		}
		if p.Optional {
			optionalSeen = true
		} else if optionalSeen {
			return fmt.Errorf("function %s: required parameter %s follows an optional parameter", name, p.Name)
		}
	}
	return nil
}

// FunctionRegistry manages available functions
type FunctionRegistry interface {
	// RegisterFunction adds a function to the registry
	RegisterFunction(fn Function) error

	// GetFunction retrieves a function by name, enabled or not
	GetFunction(name string) (Function, bool)

	// IsEnabled reports whether a registered function may be called
	IsEnabled(name string) bool

	// EnableFunction re-enables a disabled function
	EnableFunction(name string) error

	// DisableFunction stops templates from calling a function
	DisableFunction(name string) error

	// ListFunctions returns all registered function names
	ListFunctions() []string
}

// DefaultFunctionRegistry is the default implementation of FunctionRegistry
type DefaultFunctionRegistry struct {
	functions map[string]*registeredFunction
	mutex     sync.RWMutex
}

type registeredFunction struct {
	fn      Function
	enabled bool
}

// NewFunctionRegistry creates a new function registry
func NewFunctionRegistry() *DefaultFunctionRegistry {
	return &DefaultFunctionRegistry{
		functions: make(map[string]*registeredFunction),
	}
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	if fn == nil {
		return fmt.Errorf("function cannot be nil")
	}
	if err := validateFunction(fn); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := fn.Name()
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	r.functions[name] = &registeredFunction{fn: fn, enabled: true}
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.functions[name]
	if !exists {
		return nil, false
	}
	return entry.fn, true
}

func (r *DefaultFunctionRegistry) IsEnabled(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.functions[name]
	return exists && entry.enabled
}

func (r *DefaultFunctionRegistry) EnableFunction(name string) error {
	return r.setEnabled(name, true)
}

func (r *DefaultFunctionRegistry) DisableFunction(name string) error {
	return r.setEnabled(name, false)
}

func (r *DefaultFunctionRegistry) setEnabled(name string, enabled bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.functions[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	if entry.enabled == enabled {
		if enabled {
			return fmt.Errorf("function %s is already enabled", name)
		}
		return fmt.Errorf("function %s is already disabled", name)
	}
	entry.enabled = enabled
	return nil
}

func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SimpleFunctionImpl provides a basic implementation of Function
type SimpleFunctionImpl struct {
	name        string
	description string
	parameters  []*FunctionParameter
	handler     func(ctx context.Context, tc *TemplateContext, args ...interface{}) (interface{}, error)
}

// NewSimpleFunction builds a Function from a handler.
func NewSimpleFunction(name, description string, parameters []*FunctionParameter, handler func(ctx context.Context, tc *TemplateContext, args ...interface{}) (interface{}, error)) Function {
	if parameters == nil {
		parameters = []*FunctionParameter{}
	}
	return &SimpleFunctionImpl{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

func (f *SimpleFunctionImpl) Call(ctx context.Context, tc *TemplateContext, args ...interface{}) (interface{}, error) {
	return f.handler(ctx, tc, args...)
}

func (f *SimpleFunctionImpl) Name() string {
	return f.name
}

func (f *SimpleFunctionImpl) Description() string {
	return f.description
}

func (f *SimpleFunctionImpl) Parameters() []*FunctionParameter {
	return f.parameters
}

// FunctionProvider interface allows for providing custom functions
type FunctionProvider interface {
	// ProvideFunctions returns a map of function name to Function implementation
	ProvideFunctions() map[string]Function
}

// prepareArguments checks argument count and types and fills in defaults
// for the optional parameters that were left out.
func prepareArguments(fn Function, args []interface{}) ([]interface{}, error) {
	params := fn.Parameters()
	required := RequiredParameterCount(fn)

	if len(args) < required {
		return nil, NewFunctionError(fn.Name(), args, fmt.Sprintf("requires at least %d arguments, got %d", required, len(args)))
	}
	if len(args) > len(params) {
		return nil, NewFunctionError(fn.Name(), args, fmt.Sprintf("accepts at most %d arguments, got %d", len(params), len(args)))
	}

	prepared := make([]interface{}, len(params))
	copy(prepared, args)
	for i := len(args); i < len(params); i++ {
		prepared[i] = params[i].DefaultValue
	}

	for i, p := range params {
		if !p.DataType.AcceptsValue(prepared[i]) {
			return nil, NewFunctionError(fn.Name(), args, fmt.Sprintf("parameter %s expects %s, got %T", p.Name, p.DataType, prepared[i]))
		}
	}

	return prepared, nil
}

// callFunction invokes fn with validated arguments. Errors that are not
// already function errors are wrapped in one.
func callFunction(ctx context.Context, tc *TemplateContext, fn Function, args []interface{}) (interface{}, error) {
	if tc.Flags().Has(UseUtc) {
		for i, arg := range args {
			if t, ok := arg.(time.Time); ok {
				args[i] = t.UTC()
			}
		}
	}

	prepared, err := prepareArguments(fn, args)
	if err != nil {
		return nil, err
	}

	result, err := fn.Call(ctx, tc, prepared...)
	if err != nil {
		if IsFunctionError(err) {
			return nil, err
		}
		return nil, &FunctionError{Function: fn.Name(), Args: args, Cause: err}
	}
	return result, nil
}
