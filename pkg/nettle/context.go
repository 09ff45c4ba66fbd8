package nettle

import (
	"fmt"
	"reflect"
	"sync"
)

// PropertyBag is implemented by models that expose their own properties.
type PropertyBag interface {
	Properties() map[string]interface{}
}

// PropertyAccessor flattens a host model into a property map. It reports
// false for values it does not know how to read.
type PropertyAccessor func(model interface{}) (map[string]interface{}, bool)

// ReflectAccessor reads the exported fields of structs (or pointers to
// structs) and the entries of string keyed maps.
func ReflectAccessor(model interface{}) (map[string]interface{}, bool) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		props := make(map[string]interface{}, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			props[field.Name] = v.Field(i).Interface()
		}
		return props, true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		props := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			props[iter.Key().String()] = iter.Value().Interface()
		}
		return props, true
	}
	return nil, false
}

// modelProperties flattens a model into its property map. Values without
// properties (numbers, strings, slices) produce an empty map.
func modelProperties(model interface{}, accessor PropertyAccessor) map[string]interface{} {
	switch m := model.(type) {
	case nil:
		return map[string]interface{}{}
	case *OrderedMap:
		return m.Properties()
	case PropertyBag:
		return m.Properties()
	case map[string]interface{}:
		props := make(map[string]interface{}, len(m))
		for k, v := range m {
			props[k] = v
		}
		return props
	}

	if accessor != nil {
		if props, ok := accessor(model); ok {
			return props
		}
	}
	return map[string]interface{}{}
}

// scope is one node of a context tree. Scopes live in an arena and refer to
// their parent by index; the root has parent -1.
type scope struct {
	parent     int
	model      interface{}
	properties map[string]interface{}
	variables  map[string]interface{}
	// inherit is false when the scope may not look at its parent's
	// properties and variables.
	inherit bool
	// isolated scopes (partials) do not see variables above them.
	isolated     bool
	partialStack []string
	flags        TemplateFlag
}

type scopeArena struct {
	mu       sync.RWMutex
	scopes   []*scope
	accessor PropertyAccessor
}

// TemplateContext is the runtime state a block renders against: the bound
// model and its properties, declared variables, template flags and the stack
// of partials being rendered. It is a handle on one scope of a per render
// tree; nested contexts are created for loop iterations, branches and
// partials.
type TemplateContext struct {
	arena *scopeArena
	index int
}

// NewTemplateContext creates the root context of a render. A nil accessor
// defaults to ReflectAccessor.
func NewTemplateContext(model interface{}, flags TemplateFlag, accessor PropertyAccessor) *TemplateContext {
	return newTemplateContext(model, flags, accessor, nil)
}

// newTemplateContext creates a root context whose call stack already holds
// the given partial names.
func newTemplateContext(model interface{}, flags TemplateFlag, accessor PropertyAccessor, stack []string) *TemplateContext {
	if accessor == nil {
		accessor = ReflectAccessor
	}
	arena := &scopeArena{accessor: accessor}
	arena.scopes = append(arena.scopes, &scope{
		parent:       -1,
		model:        model,
		properties:   modelProperties(model, accessor),
		variables:    make(map[string]interface{}),
		inherit:      true,
		partialStack: append([]string{}, stack...),
		flags:        flags,
	})
	return &TemplateContext{arena: arena, index: 0}
}

func (c *TemplateContext) scope() *scope {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()
	return c.arena.scopes[c.index]
}

// Model returns the model bound to this context.
func (c *TemplateContext) Model() interface{} {
	return c.scope().model
}

// Flags returns the template flags in effect.
func (c *TemplateContext) Flags() TemplateFlag {
	return c.scope().flags
}

// Parent returns the enclosing context, or false for the root.
func (c *TemplateContext) Parent() (*TemplateContext, bool) {
	s := c.scope()
	if s.parent < 0 {
		return nil, false
	}
	return &TemplateContext{arena: c.arena, index: s.parent}, true
}

// PartialCallStack returns the names of the partials being rendered,
// outermost first.
func (c *TemplateContext) PartialCallStack() []string {
	s := c.scope()
	stack := make([]string, len(s.partialStack))
	copy(stack, s.partialStack)
	return stack
}

// Depth returns the number of partials being rendered.
func (c *TemplateContext) Depth() int {
	return len(c.scope().partialStack)
}

// PropertyValues returns a copy of the properties flattened from this
// context's own model.
func (c *TemplateContext) PropertyValues() map[string]interface{} {
	s := c.scope()
	props := make(map[string]interface{}, len(s.properties))
	for k, v := range s.properties {
		props[k] = v
	}
	return props
}

// CreateNestedContext creates a child context bound to model. Flags and the
// partial call stack are carried over.
func (c *TemplateContext) CreateNestedContext(model interface{}) *TemplateContext {
	return c.addScope(model, false, "")
}

// createPartialContext creates the context a partial renders in: caller
// variables are hidden and the partial's name is pushed on the call stack.
func (c *TemplateContext) createPartialContext(model interface{}, name string) *TemplateContext {
	return c.addScope(model, true, name)
}

func (c *TemplateContext) addScope(model interface{}, isolated bool, partial string) *TemplateContext {
	c.arena.mu.Lock()
	defer c.arena.mu.Unlock()

	parent := c.arena.scopes[c.index]
	stack := make([]string, len(parent.partialStack), len(parent.partialStack)+1)
	copy(stack, parent.partialStack)
	if partial != "" {
		stack = append(stack, partial)
	}

	c.arena.scopes = append(c.arena.scopes, &scope{
		parent:       c.index,
		model:        model,
		properties:   modelProperties(model, c.arena.accessor),
		variables:    make(map[string]interface{}),
		inherit:      !parent.flags.Has(DisableModelInheritance),
		isolated:     isolated,
		partialStack: stack,
		flags:        parent.flags,
	})
	return &TemplateContext{arena: c.arena, index: len(c.arena.scopes) - 1}
}

// variableChain returns the scopes whose variables are visible from this
// context, innermost first. The caller must hold the arena lock.
func (c *TemplateContext) variableChain() []*scope {
	var chain []*scope
	for i := c.index; i >= 0; {
		s := c.arena.scopes[i]
		chain = append(chain, s)
		if s.isolated || !s.inherit {
			break
		}
		i = s.parent
	}
	return chain
}

// Variable looks name up in this context and the ancestors it inherits from.
func (c *TemplateContext) Variable(name string) (interface{}, bool) {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()

	for _, s := range c.variableChain() {
		if v, ok := s.variables[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// HasVariable reports whether name is visible from this context.
func (c *TemplateContext) HasVariable(name string) bool {
	_, ok := c.Variable(name)
	return ok
}

// Variables returns every visible variable, inner declarations shadowing outer ones.
func (c *TemplateContext) Variables() map[string]interface{} {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()

	vars := make(map[string]interface{})
	for _, s := range c.variableChain() {
		for k, v := range s.variables {
			if _, shadowed := vars[k]; !shadowed {
				vars[k] = v
			}
		}
	}
	return vars
}

// DefineVariable declares name in this context. A name may only be defined
// once along a chain of contexts.
func (c *TemplateContext) DefineVariable(name string, value interface{}) error {
	c.arena.mu.Lock()
	defer c.arena.mu.Unlock()

	for _, s := range c.variableChain() {
		if _, ok := s.variables[name]; ok {
			return fmt.Errorf("variable %s is already defined", name)
		}
	}
	c.arena.scopes[c.index].variables[name] = value
	return nil
}

// ReassignVariable updates an existing variable. Every visible scope that
// holds the name is updated, so changes made inside a loop or branch remain
// visible once it has rendered. With EnforceStrictReassign the new value
// must have the same type as the current one.
func (c *TemplateContext) ReassignVariable(name string, value interface{}) error {
	c.arena.mu.Lock()
	defer c.arena.mu.Unlock()

	chain := c.variableChain()
	var current interface{}
	found := false
	for _, s := range chain {
		if v, ok := s.variables[name]; ok {
			current, found = v, true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: variable %s is not defined", ErrUndefinedReference, name)
	}

	if c.arena.scopes[c.index].flags.Has(EnforceStrictReassign) && !sameKind(current, value) {
		return fmt.Errorf("cannot reassign variable %s of type %T to a value of type %T", name, current, value)
	}

	for _, s := range chain {
		if _, ok := s.variables[name]; ok {
			s.variables[name] = value
		}
	}
	return nil
}

// Property looks name up in this context's model and then, unless
// inheritance is disabled, in the models of enclosing contexts.
func (c *TemplateContext) Property(name string) (interface{}, bool) {
	c.arena.mu.RLock()
	defer c.arena.mu.RUnlock()

	for i := c.index; i >= 0; {
		s := c.arena.scopes[i]
		if v, ok := s.properties[name]; ok {
			return v, true
		}
		if !s.inherit {
			break
		}
		i = s.parent
	}
	return nil, false
}

// Resolve evaluates a binding path. The root segment is looked up as a
// variable first and as a property second; $ refers to the model.
// Unresolvable paths fail with ErrUndefinedReference unless the
// AllowImplicitBindings flag is set, in which case they resolve to nil.
func (c *TemplateContext) Resolve(signature string) (interface{}, error) {
	path, err := ParsePath(signature)
	if err != nil {
		return nil, err
	}

	root := path.Root()
	var current interface{}
	switch {
	case root.IsModelPointer():
		current = c.Model()
	default:
		v, ok := c.Variable(root.Name)
		if !ok {
			v, ok = c.Property(root.Name)
		}
		if !ok {
			return c.undefined(signature, root.Name)
		}
		current = v
	}

	current, ok, err := c.applyIndexers(current, root.Indexers)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.undefined(signature, root.Signature)
	}

	for _, segment := range path.Segments[1:] {
		props := modelProperties(current, c.arena.accessor)
		v, found := props[segment.Name]
		if !found {
			return c.undefined(signature, segment.Name)
		}
		current, ok, err = c.applyIndexers(v, segment.Indexers)
		if err != nil {
			return nil, err
		}
		if !ok {
			return c.undefined(signature, segment.Signature)
		}
	}

	return current, nil
}

func (c *TemplateContext) applyIndexers(value interface{}, indexers []Indexer) (interface{}, bool, error) {
	for _, indexer := range indexers {
		index := indexer.Index
		if !indexer.IsNumeric() {
			v, ok := c.Variable(indexer.Variable)
			if !ok {
				v, ok = c.Property(indexer.Variable)
			}
			if !ok {
				return nil, false, nil
			}
			n, isInt := toInt(v)
			if !isInt {
				return nil, false, fmt.Errorf("indexer %s must be a whole number, got %T", indexer.Signature, v)
			}
			index = n
		}

		items, isCollection := toSlice(value)
		if !isCollection {
			return nil, false, fmt.Errorf("cannot index %T with %s", value, indexer.Signature)
		}
		if index < 0 || index >= len(items) {
			return nil, false, nil
		}
		value = items[index]
	}
	return value, true, nil
}

func (c *TemplateContext) undefined(signature, name string) (interface{}, error) {
	if c.Flags().Has(AllowImplicitBindings) {
		return nil, nil
	}
	if signature == name {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedReference, signature)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrUndefinedReference, name, signature)
}
