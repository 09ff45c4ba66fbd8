package nettle

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Compiler parses, validates and renders templates. It owns a registry of
// functions callable from templates and a registry of named templates that
// can be rendered as partials. Use New to create one.
type Compiler struct {
	config    *Config
	logger    *Logger
	flags     TemplateFlag
	accessor  PropertyAccessor
	functions FunctionRegistry
	templates *TemplateRegistry
	cache     *TemplateCache
	validator *TemplateValidator
	renderer  *Renderer
}

// Option represents a configuration option for the compiler.
type Option func(*Compiler)

// New creates a compiler. Without options it uses the global configuration
// and logger and an empty function registry.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		config:    GetGlobalConfig(),
		logger:    GetLogger(),
		functions: NewFunctionRegistry(),
		templates: NewTemplateRegistry(),
		accessor:  ReflectAccessor,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: c.config.CacheMaxSize,
		TTL:     c.config.CacheTTL,
	})
	c.validator = NewTemplateValidator(c.functions)
	c.renderer = NewRenderer(c.functions, c.templates, c.config, c.logger)
	return c
}

// WithConfig returns an option that sets the compiler configuration.
func WithConfig(config *Config) Option {
	return func(c *Compiler) {
		if config != nil {
			c.config = config
		}
	}
}

// WithLogger returns an option that sets the logger.
func WithLogger(logger *Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFlags returns an option that adds flags to every compiled template.
func WithFlags(flags ...TemplateFlag) Option {
	return func(c *Compiler) {
		c.flags |= CombineFlags(flags...)
	}
}

// WithPropertyAccessor returns an option that sets how host models are
// flattened into properties.
func WithPropertyAccessor(accessor PropertyAccessor) Option {
	return func(c *Compiler) {
		if accessor != nil {
			c.accessor = accessor
		}
	}
}

// WithFunction returns an option that registers a function.
func WithFunction(fn Function) Option {
	return func(c *Compiler) {
		if err := c.functions.RegisterFunction(fn); err != nil {
			c.logger.Warn("Failed to register function: %v", err)
		}
	}
}

// WithFunctionProvider returns an option that registers functions from a provider.
func WithFunctionProvider(provider FunctionProvider) Option {
	return func(c *Compiler) {
		if err := registerProvider(c.functions, provider); err != nil {
			c.logger.Warn("Failed to register functions: %v", err)
		}
	}
}

func registerProvider(registry FunctionRegistry, provider FunctionProvider) error {
	functions := provider.ProvideFunctions()
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := registry.RegisterFunction(functions[name]); err != nil {
			return fmt.Errorf("failed to register function %s: %w", name, err)
		}
	}
	return nil
}

// Config returns the compiler's configuration.
func (c *Compiler) Config() *Config {
	return c.config
}

// Functions returns the function registry.
func (c *Compiler) Functions() FunctionRegistry {
	return c.functions
}

// Templates returns the registry of named templates.
func (c *Compiler) Templates() *TemplateRegistry {
	return c.templates
}

// Parse parses and validates text. Results are cached by source text until
// the function registry changes.
func (c *Compiler) Parse(text string) (*Template, error) {
	key := CacheKey(text)
	if tmpl, ok := c.cache.Get(key); ok {
		c.logger.Debug("Template cache hit for %s", key[:12])
		return tmpl, nil
	}

	tmpl, err := ParseTemplate(text)
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(tmpl); err != nil {
		return nil, err
	}

	c.cache.Set(key, tmpl)
	return tmpl, nil
}

// Compile parses and validates text and returns a function rendering it.
// flags are combined with the compiler's and the configuration's defaults.
func (c *Compiler) Compile(text string, flags ...TemplateFlag) (RenderFunc, error) {
	tmpl, err := c.Parse(text)
	if err != nil {
		return nil, err
	}
	return c.renderFunc(tmpl, c.effectiveFlags(flags), nil), nil
}

func (c *Compiler) effectiveFlags(flags []TemplateFlag) TemplateFlag {
	return c.flags | c.config.DefaultFlags | CombineFlags(flags...)
}

// renderFunc closes over a parsed template. stack seeds the partial call
// stack, so a registered template cannot render itself as a partial.
func (c *Compiler) renderFunc(tmpl *Template, flags TemplateFlag, stack []string) RenderFunc {
	return func(ctx context.Context, model interface{}) (string, error) {
		if ctx == nil {
			ctx = context.Background()
		}
		tc := newTemplateContext(model, flags, c.accessor, stack)
		return c.renderer.Render(ctx, tmpl, tc)
	}
}

// RegisterTemplate compiles text and stores it under name, making it
// available to {{> name}}.
func (c *Compiler) RegisterTemplate(name, text string, flags ...TemplateFlag) error {
	if !isAlphanumeric(name) {
		return fmt.Errorf("invalid template name %q: names must be alphanumeric", name)
	}
	if c.templates.Contains(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, name)
	}

	tmpl, err := c.Parse(text)
	if err != nil {
		return fmt.Errorf("failed to compile template %s: %w", name, err)
	}

	combined := c.effectiveFlags(flags)
	registered := &RegisteredTemplate{
		Name:     name,
		Template: tmpl,
		Flags:    combined,
		Render:   c.renderFunc(tmpl, combined, []string{name}),
	}
	if err := c.templates.Add(registered); err != nil {
		return err
	}

	c.logger.WithField("template", name).Info("Registered template")
	return nil
}

// RemoveTemplate unregisters a named template.
func (c *Compiler) RemoveTemplate(name string) error {
	if err := c.templates.Remove(name); err != nil {
		return err
	}
	c.logger.WithField("template", name).Info("Removed template")
	return nil
}

// Render renders a registered template.
func (c *Compiler) Render(ctx context.Context, name string, model interface{}) (string, error) {
	tmpl, ok := c.templates.GetTemplate(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return tmpl.Render(ctx, model)
}

// RegisterViews registers every file of fsys matching pattern (see
// fs.Glob) under its base name without extension, e.g. views/Header.nettle
// becomes Header. It returns the registered names.
func (c *Compiler) RegisterViews(fsys fs.FS, pattern string, flags ...TemplateFlag) ([]string, error) {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid view pattern %q: %w", pattern, err)
	}

	var names []string
	for _, file := range matches {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return names, fmt.Errorf("failed to read view %s: %w", file, err)
		}

		base := path.Base(file)
		name := strings.TrimSuffix(base, path.Ext(base))
		if err := c.RegisterTemplate(name, string(data), flags...); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// RegisterFunction adds a function that templates can call.
func (c *Compiler) RegisterFunction(fn Function) error {
	if err := c.functions.RegisterFunction(fn); err != nil {
		return err
	}
	c.functionsChanged("Registered function", fn.Name())
	return nil
}

// RegisterFunctionsFromProvider registers all functions from a provider.
func (c *Compiler) RegisterFunctionsFromProvider(provider FunctionProvider) error {
	if err := registerProvider(c.functions, provider); err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}

// DisableFunction stops templates from calling name. Disabling a function
// that is already disabled is an error.
func (c *Compiler) DisableFunction(name string) error {
	if err := c.functions.DisableFunction(name); err != nil {
		return err
	}
	c.functionsChanged("Disabled function", name)
	return nil
}

// EnableFunction re-enables a disabled function. Enabling a function that
// is already enabled is an error.
func (c *Compiler) EnableFunction(name string) error {
	if err := c.functions.EnableFunction(name); err != nil {
		return err
	}
	c.functionsChanged("Enabled function", name)
	return nil
}

// functionsChanged drops cached validation results, which depend on the
// function registry.
func (c *Compiler) functionsChanged(message, name string) {
	c.cache.Clear()
	c.logger.WithField("function", name).Info("%s", message)
}

// ClearCache removes all templates from the compile cache.
func (c *Compiler) ClearCache() {
	c.cache.Clear()
}

var (
	defaultCompiler     *Compiler
	defaultCompilerOnce sync.Once
)

// Default returns the shared compiler used by the package level functions.
func Default() *Compiler {
	defaultCompilerOnce.Do(func() {
		defaultCompiler = New()
	})
	return defaultCompiler
}

// Compile compiles text with the default compiler.
func Compile(text string, flags ...TemplateFlag) (RenderFunc, error) {
	return Default().Compile(text, flags...)
}

// RegisterTemplate registers a named template with the default compiler.
func RegisterTemplate(name, text string, flags ...TemplateFlag) error {
	return Default().RegisterTemplate(name, text, flags...)
}

// RegisterFunction registers a function with the default compiler.
func RegisterFunction(fn Function) error {
	return Default().RegisterFunction(fn)
}

// Render renders a template registered with the default compiler.
func Render(ctx context.Context, name string, model interface{}) (string, error) {
	return Default().Render(ctx, name, model)
}
