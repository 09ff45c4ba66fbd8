package nettle

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RenderFunc renders a compiled template against a model.
type RenderFunc func(ctx context.Context, model interface{}) (string, error)

// RegisteredTemplate is a named template that other templates can render
// as a partial.
type RegisteredTemplate struct {
	Name     string
	Template *Template
	Flags    TemplateFlag
	Render   RenderFunc
}

// TemplateRegistry holds named templates.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*RegisteredTemplate
}

// NewTemplateRegistry creates an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*RegisteredTemplate),
	}
}

// Add registers a template. Names must be alphanumeric and unique.
func (r *TemplateRegistry) Add(tmpl *RegisteredTemplate) error {
	if !isAlphanumeric(tmpl.Name) {
		return fmt.Errorf("invalid template name %q: names must be alphanumeric", tmpl.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[tmpl.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, tmpl.Name)
	}
	r.templates[tmpl.Name] = tmpl
	return nil
}

// Remove unregisters a template.
func (r *TemplateRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[name]; !exists {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	delete(r.templates, name)
	return nil
}

// Contains reports whether name is registered.
func (r *TemplateRegistry) Contains(name string) bool {
	_, ok := r.GetTemplate(name)
	return ok
}

// GetTemplate looks a template up by name.
func (r *TemplateRegistry) GetTemplate(name string) (*RegisteredTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[name]
	return tmpl, ok
}

// List returns the registered names, sorted.
func (r *TemplateRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered templates.
func (r *TemplateRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}
