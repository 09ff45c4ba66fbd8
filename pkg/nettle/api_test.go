package nettle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestCompiler_ParseCachesTemplates(t *testing.T) {
	c := newTestCompiler(t)

	first, err := c.Parse("Hello {{Name}}")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := c.Parse("Hello {{Name}}")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if first != second {
		t.Error("parsing the same text twice should return the cached template")
	}

	if err := c.RegisterFunction(numberFunction("Sum")); err != nil {
		t.Fatalf("RegisterFunction() error = %v", err)
	}
	third, _ := c.Parse("Hello {{Name}}")
	if third == first {
		t.Error("registering a function should clear the cache")
	}

	c.ClearCache()
	fourth, _ := c.Parse("Hello {{Name}}")
	if fourth == third {
		t.Error("ClearCache should drop cached templates")
	}
}

func TestCompiler_LogsFunctionChanges(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCompiler(t, WithLogger(NewLogger(&buf, LogInfo)))

	if err := c.RegisterFunction(numberFunction("Sum")); err != nil {
		t.Fatalf("RegisterFunction() error = %v", err)
	}
	if err := c.DisableFunction("Sum"); err != nil {
		t.Fatalf("DisableFunction() error = %v", err)
	}
	if err := c.EnableFunction("Sum"); err != nil {
		t.Fatalf("EnableFunction() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[INFO] Registered function function=Sum",
		"[INFO] Disabled function function=Sum",
		"[INFO] Enabled function function=Sum",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q does not contain %q", out, want)
		}
	}
}

func TestCompiler_CacheDisabled(t *testing.T) {
	config := DefaultConfig()
	config.CacheMaxSize = 0
	c := newTestCompiler(t, WithConfig(config))

	first, _ := c.Parse("x")
	second, _ := c.Parse("x")
	if first == second {
		t.Error("with a zero cache size every parse should build a new template")
	}
}

func TestCompiler_CompileErrors(t *testing.T) {
	c := newTestCompiler(t)

	if _, err := c.Compile("{{each Items}}"); !IsParseError(err) {
		t.Errorf("Compile() error = %v, want a parse error", err)
	}
	if _, err := c.Compile("{{x++}}"); !IsValidationError(err) {
		t.Errorf("Compile() error = %v, want a validation error", err)
	}
}

func TestCompiler_FunctionToggles(t *testing.T) {
	c := newTestCompiler(t)
	text := "{{@Add(1, 2)}}"

	if _, err := c.Compile(text); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if err := c.DisableFunction("Add"); err != nil {
		t.Fatalf("DisableFunction() error = %v", err)
	}
	if _, err := c.Compile(text); !IsValidationError(err) {
		t.Errorf("Compile() with a disabled function error = %v, want a validation error", err)
	}
	if err := c.DisableFunction("Add"); err == nil {
		t.Error("disabling a disabled function should fail")
	}

	if err := c.EnableFunction("Add"); err != nil {
		t.Fatalf("EnableFunction() error = %v", err)
	}
	if err := c.EnableFunction("Add"); err == nil {
		t.Error("enabling an enabled function should fail")
	}
	if _, err := c.Compile(text); err != nil {
		t.Errorf("Compile() after enabling error = %v", err)
	}

	if err := c.DisableFunction("Nope"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("DisableFunction(Nope) error = %v, want ErrFunctionNotFound", err)
	}
}

func TestCompiler_DisabledFunctionAtRender(t *testing.T) {
	c := newTestCompiler(t)
	render, err := c.Compile("{{@Add(1, 2)}}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	_ = c.DisableFunction("Add")
	if _, err := render(context.Background(), nil); err == nil {
		t.Error("rendering a disabled function should fail")
	}
}

func TestCompiler_RegisterTemplate(t *testing.T) {
	c := newTestCompiler(t)

	if err := c.RegisterTemplate("bad-name", "x"); err == nil {
		t.Error("non alphanumeric names should be rejected")
	}
	if err := c.RegisterTemplate("Broken", "{{each A}}"); !IsParseError(err) {
		t.Errorf("RegisterTemplate() error = %v, want a parse error", err)
	}

	mustRegister(t, c, "Greeting", "Hi {{Name}}", AllowImplicitBindings)
	if err := c.RegisterTemplate("Greeting", "again"); !errors.Is(err, ErrDuplicateTemplate) {
		t.Errorf("RegisterTemplate() error = %v, want ErrDuplicateTemplate", err)
	}

	got, err := c.Render(context.Background(), "Greeting", nil)
	if err != nil || got != "Hi " {
		t.Errorf("Render() = %q, %v, want %q", got, err, "Hi ")
	}

	if diff := cmp.Diff([]string{"Greeting"}, c.Templates().List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if err := c.RemoveTemplate("Greeting"); err != nil {
		t.Fatalf("RemoveTemplate() error = %v", err)
	}
	if err := c.RemoveTemplate("Greeting"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("RemoveTemplate() error = %v, want ErrTemplateNotFound", err)
	}
	if _, err := c.Render(context.Background(), "Greeting", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Render() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestCompiler_RegisterViews(t *testing.T) {
	fsys := fstest.MapFS{
		"views/Header.nettle": {Data: []byte("== {{Title}} ==")},
		"views/Page.nettle":   {Data: []byte("{{> Header}}\n{{Body}}")},
		"views/notes.txt":     {Data: []byte("ignored")},
	}
	c := newTestCompiler(t)

	names, err := c.RegisterViews(fsys, "views/*.nettle")
	if err != nil {
		t.Fatalf("RegisterViews() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Header", "Page"}, names); diff != "" {
		t.Errorf("RegisterViews() names mismatch (-want +got):\n%s", diff)
	}

	got, err := c.Render(context.Background(), "Page", map[string]interface{}{"Title": "T", "Body": "b"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "== T ==\nb" {
		t.Errorf("Render() = %q", got)
	}

	if _, err := c.RegisterViews(fsys, "["); err == nil {
		t.Error("an invalid pattern should fail")
	}
}

func TestCompiler_WithFlags(t *testing.T) {
	c := newTestCompiler(t, WithFlags(AllowImplicitBindings))
	got, err := renderText(t, c, "[{{Missing}}]", nil)
	if err != nil || got != "[]" {
		t.Errorf("got %q, %v, want [], nil", got, err)
	}
}

func TestCompiler_ConfigDefaultFlags(t *testing.T) {
	config := DefaultConfig()
	config.DefaultFlags = AllowImplicitBindings
	c := newTestCompiler(t, WithConfig(config))

	got, err := renderText(t, c, "[{{Missing}}]", nil)
	if err != nil || got != "[]" {
		t.Errorf("got %q, %v, want [], nil", got, err)
	}
}

type greetingProvider struct{}

func (greetingProvider) ProvideFunctions() map[string]Function {
	hello := NewSimpleFunction("Hello", "greets", []*FunctionParameter{
		{Name: "name", DataType: ParamString, Optional: true, DefaultValue: "world"},
	}, func(_ context.Context, _ *TemplateContext, args ...interface{}) (interface{}, error) {
		return fmt.Sprintf("hello %s", args[0]), nil
	})
	return map[string]Function{"Hello": hello}
}

func TestCompiler_FunctionProvider(t *testing.T) {
	c := newTestCompiler(t, WithFunctionProvider(greetingProvider{}))
	got, err := renderText(t, c, `{{@Hello()}}, {{@Hello("you")}}`, nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "hello world, hello you" {
		t.Errorf("got %q", got)
	}

	other := newTestCompiler(t)
	if err := other.RegisterFunctionsFromProvider(greetingProvider{}); err != nil {
		t.Fatalf("RegisterFunctionsFromProvider() error = %v", err)
	}
	if err := other.RegisterFunctionsFromProvider(greetingProvider{}); !errors.Is(err, ErrDuplicateFunction) {
		t.Errorf("second registration error = %v, want ErrDuplicateFunction", err)
	}
	if diff := cmp.Diff([]string{"Add", "Hello"}, other.Functions().ListFunctions()); diff != "" {
		t.Errorf("ListFunctions() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompiler_ConcurrentRenders(t *testing.T) {
	c := newTestCompiler(t)
	render, err := c.Compile("{{var total = 0}}{{each Items}}{{reassign total = @Add(total, $)}}{{/each}}{{Name}}={{total}}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			model := map[string]interface{}{
				"Name":  fmt.Sprintf("n%d", i),
				"Items": []int{i, i},
			}
			got, err := render(context.Background(), model)
			if err != nil {
				t.Errorf("render error = %v", err)
				return
			}
			if want := fmt.Sprintf("n%d=%d", i, 2*i); got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestCompiler_Accessors(t *testing.T) {
	config := DefaultConfig()
	c := newTestCompiler(t, WithConfig(config))
	if c.Config() != config {
		t.Error("Config() should return the configured value")
	}
	if _, ok := c.Functions().GetFunction("Add"); !ok {
		t.Error("Functions() should expose registered functions")
	}
	if c.Templates().Len() != 0 {
		t.Error("a new compiler should have no templates")
	}
}

func TestDefaultCompiler(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return a shared compiler")
	}

	render, err := Compile("x{{= (true) ? \"y\" : \"n\"}}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got, err := render(context.Background(), nil)
	if err != nil || got != "xy" {
		t.Errorf("got %q, %v, want xy, nil", got, err)
	}

	// the default compiler outlives a single run with -count > 1
	if err := RegisterTemplate("DefaultCompilerTest", "ok"); err != nil && !errors.Is(err, ErrDuplicateTemplate) {
		t.Fatalf("RegisterTemplate() error = %v", err)
	}
	got, err = Render(context.Background(), "DefaultCompilerTest", nil)
	if err != nil || got != "ok" {
		t.Errorf("Render() = %q, %v, want ok, nil", got, err)
	}
}
