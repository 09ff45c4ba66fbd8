package nettle

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testLine struct {
	Name  string
	Price float64
}

type testOrder struct {
	ID    int
	Lines []testLine
	notes string
}

func TestTemplateContext_Variables(t *testing.T) {
	root := NewTemplateContext(nil, 0, nil)
	if err := root.DefineVariable("count", 1.0); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}
	if err := root.DefineVariable("count", 2.0); err == nil {
		t.Error("defining a variable twice should fail")
	}

	nested := root.CreateNestedContext("item")
	if v, ok := nested.Variable("count"); !ok || v != 1.0 {
		t.Errorf("nested Variable(count) = %v, %v, want 1, true", v, ok)
	}
	if err := nested.DefineVariable("count", 3.0); err == nil {
		t.Error("redefining a visible variable in a nested context should fail")
	}

	if err := nested.ReassignVariable("count", 5.0); err != nil {
		t.Fatalf("ReassignVariable() error = %v", err)
	}
	if v, _ := root.Variable("count"); v != 5.0 {
		t.Errorf("root count = %v after nested reassignment, want 5", v)
	}

	if err := nested.DefineVariable("local", "x"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}
	if root.HasVariable("local") {
		t.Error("variables declared in a nested context should not leak to the parent")
	}

	want := map[string]interface{}{"count": 5.0, "local": "x"}
	if diff := cmp.Diff(want, nested.Variables()); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateContext_ReassignUndefined(t *testing.T) {
	tc := NewTemplateContext(nil, 0, nil)
	err := tc.ReassignVariable("missing", 1)
	if !errors.Is(err, ErrUndefinedReference) {
		t.Errorf("ReassignVariable() error = %v, want ErrUndefinedReference", err)
	}
}

func TestTemplateContext_StrictReassign(t *testing.T) {
	tc := NewTemplateContext(nil, EnforceStrictReassign, nil)
	if err := tc.DefineVariable("x", 1.0); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}

	if err := tc.ReassignVariable("x", 2); err != nil {
		t.Errorf("reassigning a number with an int should succeed, got %v", err)
	}
	if err := tc.ReassignVariable("x", "text"); err == nil {
		t.Error("reassigning a number with a string should fail")
	}

	loose := NewTemplateContext(nil, 0, nil)
	_ = loose.DefineVariable("x", 1.0)
	if err := loose.ReassignVariable("x", "text"); err != nil {
		t.Errorf("without EnforceStrictReassign the type may change, got %v", err)
	}
}

func TestTemplateContext_PartialIsolation(t *testing.T) {
	root := NewTemplateContext(map[string]interface{}{"Title": "T"}, 0, nil)
	_ = root.DefineVariable("secret", 1)

	partial := root.createPartialContext(map[string]interface{}{"Name": "n"}, "Header")
	if partial.HasVariable("secret") {
		t.Error("a partial should not see the caller's variables")
	}
	if v, ok := partial.Property("Title"); !ok || v != "T" {
		t.Errorf("partial Property(Title) = %v, %v, want T, true", v, ok)
	}
	if diff := cmp.Diff([]string{"Header"}, partial.PartialCallStack()); diff != "" {
		t.Errorf("PartialCallStack() mismatch (-want +got):\n%s", diff)
	}
	if partial.Depth() != 1 || root.Depth() != 0 {
		t.Errorf("Depth() = %d (partial), %d (root), want 1, 0", partial.Depth(), root.Depth())
	}

	_ = partial.DefineVariable("secret", 2)
	if v, _ := root.Variable("secret"); v != 1 {
		t.Errorf("root secret = %v, want 1", v)
	}

	nested := partial.CreateNestedContext(nil)
	if diff := cmp.Diff([]string{"Header"}, nested.PartialCallStack()); diff != "" {
		t.Errorf("nested contexts should keep the call stack (-want +got):\n%s", diff)
	}
}

func TestTemplateContext_DisableModelInheritance(t *testing.T) {
	root := NewTemplateContext(map[string]interface{}{"A": 1}, DisableModelInheritance, nil)
	_ = root.DefineVariable("v", 1)

	nested := root.CreateNestedContext(map[string]interface{}{"B": 2})
	if _, ok := nested.Property("A"); ok {
		t.Error("parent properties should be hidden with DisableModelInheritance")
	}
	if v, ok := nested.Property("B"); !ok || v != 2 {
		t.Errorf("Property(B) = %v, %v, want 2, true", v, ok)
	}
	if nested.HasVariable("v") {
		t.Error("parent variables should be hidden with DisableModelInheritance")
	}

	inheriting := NewTemplateContext(map[string]interface{}{"A": 1}, 0, nil).CreateNestedContext(nil)
	if v, ok := inheriting.Property("A"); !ok || v != 1 {
		t.Errorf("Property(A) = %v, %v, want 1, true", v, ok)
	}
}

func TestTemplateContext_Parent(t *testing.T) {
	root := NewTemplateContext("root", UseUtc, nil)
	if _, ok := root.Parent(); ok {
		t.Error("the root context should have no parent")
	}

	child := root.CreateNestedContext("child")
	parent, ok := child.Parent()
	if !ok || parent.Model() != "root" {
		t.Errorf("Parent() = %v, %v, want the root context", parent, ok)
	}
	if child.Model() != "child" {
		t.Errorf("Model() = %v, want child", child.Model())
	}
	if !child.Flags().Has(UseUtc) {
		t.Error("nested contexts should keep the flags")
	}
}

func TestTemplateContext_Resolve(t *testing.T) {
	order := &testOrder{
		ID: 7,
		Lines: []testLine{
			{Name: "pen", Price: 1.5},
			{Name: "ink", Price: 3},
		},
		notes: "hidden",
	}
	model := map[string]interface{}{
		"Order": order,
		"Name":  "Ada",
		"Pair":  KeyValuePair{Key: "k", Value: "v"},
	}

	tc := NewTemplateContext(model, 0, nil)
	_ = tc.DefineVariable("i", 1.0)
	_ = tc.DefineVariable("Name", "variable wins")

	tests := []struct {
		path string
		want interface{}
	}{
		{"Order.ID", 7},
		{"Order.Lines[0].Name", "pen"},
		{"Order.Lines[i].Price", 3.0},
		{"$.Order.Lines[1].Name", "ink"},
		{"Name", "variable wins"},
		{"$.Name", "Ada"},
		{"Pair.Key", "k"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := tc.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v (%T), want %v (%T)", tt.path, got, got, tt.want, tt.want)
			}
		})
	}

	self, err := tc.Resolve("$")
	if err != nil {
		t.Fatalf("Resolve($) error = %v", err)
	}
	if diff := cmp.Diff(model, self, cmp.AllowUnexported(testOrder{})); diff != "" {
		t.Errorf("Resolve($) mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateContext_ResolveUndefined(t *testing.T) {
	model := map[string]interface{}{
		"Order": &testOrder{Lines: []testLine{{Name: "pen"}}},
	}

	paths := []string{
		"Missing",
		"Order.Missing",
		"Order.notes",
		"Order.Lines[5]",
		"Order.Lines[j]",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tc := NewTemplateContext(model, 0, nil)
			_, err := tc.Resolve(path)
			if !errors.Is(err, ErrUndefinedReference) {
				t.Errorf("Resolve(%q) error = %v, want ErrUndefinedReference", path, err)
			}

			implicit := NewTemplateContext(model, AllowImplicitBindings, nil)
			got, err := implicit.Resolve(path)
			if err != nil || got != nil {
				t.Errorf("Resolve(%q) with AllowImplicitBindings = %v, %v, want nil, nil", path, got, err)
			}
		})
	}
}

func TestTemplateContext_ResolveInvalidIndex(t *testing.T) {
	tc := NewTemplateContext(map[string]interface{}{"Name": "x", "Items": []int{1}}, 0, nil)
	_ = tc.DefineVariable("half", 0.5)

	if _, err := tc.Resolve("Name[0]"); err == nil {
		t.Error("indexing a string should fail")
	}
	if _, err := tc.Resolve("Items[half]"); err == nil {
		t.Error("indexing with a fraction should fail")
	}
}

func TestTemplateContext_PropertyBagAndAccessor(t *testing.T) {
	m := NewOrderedMap()
	m.Set("Name", "ordered")
	tc := NewTemplateContext(m, 0, nil)
	if got, _ := tc.Resolve("Name"); got != "ordered" {
		t.Errorf("Resolve(Name) = %v, want ordered", got)
	}

	custom := func(model interface{}) (map[string]interface{}, bool) {
		if s, ok := model.(string); ok {
			return map[string]interface{}{"Length": len(s)}, true
		}
		return nil, false
	}
	tc = NewTemplateContext("hello", 0, custom)
	if got, _ := tc.Resolve("Length"); got != 5 {
		t.Errorf("Resolve(Length) = %v, want 5", got)
	}
	if diff := cmp.Diff(map[string]interface{}{"Length": 5}, tc.PropertyValues()); diff != "" {
		t.Errorf("PropertyValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestReflectAccessor(t *testing.T) {
	props, ok := ReflectAccessor(&testLine{Name: "pen", Price: 2})
	if !ok {
		t.Fatal("ReflectAccessor should read struct pointers")
	}
	if diff := cmp.Diff(map[string]interface{}{"Name": "pen", "Price": 2.0}, props); diff != "" {
		t.Errorf("struct properties mismatch (-want +got):\n%s", diff)
	}

	props, ok = ReflectAccessor(map[string]int{"a": 1})
	if !ok || props["a"] != 1 {
		t.Errorf("map properties = %v, %v", props, ok)
	}

	for _, model := range []interface{}{nil, 42, "text", map[int]string{1: "a"}, (*testLine)(nil)} {
		if _, ok := ReflectAccessor(model); ok {
			t.Errorf("ReflectAccessor(%#v) should report false", model)
		}
	}
}

func TestTemplateContext_ConcurrentScopes(t *testing.T) {
	root := NewTemplateContext(map[string]interface{}{"Base": 1}, 0, nil)
	_ = root.DefineVariable("shared", 0.0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nested := root.CreateNestedContext(i)
			if _, err := nested.Resolve("Base"); err != nil {
				t.Errorf("Resolve(Base) error = %v", err)
			}
			if got := nested.Model(); got != i {
				t.Errorf("Model() = %v, want %d", got, i)
			}
		}(i)
	}
	wg.Wait()
}
