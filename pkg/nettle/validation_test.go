package nettle

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func numberFunction(name string) Function {
	return NewSimpleFunction(name, "test arithmetic",
		[]*FunctionParameter{
			{Name: "a", DataType: ParamNumber},
			{Name: "b", DataType: ParamNumber},
		},
		func(_ context.Context, _ *TemplateContext, args ...interface{}) (interface{}, error) {
			a, _ := toFloat64(args[0])
			b, _ := toFloat64(args[1])
			return a + b, nil
		})
}

func validate(t *testing.T, registry FunctionRegistry, text string) []ValidationIssue {
	t.Helper()
	tmpl, err := ParseTemplate(text)
	if err != nil {
		t.Fatalf("ParseTemplate(%q) error = %v", text, err)
	}

	err = NewTemplateValidator(registry).Validate(tmpl)
	if err == nil {
		return nil
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Validate() returned %T, want *ValidationError", err)
	}
	return validationErr.Issues
}

func TestTemplateValidator_Valid(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.RegisterFunction(numberFunction("Add"))

	templates := []string{
		"Hello {{Name}}!",
		"{{var x = 1}}{{reassign x = 2}}{{x++}}{{x--}}",
		"{{var x = $Name}}{{x}}",
		"{{var total = 0}}{{each Items}}{{reassign total = @Add(total, $Price)}}{{/each}}",
		"{{each Items}}{{$}}{{/each}}",
		"{{if (Age >= 18)}}a{{else if (Missing)}}b{{/if}}",
		`{{= (Active) ? Name : "none"}}`,
		"{{> Row Line}}",
		"{{each [A = 1]}}{{Key}}{{/each}}",
		"{{var i = 0}}{{while (i < 3)}}{{i++}}{{/while}}",
		"{{var n = 2}}{{@Add(n, 1)}}",
	}

	for _, text := range templates {
		t.Run(text, func(t *testing.T) {
			if issues := validate(t, registry, text); len(issues) > 0 {
				t.Errorf("unexpected issues: %v", issues)
			}
		})
	}
}

func TestTemplateValidator_Issues(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.RegisterFunction(numberFunction("Add"))
	_ = registry.RegisterFunction(numberFunction("Off"))
	_ = registry.DisableFunction("Off")

	tests := []struct {
		name string
		text string
		want string
	}{
		{"duplicate declaration", "{{var x = 1}}{{var x = 2}}", "variable x is already declared"},
		{"duplicate in nested body", "{{var x = 1}}{{each Items}}{{var x = 2}}{{/each}}", "variable x is already declared"},
		{"reassign undeclared", "{{reassign y = 1}}", "variable y is not declared"},
		{"increment undeclared", "{{y++}}", "variable y is not declared"},
		{"decrement undeclared", "{{y--}}", "variable y is not declared"},
		{"assignment from undeclared", "{{var a = b}}", "variable b is not declared"},
		{"assignment from model without dollar", "{{var a = Name}}", "variable Name is not declared"},
		{"parameter undeclared", "{{@Add(x, 1)}}", "variable x is not declared"},
		{"nested parameter undeclared", `{{= (A) ? @Add(x, 1) : 0}}`, "variable x is not declared"},
		{"used before declaration", "{{if (x)}}a{{/if}}{{var x = 1}}", "variable x is used before it is declared"},
		{"loop over later variable", "{{each list}}a{{/each}}{{var list = 1}}", "variable list is used before it is declared"},
		{"unknown function", "{{@Nope()}}", "function Nope is not registered"},
		{"disabled function", "{{@Off(1, 2)}}", "function Off is disabled"},
		{"too few arguments", "{{@Add(1)}}", "function Add requires at least 2 arguments, got 1"},
		{"too many arguments", "{{@Add(1, 2, 3)}}", "function Add accepts at most 2 arguments, got 3"},
		{"wrong literal type", `{{@Add("a", 2)}}`, "argument 1 of Add must be Number, got String"},
		{"function in condition", "{{if (@Nope() > 1)}}a{{/if}}", "function Nope is not registered"},
		{"loop over number", "{{each 5}}x{{/each}}", "cannot iterate over a Number value"},
		{"loop over boolean", "{{each true}}x{{/each}}", "cannot iterate over a Boolean value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validate(t, registry, tt.text)
			if len(issues) == 0 {
				t.Fatalf("expected issues for %q", tt.text)
			}
			found := false
			for _, issue := range issues {
				if strings.Contains(issue.Message, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("issues = %v, want one containing %q", issues, tt.want)
			}
		})
	}
}

func TestTemplateValidator_CollectsAllIssues(t *testing.T) {
	issues := validate(t, NewFunctionRegistry(), "{{reassign a = 1}}\n{{@Nope()}}\n{{each 1}}{{/each}}")
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3: %v", len(issues), issues)
	}

	if issues[0].Signature != "{{reassign a = 1}}" || issues[0].Position != 0 {
		t.Errorf("first issue = %+v, want the reassignment at 0", issues[0])
	}
	if issues[1].Position != len("{{reassign a = 1}}\n") {
		t.Errorf("second issue position = %d", issues[1].Position)
	}
}

func TestTemplateValidator_NilRegistry(t *testing.T) {
	if issues := validate(t, nil, "{{@Anything(1)}}"); len(issues) > 0 {
		t.Errorf("without a registry calls are not checked, got %v", issues)
	}
}

func TestValidationError_Message(t *testing.T) {
	single := &ValidationError{Issues: []ValidationIssue{{Signature: "{{x++}}", Position: 3, Message: "variable x is not declared"}}}
	if got := single.Error(); got != "validation error: {{x++}} (at 3): variable x is not declared" {
		t.Errorf("Error() = %q", got)
	}

	multi := &ValidationError{Issues: []ValidationIssue{{Message: "a"}, {Message: "b"}}}
	if !strings.HasPrefix(multi.Error(), "2 validation issues:") {
		t.Errorf("Error() = %q, want a count prefix", multi.Error())
	}
}
