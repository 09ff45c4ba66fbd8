package functions

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

func newCompiler() *nettle.Compiler {
	return nettle.New(
		nettle.WithConfig(nettle.DefaultConfig()),
		nettle.WithLogger(nettle.NewLogger(io.Discard, nettle.LogOff)),
		nettle.WithFunctionProvider(Provider()),
	)
}

func render(t *testing.T, text string, model interface{}, flags ...nettle.TemplateFlag) (string, error) {
	t.Helper()
	fn, err := newCompiler().Compile(text, flags...)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", text, err)
	}
	return fn(context.Background(), model)
}

func TestProvider(t *testing.T) {
	want := []string{
		"Add", "Concat", "Divide", "FormatDate", "FormatNumber", "Length",
		"Lower", "Multiply", "Now", "Sanitize", "Subtract", "Upper",
	}
	if diff := cmp.Diff(want, newCompiler().Functions().ListFunctions()); diff != "" {
		t.Errorf("registered functions mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctions(t *testing.T) {
	model := map[string]interface{}{
		"Name":  "Ada",
		"Price": 2.5,
		"Qty":   int64(4),
		"Items": []string{"a", "b", "c"},
		"Tags":  map[string]bool{"x": true},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"add", "{{@Add(2, 3)}}", "5"},
		{"subtract", "{{@Subtract(2, 3.5)}}", "-1.5"},
		{"multiply model values", "{{@Multiply($Price, $Qty)}}", "10"},
		{"divide", "{{@Divide(7, 2)}}", "3.5"},
		{"nested", "{{@Add(@Multiply(2, 3), 1)}}", "7"},
		{"concat two", `{{@Concat("a", 1)}}`, "a1"},
		{"concat five", `{{@Concat("a", 1, true, "-", $Name)}}`, "a1true-Ada"},
		{"upper", "{{@Upper($Name)}}", "ADA"},
		{"lower", `{{@Lower("MiXeD")}}`, "mixed"},
		{"upper of concat", `{{@Upper(@Concat("a", "b"))}}`, "AB"},
		{"length of text", `{{@Length("héllo")}}`, "5"},
		{"length of slice", "{{@Length($Items)}}", "3"},
		{"length of map", "{{@Length($Tags)}}", "1"},
		{"length of number", "{{@Length(1234)}}", "4"},
		{"in a variable", "{{var n = @Add(1, 1)}}{{n}}", "2"},
		{"format number", "{{@FormatNumber(1234567.891)}}", "1,234,567.89"},
		{"format number decimals", "{{@FormatNumber(-1234, 0)}}", "-1,234"},
		{"format small number", "{{@FormatNumber($Price, 1)}}", "2.5"},
		{"format date string", `{{@FormatDate("2024-03-01", "02 Jan 2006")}}`, "01 Mar 2024"},
		{"format date default layout", `{{@FormatDate("2024-03-01T10:00:00Z")}}`, "2024-03-01"},
		{"format unix seconds", "{{@FormatDate(86400)}}", "1970-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.text, model)
			if err != nil {
				t.Fatalf("render error = %v", err)
			}
			if got != tt.want {
				t.Errorf("render(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDivide_ByZero(t *testing.T) {
	_, err := render(t, "{{@Divide(1, 0)}}", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var fnErr *nettle.FunctionError
	if !errors.As(err, &fnErr) || fnErr.Function != "Divide" {
		t.Errorf("error = %v, want a Divide function error", err)
	}
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestArithmetic_RejectsNonNumbers(t *testing.T) {
	_, err := render(t, "{{@Add($Name, 1)}}", map[string]interface{}{"Name": "Ada"})
	if !nettle.IsFunctionError(err) {
		t.Errorf("error = %v, want a function error", err)
	}
}

func TestNow(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	original := clock
	clock = func() time.Time { return fixed }
	defer func() { clock = original }()

	got, err := render(t, `{{@Now("2006-01-02 15:04")}}`, nil)
	if err != nil || got != "2024-05-06 23:30" {
		t.Errorf("Now() = %q, %v, want local time", got, err)
	}

	got, err = render(t, `{{@Now("2006-01-02 15:04")}}`, nil, nettle.UseUtc)
	if err != nil || got != "2024-05-07 04:30" {
		t.Errorf("Now() with UseUtc = %q, %v", got, err)
	}

	got, err = render(t, "{{@Now()}}", nil, nettle.UseUtc)
	if err != nil || got != "2024-05-07T04:30:00Z" {
		t.Errorf("Now() without layout = %q, %v", got, err)
	}
}

func TestSanitize(t *testing.T) {
	model := map[string]interface{}{
		"Html": `<b>hi</b><script>alert(1)</script><a href="javascript:alert(2)">x</a>`,
	}

	got, err := render(t, "{{@Sanitize($Html)}}", model)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(got, "<b>hi</b>") {
		t.Errorf("safe markup should be kept, got %q", got)
	}
	for _, unsafe := range []string{"<script", "alert(1)", "javascript:"} {
		if strings.Contains(got, unsafe) {
			t.Errorf("Sanitize() output %q still contains %q", got, unsafe)
		}
	}

	empty, err := render(t, `{{@Sanitize("   ")}}`, nil)
	if err != nil || empty != "" {
		t.Errorf("Sanitize(blank) = %q, %v", empty, err)
	}
}

func TestFormatDate_Errors(t *testing.T) {
	for _, text := range []string{`{{@FormatDate("soon")}}`, "{{@FormatDate($Missing)}}", "{{@FormatDate(true)}}"} {
		if _, err := render(t, text, nil, nettle.AllowImplicitBindings); !nettle.IsFunctionError(err) {
			t.Errorf("render(%q) error = %v, want a function error", text, err)
		}
	}
}

func TestFormatNumber_NegativeDecimals(t *testing.T) {
	if _, err := render(t, "{{@FormatNumber(1, -1)}}", nil); !nettle.IsFunctionError(err) {
		t.Errorf("error = %v, want a function error", err)
	}
}

func TestGroupThousands(t *testing.T) {
	tests := map[string]string{
		"0":          "0",
		"999":        "999",
		"1000":       "1,000",
		"-12345.678": "-12,345.678",
		"100000":     "100,000",
	}
	for input, want := range tests {
		if got := groupThousands(input); got != want {
			t.Errorf("groupThousands(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		value   interface{}
		want    float64
		wantErr bool
	}{
		{3, 3, false},
		{uint8(2), 2, false},
		{float32(1.5), 1.5, false},
		{"3", 0, true},
		{nil, 0, true},
	}

	for _, tt := range tests {
		got, err := toNumber(tt.value)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("toNumber(%#v) = %v, %v, want %v, wantErr %v", tt.value, got, err, tt.want, tt.wantErr)
		}
	}
}
