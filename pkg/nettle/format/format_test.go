package format

import "testing"

func TestAutoFormat(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		root     bool
		want     string
	}{
		{
			name: "loop on its own lines",
			segments: []Segment{
				{Output: "Items:\n", Content: true},
				{Output: "- a\n- b\n", Nestable: true, Body: "\n- {{$}}\n"},
				{Output: "\nDone\n", Content: true},
			},
			root: true,
			want: "Items:\n- a\n- b\nDone",
		},
		{
			name: "empty directive output drops the following line break",
			segments: []Segment{
				{Output: "", Content: false},
				{Output: "\nText", Content: true},
			},
			root: true,
			want: "Text",
		},
		{
			name: "inline directive keeps the line break",
			segments: []Segment{
				{Output: "Hi ", Content: true},
				{Output: "Ada"},
				{Output: "\nBye", Content: true},
			},
			root: true,
			want: "Hi Ada\nBye",
		},
		{
			name: "adjacent nestables are separated",
			segments: []Segment{
				{Output: "a", Nestable: true, Body: "\na\n"},
				{Output: "b", Nestable: true, Body: "\nb\n"},
			},
			root: true,
			want: "a\nb",
		},
		{
			name: "nested body ends with one line break",
			segments: []Segment{
				{Output: "\n\n- x", Content: true},
			},
			root: false,
			want: "- x\n",
		},
		{
			name: "empty nested body",
			segments: []Segment{
				{Output: "\n", Content: true},
			},
			root: false,
			want: "",
		},
		{
			name:     "no segments",
			segments: nil,
			root:     true,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoFormat(tt.segments, tt.root); got != tt.want {
				t.Errorf("AutoFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMinify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<ul>\n    <li>a</li>\n</ul>", "<ul><li>a</li></ul>"},
		{"\tx\r\ny\rz", "xyz"},
		{"a  b", "a  b"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Minify(tt.input); got != tt.want {
			t.Errorf("Minify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLineBreakHelpers(t *testing.T) {
	if !EndsWithLineBreak("a\r") || !EndsWithLineBreak("a\n") || EndsWithLineBreak("a") {
		t.Error("EndsWithLineBreak mismatch")
	}
	if got := EnsureTrailingLineBreak("a"); got != "a\n" {
		t.Errorf("EnsureTrailingLineBreak(a) = %q", got)
	}
	if got := EnsureTrailingLineBreak("a\r\n"); got != "a\r\n" {
		t.Errorf("EnsureTrailingLineBreak(a\\r\\n) = %q", got)
	}
	if got := TrimLeadingLineBreak("\r\n\nx"); got != "\nx" {
		t.Errorf("TrimLeadingLineBreak() = %q", got)
	}
	if got := TrimLeadingLineBreak("\n\nx"); got != "\nx" {
		t.Errorf("TrimLeadingLineBreak() = %q", got)
	}
	if got := TrimLeadingLineBreaks("\r\n\nx\n"); got != "x\n" {
		t.Errorf("TrimLeadingLineBreaks() = %q", got)
	}
}
