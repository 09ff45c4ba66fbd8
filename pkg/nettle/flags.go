package nettle

import (
	"fmt"
	"strings"
)

// TemplateFlag is a bit set of compile and render time options.
type TemplateFlag uint16

const (
	// IgnoreErrors degrades a failing block to an empty string instead of aborting the render.
	IgnoreErrors TemplateFlag = 1 << iota
	// DebugMode logs every rendered block.
	DebugMode
	// AllowImplicitBindings resolves undefined bindings to nil instead of failing.
	AllowImplicitBindings
	// EnforceStrictReassign rejects reassignments that change a variable's type.
	EnforceStrictReassign
	// DisableModelInheritance stops nested contexts from seeing their parent's properties and variables.
	DisableModelInheritance
	// AutoFormat tidies line breaks around directives.
	AutoFormat
	// Minify strips tabs, indentation and line breaks from the output.
	Minify
	// UseUtc converts time values to UTC before they are written or passed to functions.
	UseUtc
)

var flagNames = []struct {
	flag TemplateFlag
	name string
}{
	{IgnoreErrors, "IgnoreErrors"},
	{DebugMode, "DebugMode"},
	{AllowImplicitBindings, "AllowImplicitBindings"},
	{EnforceStrictReassign, "EnforceStrictReassign"},
	{DisableModelInheritance, "DisableModelInheritance"},
	{AutoFormat, "AutoFormat"},
	{Minify, "Minify"},
	{UseUtc, "UseUtc"},
}

// Has reports whether every bit of flag is set.
func (f TemplateFlag) Has(flag TemplateFlag) bool {
	return f&flag == flag
}

func (f TemplateFlag) String() string {
	if f == 0 {
		return "None"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// CombineFlags ORs the given flags together.
func CombineFlags(flags ...TemplateFlag) TemplateFlag {
	var combined TemplateFlag
	for _, f := range flags {
		combined |= f
	}
	return combined
}

// ParseTemplateFlag looks a flag up by its name, case-insensitively.
func ParseTemplateFlag(name string) (TemplateFlag, error) {
	name = strings.TrimSpace(name)
	for _, fn := range flagNames {
		if strings.EqualFold(fn.name, name) {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown template flag: %q", name)
}

// ParseTemplateFlags parses and combines a list of flag names. Blank names are skipped.
func ParseTemplateFlags(names []string) (TemplateFlag, error) {
	var flags TemplateFlag
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		flag, err := ParseTemplateFlag(name)
		if err != nil {
			return 0, err
		}
		flags |= flag
	}
	return flags, nil
}
