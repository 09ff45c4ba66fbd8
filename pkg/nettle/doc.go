// Package nettle compiles and renders Nettle text templates.
//
// A template is plain text interleaved with directives delimited by {{ and }}.
// Compiling a template parses it into a tree of code blocks, validates the tree
// statically and returns a function that renders it against a model.
//
// Basic Usage:
//
//	compiler := nettle.New()
//	render, err := compiler.Compile("Hello {{Name}}!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := render(context.Background(), map[string]interface{}{"Name": "World"})
//	// out == "Hello World!"
//
// Template Syntax:
//
// Comments: {{! not rendered}}
//
// Bindings: {{Name}}, {{Order.Lines[0].Price}}, {{$}} (the whole model), {{$.Name}}
//
// Conditional bindings: {{= (Age >= 18) ? "Adult" : "Minor"}}
//
// Functions: {{@Add(2, 3)}}
//
// Variables: {{var total = 0}}, {{reassign total = @Add(total, 1)}}, {{total++}}, {{total--}}
//
// Loops: {{each Items}}{{$}}{{/each}}, {{while (i < 3)}}...{{/while}}
//
// Conditionals: {{if (A)}}...{{else if (B)}}...{{else}}...{{/if}}
//
// Partials: {{> Header}}, {{> Row Line}}
//
// Literals: "text", 42, true, [Name = "x", Size = 2] (anonymous types), <"key", 1> (pairs)
//
// Conditions are evaluated left to right with & (and) and | (or); comparisons
// are ==, !=, >, <, >= and <=.
//
// Variables reassigned inside loops and branches update the variable where
// it was declared, so a counter declared before a loop holds
// its final value after the loop. Partials do not see the variables of the
// template rendering them.
//
// Rendering honours context cancellation, and sibling blocks that only read
// from the context render concurrently. See TemplateFlag for the options that
// change error handling and output formatting.
package nettle
