// Package format provides the output post-processing used by the nettle
// renderer for the AutoFormat and Minify template flags.
//
// The functions in this package are pure: they work on rendered strings and
// plain descriptions of the blocks that produced them, and never import the
// nettle package, so they can be tested on their own.
//
// # AutoFormat
//
// Directives usually sit on lines of their own. Without help, the line breaks
// around them end up in the output as blank lines. AutoFormat receives the
// rendered output of every block in a collection and:
//
//   - drops one leading line break from a content block that follows a
//     directive whose output was empty or already ended with a line break
//   - makes the output of a loop or conditional end with a line break when
//     its body did and it is directly followed by another directive
//   - trims the whole output of a template, or makes the output of a nested
//     body start without line breaks and end with exactly one
//
// Example:
//
//	out := format.AutoFormat([]format.Segment{
//	    {Output: "Items:\n", Content: true},
//	    {Output: "- a\n- b\n", Nestable: true, Body: "\n- {{$}}\n"},
//	    {Output: "\nDone\n", Content: true},
//	}, true)
//	// out == "Items:\n- a\n- b\nDone"
//
// # Minify
//
// Minify removes tabs, runs of four spaces and every line break.
package format
