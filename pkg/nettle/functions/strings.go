package functions

import (
	"context"
	"reflect"
	"strings"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

// Concat joins up to five values into one string.
func Concat() nettle.Function {
	return nettle.NewSimpleFunction("Concat", "Joins values into one string",
		[]*nettle.FunctionParameter{
			param("first", "first value", nettle.ParamAny),
			param("second", "second value", nettle.ParamAny),
			optionalParam("third", "third value", nettle.ParamAny, nil),
			optionalParam("fourth", "fourth value", nettle.ParamAny, nil),
			optionalParam("fifth", "fifth value", nettle.ParamAny, nil),
		},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			var b strings.Builder
			for _, arg := range args {
				b.WriteString(nettle.FormatValue(arg))
			}
			return b.String(), nil
		})
}

// Upper converts text to upper case.
func Upper() nettle.Function {
	return nettle.NewSimpleFunction("Upper", "Converts text to upper case",
		[]*nettle.FunctionParameter{param("text", "text to convert", nettle.ParamString)},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			return strings.ToUpper(nettle.FormatValue(args[0])), nil
		})
}

// Lower converts text to lower case.
func Lower() nettle.Function {
	return nettle.NewSimpleFunction("Lower", "Converts text to lower case",
		[]*nettle.FunctionParameter{param("text", "text to convert", nettle.ParamString)},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			return strings.ToLower(nettle.FormatValue(args[0])), nil
		})
}

// Length returns the number of characters of a string or the number of
// items of a collection. nil has length 0.
func Length() nettle.Function {
	return nettle.NewSimpleFunction("Length", "Returns the length of text or a collection",
		[]*nettle.FunctionParameter{param("value", "text or collection", nettle.ParamAny)},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case nil:
				return 0, nil
			case string:
				// runes, not bytes
				return len([]rune(v)), nil
			case *nettle.OrderedMap:
				return v.Len(), nil
			}

			rv := reflect.ValueOf(args[0])
			switch rv.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				return rv.Len(), nil
			}
			return len([]rune(nettle.FormatValue(args[0]))), nil
		})
}
