package functions

import (
	"context"
	"time"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

// clock is replaced in tests.
var clock = time.Now

// Now returns the current time, in UTC when the template uses the UseUtc
// flag. With a layout (Go reference time syntax) the time is formatted.
func Now() nettle.Function {
	return nettle.NewSimpleFunction("Now", "Returns the current date and time",
		[]*nettle.FunctionParameter{
			optionalParam("layout", "Go time layout, e.g. 2006-01-02", nettle.ParamString, ""),
		},
		func(_ context.Context, tc *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			now := clock()
			if tc != nil && tc.Flags().Has(nettle.UseUtc) {
				now = now.UTC()
			}
			if layout, _ := args[0].(string); layout != "" {
				return now.Format(layout), nil
			}
			return now, nil
		})
}
