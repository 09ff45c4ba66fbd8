package functions

import (
	"context"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

var (
	sanitizePolicyOnce sync.Once
	sanitizePolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	sanitizePolicyOnce.Do(func() {
		sanitizePolicy = bluemonday.UGCPolicy()
	})
	return sanitizePolicy
}

// Sanitize strips unsafe markup (scripts, event handlers, javascript: links)
// from user supplied HTML, keeping ordinary formatting.
func Sanitize() nettle.Function {
	return nettle.NewSimpleFunction("Sanitize", "Removes unsafe HTML",
		[]*nettle.FunctionParameter{param("html", "HTML to clean", nettle.ParamString)},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			raw := strings.TrimSpace(nettle.FormatValue(args[0]))
			if raw == "" {
				return "", nil
			}
			return sanitizer().Sanitize(raw), nil
		})
}
