package functions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"January 2, 2006",
}

// FormatNumber formats a number with a fixed number of decimals and
// thousands separators, e.g. 1234.5 -> 1,234.50.
func FormatNumber() nettle.Function {
	return nettle.NewSimpleFunction("FormatNumber", "Formats a number with thousands separators",
		[]*nettle.FunctionParameter{
			param("value", "number to format", nettle.ParamNumber),
			optionalParam("decimals", "digits after the decimal point", nettle.ParamNumber, 2),
		},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			value, err := toNumber(args[0])
			if err != nil {
				return nil, err
			}
			decimals, err := toNumber(args[1])
			if err != nil {
				return nil, err
			}
			if decimals < 0 {
				return nil, fmt.Errorf("decimals cannot be negative, got %v", decimals)
			}
			return groupThousands(fmt.Sprintf("%.*f", int(decimals), value)), nil
		})
}

func groupThousands(number string) string {
	sign := ""
	if strings.HasPrefix(number, "-") {
		sign, number = "-", number[1:]
	}
	intPart, decPart, hasDec := strings.Cut(number, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if hasDec {
		b.WriteByte('.')
		b.WriteString(decPart)
	}
	return b.String()
}

// FormatDate formats a date with a Go layout. Strings are parsed with a few
// common layouts and numbers are read as Unix seconds.
func FormatDate() nettle.Function {
	return nettle.NewSimpleFunction("FormatDate", "Formats a date",
		[]*nettle.FunctionParameter{
			param("date", "time, date string or Unix seconds", nettle.ParamAny),
			optionalParam("layout", "Go time layout", nettle.ParamString, "2006-01-02"),
		},
		func(_ context.Context, tc *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			t, err := parseDate(args[0])
			if err != nil {
				return nil, err
			}
			if tc != nil && tc.Flags().Has(nettle.UseUtc) {
				t = t.UTC()
			}
			layout, _ := args[1].(string)
			return t.Format(layout), nil
		})
}

func parseDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("cannot parse nil as a date")
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil as a date")
		}
		return *v, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date %q", v)
	}

	seconds, err := toNumber(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot use %T as a date", value)
	}
	return time.Unix(int64(seconds), 0).UTC(), nil
}
