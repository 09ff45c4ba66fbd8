package functions

import (
	"fmt"
	"reflect"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

type provider struct{}

// Provider returns a FunctionProvider with every function of this package.
func Provider() nettle.FunctionProvider {
	return provider{}
}

func (provider) ProvideFunctions() map[string]nettle.Function {
	fns := []nettle.Function{
		Add(), Subtract(), Multiply(), Divide(),
		Concat(), Upper(), Lower(), Length(),
		Now(), FormatDate(), FormatNumber(), Sanitize(),
	}
	result := make(map[string]nettle.Function, len(fns))
	for _, fn := range fns {
		result[fn.Name()] = fn
	}
	return result
}

func param(name, description string, dataType nettle.ParameterType) *nettle.FunctionParameter {
	return &nettle.FunctionParameter{Name: name, Description: description, DataType: dataType}
}

func optionalParam(name, description string, dataType nettle.ParameterType, defaultValue interface{}) *nettle.FunctionParameter {
	return &nettle.FunctionParameter{
		Name:         name,
		Description:  description,
		DataType:     dataType,
		Optional:     true,
		DefaultValue: defaultValue,
	}
}

// toNumber converts any Go numeric value to float64.
func toNumber(value interface{}) (float64, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", value)
}
