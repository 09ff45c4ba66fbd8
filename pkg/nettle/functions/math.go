package functions

import (
	"context"
	"errors"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

func arithmetic(name, description string, op func(a, b float64) (float64, error)) nettle.Function {
	return nettle.NewSimpleFunction(name, description,
		[]*nettle.FunctionParameter{
			param("left", "left operand", nettle.ParamNumber),
			param("right", "right operand", nettle.ParamNumber),
		},
		func(_ context.Context, _ *nettle.TemplateContext, args ...interface{}) (interface{}, error) {
			a, err := toNumber(args[0])
			if err != nil {
				return nil, err
			}
			b, err := toNumber(args[1])
			if err != nil {
				return nil, err
			}
			return op(a, b)
		})
}

// Add returns left + right.
func Add() nettle.Function {
	return arithmetic("Add", "Adds two numbers", func(a, b float64) (float64, error) {
		return a + b, nil
	})
}

// Subtract returns left - right.
func Subtract() nettle.Function {
	return arithmetic("Subtract", "Subtracts the second number from the first", func(a, b float64) (float64, error) {
		return a - b, nil
	})
}

// Multiply returns left * right.
func Multiply() nettle.Function {
	return arithmetic("Multiply", "Multiplies two numbers", func(a, b float64) (float64, error) {
		return a * b, nil
	})
}

// Divide returns left / right. Dividing by zero is an error.
func Divide() nettle.Function {
	return arithmetic("Divide", "Divides the first number by the second", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	})
}
