// Package functions provides a library of ready made functions for nettle
// templates.
//
// Register them all at once through the provider:
//
//	compiler := nettle.New(nettle.WithFunctionProvider(functions.Provider()))
//	render, _ := compiler.Compile(`{{@Add(2, 3)}} {{@Upper($Name)}}`)
//
// The nettle package does not import this package; templates only see the
// functions a host registers.
package functions
