package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render a template to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compiler, flags, err := newCompiler()
		if err != nil {
			return err
		}

		text, err := readTemplate(args[0])
		if err != nil {
			return err
		}

		model, err := loadModel(flagData)
		if err != nil {
			return err
		}

		render, err := compiler.Compile(text, flags)
		if err != nil {
			return err
		}

		out, err := render(cmd.Context(), model)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}
