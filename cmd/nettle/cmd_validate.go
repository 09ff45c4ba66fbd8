package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template>...",
	Short: "Parse and validate templates without rendering them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compiler, _, err := newCompiler()
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			text, err := readTemplate(path)
			if err != nil {
				return err
			}

			if _, err := compiler.Parse(text); err != nil {
				failed++
				printProblems(cmd, path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d templates failed validation", failed, len(args))
		}
		return nil
	},
}

func printProblems(cmd *cobra.Command, path string, err error) {
	out := cmd.OutOrStdout()
	var validationErr *nettle.ValidationError
	if errors.As(err, &validationErr) {
		for _, issue := range validationErr.Issues {
			fmt.Fprintf(out, "%s: %s\n", path, issue)
		}
		return
	}
	fmt.Fprintf(out, "%s: %v\n", path, err)
}
