package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-nettle/pkg/nettle"
	"github.com/benjaminschreck/go-nettle/pkg/nettle/functions"
)

var rootCmd = &cobra.Command{
	Use:   appName + " [command]",
	Short: "Compile and render Nettle templates",
	Long: "Compile and render Nettle templates.\n\n" +
		"Templates are read from a file, or from stdin when the file is \"-\".",
}

// newCompiler builds a compiler from the persistent flags.
func newCompiler() (*nettle.Compiler, nettle.TemplateFlag, error) {
	config := nettle.ConfigFromEnvironment()
	if flagConfig != "" {
		loaded, err := nettle.LoadConfigFile(flagConfig)
		if err != nil {
			return nil, 0, err
		}
		config = loaded
	}
	nettle.SetGlobalConfig(config)

	flags, err := nettle.ParseTemplateFlags(flagFlags)
	if err != nil {
		return nil, 0, err
	}

	opts := []nettle.Option{nettle.WithConfig(config)}
	if !flagNoFuncs {
		opts = append(opts, nettle.WithFunctionProvider(functions.Provider()))
	}
	compiler := nettle.New(opts...)

	if flagViews != "" {
		names, err := compiler.RegisterViews(os.DirFS(flagViews), "*.*", flags)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to register views from %s: %w", flagViews, err)
		}
		nettle.WithField("views", len(names)).Debug("Registered views from %s", flagViews)
	}

	return compiler, flags, nil
}

// readTemplate reads a template file, or stdin for "-".
func readTemplate(path string) (string, error) {
	if path == "-" {
		data, err := readAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read template from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}
