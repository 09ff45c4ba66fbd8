package main

import (
	"fmt"
	"os"
)

const appName = "nettle"

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	flagConfig  string
	flagData    string
	flagViews   string
	flagFlags   []string
	flagNoFuncs bool
)

func main() {
	rootCmd.AddCommand(renderCmd, validateCmd, versionCmd)

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"YAML configuration file (default: NETTLE_* environment variables)")
	rootCmd.PersistentFlags().StringVar(&flagViews, "views", "",
		"directory of partial templates, registered under their file names")
	rootCmd.PersistentFlags().StringArrayVar(&flagFlags, "flag", nil,
		"template flag, e.g. AutoFormat (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagNoFuncs, "no-functions", false,
		"do not register the built-in function library")

	renderCmd.Flags().StringVarP(&flagData, "data", "d", "",
		"YAML or JSON file holding the model")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}
