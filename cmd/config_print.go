package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the resolved configuration",
	Long:  "Renders the effective configuration after defaults, config.yaml, and environment overrides, with credentials redacted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolved := *cfg
		resolved.Geocode.Key = redact(resolved.Geocode.Key)
		resolved.Places.Key = redact(resolved.Places.Key)
		resolved.Store.DatabaseURL = redact(resolved.Store.DatabaseURL)

		out, err := yaml.Marshal(resolved)
		if err != nil {
			return eris.Wrap(err, "config print: marshal")
		}
		fmt.Print(string(out))
		return nil
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "<set>"
}

func init() {
	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)
}
