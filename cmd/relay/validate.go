package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for consistency",
	Long:  `Loads the configuration and reports unknown keys, triggers bound to missing components and invalid settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validation failed:\n%w", err)
		}

		out := cmd.OutOrStdout()
		intents := make([]string, 0, len(cfg.Triggers))
		for intent := range cfg.Triggers {
			intents = append(intents, intent)
		}
		sort.Strings(intents)
		for _, intent := range intents {
			fmt.Fprintf(out, "%s -> %s\n", intent, cfg.Triggers[intent])
		}
		fmt.Fprintf(out, "Configuration is valid! (%s classifier, %d components, %d triggers)\n",
			cfg.Classifier.Type, len(cfg.Components), len(cfg.Triggers))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
