package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ezoic/sciforest/pkg/log"
)

type rootCmdConfig struct {
	verbose     bool
	fieldsInput string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "sciforest",
		Short: "sciforest scores tree models and ensembles locally",
		Long:  `A tool to load serialized decision trees, boosted trees and ensembles, and use them to make predictions without a remote service`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetConsoleOutput(os.Stderr)
			if config.verbose {
				log.SetLevel("debug")
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log debug messages to STDERR")
	rootCmd.PersistentFlags().StringVarP(&(config.fieldsInput), "fields", "f", "", "path to a JSON or YML field table replacing the one embedded in the models")
	rootCmd.AddCommand(
		versionCmd(),
		predictCmd(config),
		evaluateCmd(config),
		importanceCmd(config),
		rulesCmd(config),
		pushCmd(config),
	)
	return rootCmd
}
