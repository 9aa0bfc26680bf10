package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func rulesCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &sourceConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the rules of a tree model",
		Long:  `Print one IF ... THEN rule per leaf of a tree model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			p, err := config.load(context.Background())
			if err != nil {
				return err
			}
			defer p.Close()
			if p.model == nil {
				return fmt.Errorf("%s is an ensemble, rules need a single model", config.modelInput)
			}
			for _, r := range p.model.Rules() {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	config.addFlags(cmd)
	return cmd
}
