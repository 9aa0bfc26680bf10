package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezoic/sciforest/report"
)

type importanceCmdConfig struct {
	sourceConfig
	plotPath string
}

func importanceCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importanceCmdConfig{sourceConfig: sourceConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Print the field importance of a model or ensemble",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			p, err := config.load(ctx)
			if err != nil {
				return err
			}
			defer p.Close()
			imp, err := p.importance(ctx)
			if err != nil {
				return err
			}
			table := p.table()
			for _, fi := range imp {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.5f\n", table.Name(fi.Field), fi.Score)
			}
			if config.plotPath == "" {
				return nil
			}
			chart, err := report.ImportanceChart("Field importance", imp, table)
			if err != nil {
				return err
			}
			return report.Save(chart, config.plotPath)
		},
	}
	config.sourceConfig.addFlags(cmd)
	cmd.PersistentFlags().StringVar(&(config.plotPath), "plot", "", "path of a bar chart of the field importance (png, svg or pdf)")
	return cmd
}
