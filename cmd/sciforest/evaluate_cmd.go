package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/metrics"
	"github.com/ezoic/sciforest/pkg/log"
	"github.com/ezoic/sciforest/report"
	"github.com/ezoic/sciforest/result"
)

type evaluateCmdConfig struct {
	sourceConfig
	predictOptions
	dataInput string
	objective string
	plotPath  string
}

func evaluateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &evaluateCmdConfig{sourceConfig: sourceConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a model against labelled data",
		Long:  `Predict every row of a CSV file holding the objective field and report how the predictions compare with it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return config.run(ctx, cmd.OutOrStdout())
		},
	}
	config.sourceConfig.addFlags(cmd)
	config.predictOptions.addFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to a CSV file with a header row naming fields by id or name (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.objective), "objective", "o", "", "id or name of the objective column (defaults to the model objective field)")
	cmd.PersistentFlags().StringVar(&(config.plotPath), "plot", "", "path of a chart of predicted against actual values (regression only)")
	return cmd
}

func (ecc *evaluateCmdConfig) run(ctx context.Context, w io.Writer) error {
	logger := log.GetLoggerWithName("evaluate")
	p, err := ecc.load(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	table := p.table()
	objective := p.objective()
	if ecc.objective != "" {
		objective = ecc.objective
		if id, ok := table.IDByName(ecc.objective); ok {
			objective = id
		}
	}

	var r io.Reader = os.Stdin
	if ecc.dataInput != "" {
		f, err := os.Open(ecc.dataInput)
		if err != nil {
			return fmt.Errorf("opening data at %s: %v", ecc.dataInput, err)
		}
		defer f.Close()
		r = f
	}
	rows, unused, err := readCSV(r, table)
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		logger.Warn("Ignoring unknown columns", "columns", unused)
	}

	score, err := ecc.scorer(p)
	if err != nil {
		return err
	}
	ev, err := metrics.Evaluate(ctx, func(ctx context.Context, in fields.Input) (*result.Result, error) {
		return score(ctx, in, nil)
	}, rows, objective)
	if err != nil {
		return err
	}
	fmt.Fprint(w, ev)

	if ecc.plotPath == "" {
		return nil
	}
	if !ev.Regression {
		logger.Warn("Skipping plot of a classification objective", log.FieldKey, objective)
		return nil
	}
	chart, err := report.PredictionScatter(table.Name(objective), ev.Actual, ev.Predicted)
	if err != nil {
		return err
	}
	return report.Save(chart, ecc.plotPath)
}
