package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/result"
)

type predictCmdConfig struct {
	sourceConfig
	predictOptions
	dataInput string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{sourceConfig: sourceConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the objective of one or more inputs",
		Long:  `Use the loaded model or ensemble to predict the objective field of a JSON input object, or of every object in a JSON array, and print the predictions as JSON`,
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
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to a JSON file with the input object or array of objects keyed by field id or name (defaults to STDIN)")
	return cmd
}

func (pcc *predictCmdConfig) run(ctx context.Context, w io.Writer) error {
	inputs, batch, err := pcc.inputs()
	if err != nil {
		return err
	}
	p, err := pcc.load(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	score, err := pcc.scorer(p)
	if err != nil {
		return err
	}
	var results []*result.Result
	for i, raw := range inputs {
		in, unused := fields.InputFromMap(p.table(), raw)
		r, err := score(ctx, in, unused)
		if err != nil {
			return fmt.Errorf("predicting input %d: %v", i, err)
		}
		results = append(results, r)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if batch {
		return enc.Encode(results)
	}
	return enc.Encode(results[0])
}

// inputs reads the input objects. batch is true when they came as an array.
func (pcc *predictCmdConfig) inputs() ([]map[string]interface{}, bool, error) {
	var r io.Reader = os.Stdin
	if pcc.dataInput != "" {
		f, err := os.Open(pcc.dataInput)
		if err != nil {
			return nil, false, fmt.Errorf("opening input at %s: %v", pcc.dataInput, err)
		}
		defer f.Close()
		r = f
	}
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("parsing input: %v", err)
	}
	switch doc := doc.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{doc}, false, nil
	case []interface{}:
		inputs := make([]map[string]interface{}, len(doc))
		for i, item := range doc {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, false, fmt.Errorf("input %d is not an object", i)
			}
			inputs[i] = m
		}
		if len(inputs) == 0 {
			return nil, false, fmt.Errorf("input array is empty")
		}
		return inputs, true, nil
	}
	return nil, false, fmt.Errorf("input must be an object or an array of objects")
}
