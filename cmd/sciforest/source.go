package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/redis.v5"
	"gopkg.in/yaml.v2"

	"github.com/ezoic/sciforest/core/model"
	"github.com/ezoic/sciforest/ensemble"
	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multivote"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/tree"
)

// sourceConfig holds the flags locating a model or an ensemble and its
// components.
type sourceConfig struct {
	*rootCmdConfig
	modelInput  string
	modelsDir   string
	redisAddr   string
	redisPrefix string
	maxModels   int
	cacheSize   int
}

func (sc *sourceConfig) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&(sc.modelInput), "model", "m", "", "path to a model or ensemble resource in JSON (required)")
	cmd.PersistentFlags().StringVarP(&(sc.modelsDir), "models-dir", "d", "", "directory holding the component models of an ensemble (defaults to the directory of the ensemble file)")
	cmd.PersistentFlags().StringVar(&(sc.redisAddr), "redis-addr", "", "address of a redis server holding the component models of an ensemble")
	cmd.PersistentFlags().StringVar(&(sc.redisPrefix), "redis-prefix", "sciforest", "prefix of the redis keys holding component models")
	cmd.PersistentFlags().IntVar(&(sc.maxModels), "max-models", ensemble.DefaultMaxModels, "maximum number of component models resolved at once")
	cmd.PersistentFlags().IntVar(&(sc.cacheSize), "cache-size", 0, "number of component models kept in an LRU cache")
}

func (sc *sourceConfig) Validate() error {
	if sc.modelInput == "" {
		return fmt.Errorf("required model flag was not set")
	}
	if sc.maxModels < 1 {
		return fmt.Errorf("max-models must be positive, got %d", sc.maxModels)
	}
	return nil
}

func (sc *sourceConfig) fieldTable() (fields.Table, error) {
	if sc.fieldsInput == "" {
		return nil, nil
	}
	t, err := fields.ReadFile(sc.fieldsInput)
	if err != nil {
		return nil, err
	}
	return t.WithIDs(), nil
}

// predictor is either a single model or an ensemble.
type predictor struct {
	model    *tree.Model
	ensemble *ensemble.Ensemble
	closers  []func() error
}

func (sc *sourceConfig) load(ctx context.Context) (*predictor, error) {
	table, err := sc.fieldTable()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(sc.modelInput)
	if err != nil {
		return nil, fmt.Errorf("reading model from %s: %v", sc.modelInput, err)
	}
	res, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model from %s: %v", sc.modelInput, err)
	}
	if res.Kind() != "ensemble" {
		var opts []tree.LoadOption
		if table != nil {
			opts = append(opts, tree.WithFields(table))
		}
		m, err := tree.LoadResource(res, opts...)
		if err != nil {
			return nil, err
		}
		return &predictor{model: m}, nil
	}

	desc, err := ensemble.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	if table != nil {
		desc.Fields = table
	}
	p := &predictor{}
	var resolver ensemble.Resolver
	if sc.redisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: sc.redisAddr})
		p.closers = append(p.closers, rc.Close)
		resolver = ensemble.NewRedisResolver(rc, sc.redisPrefix, desc.Fields)
	} else {
		dir := sc.modelsDir
		if dir == "" {
			dir = filepath.Dir(sc.modelInput)
		}
		resolver = &ensemble.DirResolver{Dir: dir, Fields: desc.Fields}
	}
	p.ensemble, err = ensemble.New(ctx, desc,
		ensemble.WithResolver(resolver),
		ensemble.WithMaxModels(sc.maxModels),
		ensemble.WithCacheSize(sc.cacheSize),
	)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *predictor) Close() {
	for _, c := range p.closers {
		_ = c()
	}
}

func (p *predictor) table() fields.Table {
	if p.model != nil {
		return p.model.Fields()
	}
	return p.ensemble.Fields()
}

func (p *predictor) objective() string {
	if p.model != nil {
		return p.model.ObjectiveField()
	}
	return p.ensemble.ObjectiveField()
}

func (p *predictor) importance(ctx context.Context) ([]tree.Importance, error) {
	if p.model != nil {
		return p.model.Importance(), nil
	}
	return p.ensemble.FieldImportance(ctx)
}

// predictOptions are the scoring flags shared by predict and evaluate.
type predictOptions struct {
	strategy       string
	method         string
	threshold      int
	category       string
	full           bool
	median         bool
	operatingInput string
}

func (po *predictOptions) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&(po.strategy), "strategy", "s", tree.LastPrediction.String(), "missing strategy: last_prediction or proportional")
	cmd.PersistentFlags().StringVar(&(po.method), "method", multivote.Plurality.String(), "ensemble combination method: plurality, confidence, probability or threshold")
	cmd.PersistentFlags().IntVar(&(po.threshold), "threshold", 0, "votes the category needs to win with the threshold method")
	cmd.PersistentFlags().StringVar(&(po.category), "category", "", "category favoured by the threshold method")
	cmd.PersistentFlags().BoolVar(&(po.full), "full", false, "output every optional key of the prediction")
	cmd.PersistentFlags().BoolVar(&(po.median), "median", false, "make regression components vote with their median")
	cmd.PersistentFlags().StringVar(&(po.operatingInput), "operating-point", "", "path to a YML or JSON operating point (kind, threshold, positive_class)")
}

func (po *predictOptions) operatingPoint() (*multivote.OperatingPoint, error) {
	if po.operatingInput == "" {
		return nil, nil
	}
	data, err := os.ReadFile(po.operatingInput)
	if err != nil {
		return nil, fmt.Errorf("reading operating point from %s: %v", po.operatingInput, err)
	}
	op := &multivote.OperatingPoint{Kind: multivote.ProbabilityKind}
	// JSON documents are valid YAML.
	if err := yaml.Unmarshal(data, op); err != nil {
		return nil, fmt.Errorf("parsing operating point from %s: %v", po.operatingInput, err)
	}
	return op, nil
}

// scoreFunc scores one input, reporting the unused input keys when
// unused is not nil.
type scoreFunc func(ctx context.Context, in fields.Input, unused []string) (*result.Result, error)

// scorer turns the flags into a scoreFunc.
func (po *predictOptions) scorer(p *predictor) (scoreFunc, error) {
	strategy, err := tree.ParseMissingStrategy(po.strategy)
	if err != nil {
		return nil, err
	}
	method, err := multivote.ParseMethod(po.method)
	if err != nil {
		return nil, err
	}
	op, err := po.operatingPoint()
	if err != nil {
		return nil, err
	}
	var flags result.Flags
	if po.full {
		flags = result.Full
	}

	if p.model != nil {
		opts := []tree.PredictOption{tree.WithMissingStrategy(strategy), tree.WithFlags(flags)}
		if op != nil {
			opts = append(opts, tree.WithOperatingPoint(*op))
		}
		return func(_ context.Context, in fields.Input, unused []string) (*result.Result, error) {
			if unused != nil {
				return p.model.Predict(in, append(append([]tree.PredictOption(nil), opts...), tree.WithUnusedFields(unused))...)
			}
			return p.model.Predict(in, opts...)
		}, nil
	}

	opts := []ensemble.PredictOption{
		ensemble.WithMissingStrategy(strategy),
		ensemble.WithMethod(method),
		ensemble.WithFlags(flags),
	}
	if method == multivote.Threshold {
		opts = append(opts, ensemble.WithThreshold(po.threshold, po.category))
	}
	if po.median {
		opts = append(opts, ensemble.WithMedian())
	}
	if op != nil {
		opts = append(opts, ensemble.WithOperatingPoint(*op))
	}
	return func(ctx context.Context, in fields.Input, unused []string) (*result.Result, error) {
		if unused != nil {
			return p.ensemble.Predict(ctx, in, append(append([]ensemble.PredictOption(nil), opts...), ensemble.WithUnusedFields(unused))...)
		}
		return p.ensemble.Predict(ctx, in, opts...)
	}, nil
}
