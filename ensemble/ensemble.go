// Package ensemble scores inputs against ensembles of decision trees.
//
// The component models of an ensemble are split once into chunks of at
// most MaxModels models. A single chunk is resolved when the ensemble is
// built and kept for its lifetime. Larger ensembles resolve one chunk at a
// time on every prediction, append the chunk's votes and release the
// models before moving on, so no more than MaxModels models are held by
// one prediction. Pair a multi-chunk ensemble with a CachedResolver to
// trade memory for resolution time.
package ensemble

import (
	"context"
	"sort"
	"time"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multimodel"
	"github.com/ezoic/sciforest/multivote"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/pkg/log"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/tree"
)

// DefaultMaxModels bounds the models resolved at once.
const DefaultMaxModels = 200

// Option configures an Ensemble.
type Option func(*Ensemble)

// WithMaxModels sets the chunk size.
func WithMaxModels(n int) Option {
	return func(e *Ensemble) { e.maxModels = n }
}

// WithResolver sets where component models come from.
func WithResolver(r Resolver) Option {
	return func(e *Ensemble) { e.resolver = r }
}

// WithCacheSize puts an LRU cache of n models in front of the resolver.
func WithCacheSize(n int) Option {
	return func(e *Ensemble) { e.cacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Ensemble) { e.logger = l }
}

// Ensemble is an immutable set of component models voting together.
type Ensemble struct {
	desc       *Descriptor
	chunks     [][]string
	maxModels  int
	resolver   Resolver
	cacheSize  int
	resident   *multimodel.MultiModel
	regression bool
	classes    []string
	logger     log.Logger
}

// New builds an ensemble. Single chunk ensembles resolve their models
// immediately.
func New(ctx context.Context, desc *Descriptor, opts ...Option) (*Ensemble, error) {
	const op = "ensemble.New"
	e := &Ensemble{
		desc:      desc,
		maxModels: DefaultMaxModels,
		logger:    log.GetLoggerWithName("ensemble"),
	}
	for _, o := range opts {
		o(e)
	}
	if len(desc.Models) == 0 {
		return nil, scigoErrors.NewModelError(op, "ensemble lists no models", scigoErrors.ErrMalformedModel)
	}
	if e.resolver == nil {
		return nil, scigoErrors.NewValueError(op, "no resolver for component models")
	}
	if e.maxModels < 1 {
		return nil, scigoErrors.NewValueError(op, "max models must be positive")
	}
	if e.cacheSize > 0 {
		cached, err := NewCachedResolver(e.resolver, e.cacheSize)
		if err != nil {
			return nil, err
		}
		e.resolver = cached
	}
	e.logger = e.logger.With(log.ModelNameKey, desc.ID, log.ComponentKey, "ensemble")
	e.chunks = split(desc.Models, e.maxModels)

	if len(e.chunks) == 1 {
		models, err := e.resolveChunk(ctx, e.chunks[0])
		if err != nil {
			return nil, err
		}
		e.resident = multimodel.New(models...)
		e.describe(models[0].(*tree.Model))
	} else {
		first, err := e.resolver.Resolve(ctx, desc.Models[0])
		if err != nil {
			return nil, err
		}
		e.describe(first)
	}
	e.logger.Debug("Ensemble ready",
		log.OperationKey, log.OperationLoad,
		log.ModelsKey, len(desc.Models),
		"chunks", len(e.chunks),
		"regression", e.regression,
	)
	return e, nil
}

// Load parses an ensemble descriptor and builds the ensemble.
func Load(ctx context.Context, data []byte, opts ...Option) (*Ensemble, error) {
	desc, err := ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	return New(ctx, desc, opts...)
}

// FromModels builds an ensemble of in-memory models.
func FromModels(ctx context.Context, models []*tree.Model, opts ...Option) (*Ensemble, error) {
	desc := &Descriptor{ID: "ensemble"}
	resolver := MemoryResolver{}
	for _, m := range models {
		desc.Models = append(desc.Models, m.ID())
		resolver[m.ID()] = m
		if b := m.Boosting(); b != nil {
			desc.Boosted = true
		}
	}
	return New(ctx, desc, append([]Option{WithResolver(resolver)}, opts...)...)
}

// describe settles the objective and classes from the descriptor fields,
// falling back on a resolved component.
func (e *Ensemble) describe(m *tree.Model) {
	if e.desc.ObjectiveField == "" {
		e.desc.ObjectiveField = m.ObjectiveField()
	}
	if e.desc.Fields == nil {
		e.desc.Fields = m.Fields()
	}
	e.regression = m.IsRegression()
	if f, ok := e.desc.Fields[e.desc.ObjectiveField]; ok && f.Summary != nil && len(f.Summary.Categories) > 0 {
		for _, c := range f.Summary.Categories {
			e.classes = append(e.classes, c.Value)
		}
		sort.Strings(e.classes)
	} else {
		e.classes = m.ClassNames()
	}
	for class := range e.desc.InitialOffsets {
		e.classes = appendClass(e.classes, class)
	}
}

func appendClass(classes []string, class string) []string {
	i := sort.SearchStrings(classes, class)
	if i < len(classes) && classes[i] == class {
		return classes
	}
	classes = append(classes, "")
	copy(classes[i+1:], classes[i:])
	classes[i] = class
	return classes
}

func split(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func (e *Ensemble) resolveChunk(ctx context.Context, ids []string) ([]multimodel.Scorer, error) {
	models := make([]multimodel.Scorer, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := e.resolver.Resolve(ctx, id)
		if err != nil {
			e.logger.Error("Failed to resolve model", log.OperationKey, log.OperationResolve, "model", id, log.ErrorKey, err)
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// eachChunk runs fn with the MultiModel of every chunk in order.
func (e *Ensemble) eachChunk(ctx context.Context, fn func(mm *multimodel.MultiModel) error) error {
	if e.resident != nil {
		return fn(e.resident)
	}
	for i, ids := range e.chunks {
		models, err := e.resolveChunk(ctx, ids)
		if err != nil {
			return err
		}
		e.logger.Debug("Chunk resolved", log.OperationKey, log.OperationResolve, log.ChunkKey, i, log.ModelsKey, len(models))
		if err := fn(multimodel.New(models...)); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the ensemble id.
func (e *Ensemble) ID() string { return e.desc.ID }

// Len returns the number of component models.
func (e *Ensemble) Len() int { return len(e.desc.Models) }

// Chunks returns the model ids grouped as they are resolved.
func (e *Ensemble) Chunks() [][]string { return e.chunks }

// IsRegression reports whether the ensemble predicts numbers.
func (e *Ensemble) IsRegression() bool { return e.regression }

// IsBoosted reports whether the ensemble is gradient boosted.
func (e *Ensemble) IsBoosted() bool { return e.desc.Boosted }

// ClassNames returns the objective classes in lexical order.
func (e *Ensemble) ClassNames() []string { return e.classes }

// ObjectiveField returns the id of the predicted field.
func (e *Ensemble) ObjectiveField() string { return e.desc.ObjectiveField }

// Fields returns the field table.
func (e *Ensemble) Fields() fields.Table { return e.desc.Fields }

// PredictOption configures one prediction.
type PredictOption func(*predictConfig)

type predictConfig struct {
	strategy  tree.MissingStrategy
	method    multivote.Method
	threshold int
	category  string
	flags     result.Flags
	operating *multivote.OperatingPoint
	median    bool
	unused    []string
}

// WithMissingStrategy sets how missing split fields are handled.
func WithMissingStrategy(s tree.MissingStrategy) PredictOption {
	return func(c *predictConfig) { c.strategy = s }
}

// WithMethod sets the vote combination method.
func WithMethod(m multivote.Method) PredictOption {
	return func(c *predictConfig) { c.method = m }
}

// WithThreshold selects the threshold method: category wins when at least
// k models vote for it.
func WithThreshold(k int, category string) PredictOption {
	return func(c *predictConfig) {
		c.method = multivote.Threshold
		c.threshold = k
		c.category = category
	}
}

// WithFlags selects the optional keys of the result.
func WithFlags(f result.Flags) PredictOption {
	return func(c *predictConfig) { c.flags = f }
}

// WithOperatingPoint predicts with an operating point instead of votes.
func WithOperatingPoint(op multivote.OperatingPoint) PredictOption {
	return func(c *predictConfig) { c.operating = &op }
}

// WithMedian makes regression components vote with their median instead
// of their mean.
func WithMedian() PredictOption {
	return func(c *predictConfig) { c.median = true }
}

// WithUnusedFields reports ids of the input that the table does not know.
func WithUnusedFields(ids []string) PredictOption {
	return func(c *predictConfig) { c.unused = ids }
}

// Votes collects the votes of every component, chunk by chunk.
func (e *Ensemble) Votes(ctx context.Context, in fields.Input, strategy tree.MissingStrategy) (*multivote.MultiVote, error) {
	mv := multivote.New()
	err := e.eachChunk(ctx, func(mm *multimodel.MultiModel) error {
		return mm.AppendVotes(mv, in, strategy)
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func (e *Ensemble) combineOptions(cfg *predictConfig) multivote.Options {
	return multivote.Options{
		Method:       cfg.method,
		Threshold:    cfg.threshold,
		Category:     cfg.category,
		Flags:        cfg.flags,
		ClassNames:   e.classes,
		Offset:       e.desc.InitialOffset,
		ClassOffsets: e.desc.InitialOffsets,
	}
}

// PredictMap normalizes a raw input keyed by field id or name and
// predicts it.
func (e *Ensemble) PredictMap(ctx context.Context, raw map[string]interface{}, opts ...PredictOption) (*result.Result, error) {
	in, unused := fields.InputFromMap(e.desc.Fields, raw)
	return e.Predict(ctx, in, append([]PredictOption{WithUnusedFields(unused)}, opts...)...)
}

// Predict combines the votes of every component for in.
func (e *Ensemble) Predict(ctx context.Context, in fields.Input, opts ...PredictOption) (r *result.Result, err error) {
	defer scigoErrors.Recover(&err, "ensemble.Predict")
	start := time.Now()
	cfg := &predictConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.operating != nil {
		return e.predictOperating(ctx, in, cfg)
	}
	mv, err := e.Votes(ctx, in, cfg.strategy)
	if err != nil {
		return nil, err
	}
	if cfg.median && e.regression {
		votes := mv.Votes()
		for i := range votes {
			if votes[i].Median != nil {
				votes[i].Prediction = fields.Number(*votes[i].Median)
			}
		}
		mv = multivote.WithOrders(votes...)
	}
	r, err = mv.Combine(e.combineOptions(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.flags.Has(result.WithUnusedFields) {
		r.UnusedFields = cfg.unused
	}
	e.logger.Debug("Ensemble prediction",
		log.OperationKey, log.OperationPredict,
		log.StrategyKey, cfg.strategy.String(),
		log.MethodKey, cfg.method.String(),
		log.ModelsKey, mv.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return r, nil
}

// PredictProbability returns the probability of every class in ClassNames
// order: the softmax of the summed scores for boosted ensembles, the mean
// of the component probabilities otherwise.
func (e *Ensemble) PredictProbability(ctx context.Context, in fields.Input, strategy tree.MissingStrategy) ([]multivote.ClassScore, error) {
	if e.regression {
		return e.regressionScore(ctx, in, strategy, false)
	}
	if e.desc.Boosted {
		mv, err := e.Votes(ctx, in, strategy)
		if err != nil {
			return nil, err
		}
		return mv.BoostingProbabilities(e.combineOptions(&predictConfig{})), nil
	}
	return e.averageScores(ctx, func(m *tree.Model) ([]multivote.ClassScore, error) {
		return m.PredictProbability(in, strategy)
	})
}

// PredictConfidence returns the mean component confidence of every class
// in ClassNames order. Boosted classifications have no confidence.
func (e *Ensemble) PredictConfidence(ctx context.Context, in fields.Input, strategy tree.MissingStrategy) ([]multivote.ClassScore, error) {
	if e.regression {
		return e.regressionScore(ctx, in, strategy, true)
	}
	if e.desc.Boosted {
		return nil, scigoErrors.NewModelError("ensemble.PredictConfidence",
			"boosted ensembles have no confidence", scigoErrors.ErrNotImplemented)
	}
	return e.averageScores(ctx, func(m *tree.Model) ([]multivote.ClassScore, error) {
		return m.PredictConfidence(in, strategy)
	})
}

func (e *Ensemble) regressionScore(ctx context.Context, in fields.Input, strategy tree.MissingStrategy, confidence bool) ([]multivote.ClassScore, error) {
	method := multivote.Plurality
	if confidence {
		method = multivote.ConfidenceWeighted
	}
	r, err := e.Predict(ctx, in, WithMissingStrategy(strategy), WithMethod(method), WithFlags(result.WithConfidence))
	if err != nil {
		return nil, err
	}
	score, _ := r.Prediction.Float()
	if confidence {
		score = 0
		if r.Confidence != nil {
			score = *r.Confidence
		}
	}
	return []multivote.ClassScore{{Category: e.desc.Fields.Name(e.desc.ObjectiveField), Score: score}}, nil
}

func (e *Ensemble) averageScores(ctx context.Context, score func(*tree.Model) ([]multivote.ClassScore, error)) ([]multivote.ClassScore, error) {
	sums := map[string]float64{}
	n := 0
	err := e.eachChunk(ctx, func(mm *multimodel.MultiModel) error {
		for _, s := range mm.Models() {
			m, ok := s.(*tree.Model)
			if !ok {
				continue
			}
			scores, err := score(m)
			if err != nil {
				return err
			}
			for _, cs := range scores {
				sums[cs.Category] += cs.Score
			}
			n++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]multivote.ClassScore, len(e.classes))
	for i, c := range e.classes {
		out[i] = multivote.ClassScore{Category: c}
		if n > 0 {
			out[i].Score = sums[c] / float64(n)
		}
	}
	return out, nil
}

func (e *Ensemble) predictOperating(ctx context.Context, in fields.Input, cfg *predictConfig) (*result.Result, error) {
	if e.regression {
		return nil, scigoErrors.NewCategorizedValueError("ensemble.Predict",
			scigoErrors.ErrInvalidOperatingPoint, "operating points apply to classification ensembles only")
	}
	if err := cfg.operating.Validate(e.classes); err != nil {
		return nil, err
	}
	var (
		scores []multivote.ClassScore
		err    error
	)
	if cfg.operating.Kind == multivote.ConfidenceKind {
		scores, err = e.PredictConfidence(ctx, in, cfg.strategy)
	} else {
		scores, err = e.PredictProbability(ctx, in, cfg.strategy)
	}
	if err != nil {
		return nil, err
	}
	chosen, err := multivote.SelectOperating(scores, *cfg.operating, e.classes)
	if err != nil {
		return nil, err
	}
	r := &result.Result{Prediction: fields.String(chosen.Category), UnusedFields: cfg.unused}
	if cfg.operating.Kind == multivote.ConfidenceKind {
		r.Confidence = result.Float(chosen.Score)
	} else {
		r.Probability = result.Float(chosen.Score)
	}
	return r.Project(cfg.flags), nil
}

// FieldImportance averages the importance of every field over all the
// component models. The descriptor's per model distributions are used when
// they cover every model; otherwise the models are resolved.
func (e *Ensemble) FieldImportance(ctx context.Context) ([]tree.Importance, error) {
	sums := map[string]float64{}
	n := len(e.desc.Models)
	if len(e.desc.Distributions) == n {
		for _, d := range e.desc.Distributions {
			for _, imp := range d.Importance {
				sums[imp.Value] += imp.Count
			}
		}
	} else {
		err := e.eachChunk(ctx, func(mm *multimodel.MultiModel) error {
			for _, s := range mm.Models() {
				if m, ok := s.(*tree.Model); ok {
					for _, imp := range m.Importance() {
						sums[imp.Field] += imp.Score
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	out := make([]tree.Importance, 0, len(sums))
	for id, s := range sums {
		out = append(out, tree.Importance{Field: id, Score: s / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Field < out[j].Field
	})
	return out, nil
}
