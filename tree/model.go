package tree

import (
	"fmt"
	"sort"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multivote"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/pkg/log"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/rule"
	"github.com/ezoic/sciforest/stats"
)

// Importance is the share of a model's predictive power due to one field.
type Importance struct {
	Field string
	Score float64
}

// Model is a single decision tree together with its field table and
// objective.
type Model struct {
	id         string
	name       string
	tree       *Tree
	fields     fields.Table
	objective  string
	classes    []string
	rootDist   []stats.Category
	weighted   bool
	boosting   *Boosting
	importance []Importance
	logger     log.Logger
}

// ID returns the resource id of the model.
func (m *Model) ID() string { return m.id }

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Tree returns the node arena.
func (m *Model) Tree() *Tree { return m.tree }

// Fields returns the field table.
func (m *Model) Fields() fields.Table { return m.fields }

// ObjectiveField returns the id of the predicted field.
func (m *Model) ObjectiveField() string { return m.objective }

// ClassNames returns the objective classes in lexical order. It is nil for
// regression models.
func (m *Model) ClassNames() []string { return m.classes }

// IsRegression reports whether the model predicts numbers. Boosted trees
// scoring one class of a classification are not regressions.
func (m *Model) IsRegression() bool {
	return m.tree.IsRegression() && (m.boosting == nil || m.boosting.ObjectiveClass == "")
}

// IsBoosted reports whether the model is a tree of a boosted ensemble.
func (m *Model) IsBoosted() bool { return m.boosting != nil }

// Boosting returns the boosting configuration, nil for plain trees.
func (m *Model) Boosting() *Boosting { return m.boosting }

// IsWeighted reports whether the model was trained with instance weights.
func (m *Model) IsWeighted() bool { return m.weighted }

// Importance returns the field importances in decreasing order.
func (m *Model) Importance() []Importance {
	out := append([]Importance(nil), m.importance...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// PredictOption configures one prediction.
type PredictOption func(*predictConfig)

type predictConfig struct {
	strategy  MissingStrategy
	flags     result.Flags
	operating *multivote.OperatingPoint
	unused    []string
}

// WithMissingStrategy sets how missing split fields are handled.
func WithMissingStrategy(s MissingStrategy) PredictOption {
	return func(c *predictConfig) { c.strategy = s }
}

// WithFlags selects the optional keys of the result.
func WithFlags(f result.Flags) PredictOption {
	return func(c *predictConfig) { c.flags = f }
}

// WithOperatingPoint predicts with the given operating point instead of
// the top class.
func WithOperatingPoint(op multivote.OperatingPoint) PredictOption {
	return func(c *predictConfig) { c.operating = &op }
}

// WithUnusedFields reports ids of the input that the table does not know.
func WithUnusedFields(ids []string) PredictOption {
	return func(c *predictConfig) { c.unused = ids }
}

// Traverse returns the raw prediction of the tree.
func (m *Model) Traverse(in fields.Input, strategy MissingStrategy) (*Prediction, error) {
	return m.tree.Predict(in, strategy)
}

// PredictMap normalizes a raw input keyed by field id or name and predicts
// it. Keys the field table does not know are reported as unused fields.
func (m *Model) PredictMap(raw map[string]interface{}, opts ...PredictOption) (*result.Result, error) {
	in, unused := fields.InputFromMap(m.fields, raw)
	return m.Predict(in, append([]PredictOption{WithUnusedFields(unused)}, opts...)...)
}

// Predict scores in and projects the result on the requested flags.
func (m *Model) Predict(in fields.Input, opts ...PredictOption) (r *result.Result, err error) {
	defer scigoErrors.Recover(&err, "tree.Predict")
	cfg := &predictConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.operating != nil {
		return m.predictOperating(in, cfg)
	}

	p, err := m.Traverse(in, cfg.strategy)
	if err != nil {
		return nil, err
	}
	r = m.toResult(p)
	if !m.IsRegression() && !m.IsBoosted() {
		probabilities := m.laplace(p)
		for i, c := range m.classes {
			if c == p.Output.String() {
				r.Probability = result.Float(stats.Round(probabilities[i], stats.Precision))
			}
		}
	}
	r.UnusedFields = cfg.unused
	return r.Project(cfg.flags), nil
}

func (m *Model) toResult(p *Prediction) *result.Result {
	r := &result.Result{
		Prediction:       p.Output,
		Confidence:       p.Confidence,
		Distribution:     p.Distribution,
		Bins:             p.Bins,
		DistributionUnit: p.Unit,
		Count:            result.Float(p.Count),
		Median:           p.Median,
		Min:              p.Min,
		Max:              p.Max,
		Path:             p.Path.Rules(m.fields),
	}
	if p.Next != "" {
		r.Next = result.String(m.fields.Name(p.Next))
	}
	return r
}

func (m *Model) laplace(p *Prediction) []float64 {
	return stats.LaplaceProbabilities(stats.CategoryMap(p.Distribution), m.rootDist, m.classes, m.weighted)
}

// PredictProbability returns the smoothed probability of every class in
// ClassNames order. Regression models return their prediction as the only
// entry, keyed by the objective field name.
func (m *Model) PredictProbability(in fields.Input, strategy MissingStrategy) ([]multivote.ClassScore, error) {
	if m.IsBoosted() {
		return nil, scigoErrors.NewModelError("tree.PredictProbability",
			"boosted trees score only as part of their ensemble", scigoErrors.ErrNotImplemented)
	}
	p, err := m.Traverse(in, strategy)
	if err != nil {
		return nil, err
	}
	if m.IsRegression() {
		f, _ := p.Output.Float()
		return []multivote.ClassScore{{Category: m.fields.Name(m.objective), Score: f}}, nil
	}
	probabilities := m.laplace(p)
	scores := make([]multivote.ClassScore, len(m.classes))
	for i, c := range m.classes {
		scores[i] = multivote.ClassScore{Category: c, Score: stats.Round(probabilities[i], stats.Precision)}
	}
	return scores, nil
}

// PredictConfidence returns the Wilson confidence of every class in
// ClassNames order. Regression models return their error bound as the only
// entry.
func (m *Model) PredictConfidence(in fields.Input, strategy MissingStrategy) ([]multivote.ClassScore, error) {
	if m.IsBoosted() {
		return nil, scigoErrors.NewModelError("tree.PredictConfidence",
			"boosted trees have no confidence", scigoErrors.ErrNotImplemented)
	}
	p, err := m.Traverse(in, strategy)
	if err != nil {
		return nil, err
	}
	if m.IsRegression() {
		c := 0.0
		if p.Confidence != nil {
			c = *p.Confidence
		}
		return []multivote.ClassScore{{Category: m.fields.Name(m.objective), Score: c}}, nil
	}
	dist := stats.CategoryMap(p.Distribution)
	scores := make([]multivote.ClassScore, len(m.classes))
	for i, c := range m.classes {
		scores[i].Category = c
		if p.Count < 1 {
			continue
		}
		w, err := stats.WilsonScoreMap(c, dist, stats.DefaultZ, p.Count)
		if err != nil {
			return nil, err
		}
		scores[i].Score = stats.Round(w, stats.Precision)
	}
	return scores, nil
}

func (m *Model) predictOperating(in fields.Input, cfg *predictConfig) (*result.Result, error) {
	if m.IsRegression() {
		return nil, scigoErrors.NewCategorizedValueError("tree.Predict",
			scigoErrors.ErrInvalidOperatingPoint, "operating points apply to classification models only")
	}
	if err := cfg.operating.Validate(m.classes); err != nil {
		return nil, err
	}
	var (
		scores []multivote.ClassScore
		err    error
	)
	if cfg.operating.Kind == multivote.ConfidenceKind {
		scores, err = m.PredictConfidence(in, cfg.strategy)
	} else {
		scores, err = m.PredictProbability(in, cfg.strategy)
	}
	if err != nil {
		return nil, err
	}
	chosen, err := multivote.SelectOperating(scores, *cfg.operating, m.classes)
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

// Rules lists every root to leaf path of the tree as an IF/THEN rule with
// the path in brief format.
func (m *Model) Rules() []string {
	var rules []string
	objective := m.fields.Name(m.objective)
	var visit func(idx int, path rule.Path)
	visit = func(idx int, path rule.Path) {
		n := &m.tree.nodes[idx]
		path = path.Append(n.Predicate)
		if n.IsLeaf() {
			cond := "TRUE"
			if len(path) > 0 {
				cond = path.Brief(m.fields)
			}
			rules = append(rules, fmt.Sprintf("IF %s THEN %s = %s", cond, objective, n.Output))
			return
		}
		for _, c := range n.Children {
			visit(c, append(rule.Path(nil), path...))
		}
	}
	visit(0, nil)
	return rules
}
