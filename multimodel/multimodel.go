// Package multimodel evaluates several trees against the same input and
// collects their predictions as votes.
package multimodel

import (
	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multivote"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/tree"
)

// Scorer is a model that can take part in a vote. *tree.Model implements it.
type Scorer interface {
	ID() string
	Traverse(in fields.Input, strategy tree.MissingStrategy) (*tree.Prediction, error)
	Boosting() *tree.Boosting
}

// MultiModel is an ordered list of models. The order of the models is the
// order of their votes, which breaks ties.
type MultiModel struct {
	models []Scorer
}

// New returns a MultiModel over models.
func New(models ...Scorer) *MultiModel {
	return &MultiModel{models: append([]Scorer(nil), models...)}
}

// Len returns the number of models.
func (mm *MultiModel) Len() int {
	return len(mm.models)
}

// Models returns the models in vote order.
func (mm *MultiModel) Models() []Scorer {
	return append([]Scorer(nil), mm.models...)
}

// GenerateVotes predicts in with every model and returns the votes.
func (mm *MultiModel) GenerateVotes(in fields.Input, strategy tree.MissingStrategy) (*multivote.MultiVote, error) {
	mv := multivote.New()
	if err := mm.AppendVotes(mv, in, strategy); err != nil {
		return nil, err
	}
	return mv, nil
}

// AppendVotes predicts in with every model and appends the votes to mv
// after the votes it already holds.
func (mm *MultiModel) AppendVotes(mv *multivote.MultiVote, in fields.Input, strategy tree.MissingStrategy) error {
	for _, m := range mm.models {
		p, err := m.Traverse(in, strategy)
		if err != nil {
			return scigoErrors.Wrapf(err, "model %s", m.ID())
		}
		mv.Append(Vote(p, m.Boosting()))
	}
	return nil
}

// Predict combines the votes of every model.
func (mm *MultiModel) Predict(in fields.Input, strategy tree.MissingStrategy, opts multivote.Options) (*result.Result, error) {
	mv, err := mm.GenerateVotes(in, strategy)
	if err != nil {
		return nil, err
	}
	return mv.Combine(opts)
}

// PredictBatch predicts every input in order.
func (mm *MultiModel) PredictBatch(inputs []fields.Input, strategy tree.MissingStrategy, opts multivote.Options) ([]*result.Result, error) {
	out := make([]*result.Result, 0, len(inputs))
	for _, in := range inputs {
		r, err := mm.Predict(in, strategy, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Vote turns a tree prediction into a vote. Boosted trees pass their
// weight and objective class along.
func Vote(p *tree.Prediction, b *tree.Boosting) multivote.Vote {
	count := p.Count
	v := multivote.Vote{
		Prediction:   p.Output,
		Confidence:   p.Confidence,
		Distribution: p.Distribution,
		Bins:         p.Bins,
		Count:        &count,
		Median:       p.Median,
		Min:          p.Min,
		Max:          p.Max,
	}
	if b != nil {
		w := b.Weight
		v.Weight = &w
		v.Class = b.ObjectiveClass
	}
	return v
}
