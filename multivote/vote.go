// Package multivote combines the predictions of several models into one.
//
// Regression votes are averaged, optionally weighted by their error bound.
// Classification votes are reduced by plurality, confidence, probability or
// threshold weighting. Votes from boosted trees are summed per class and
// normalized with a softmax instead.
//
// Exact ties are broken by vote order (earlier wins) and then by the
// lexically smaller category, so combinations are deterministic.
package multivote

import (
	"strings"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/stats"
)

// Method selects how classification votes are weighted.
type Method int

// Combination methods.
const (
	Plurality Method = iota
	ConfidenceWeighted
	ProbabilityWeighted
	Threshold
)

var methodNames = map[Method]string{
	Plurality:           "plurality",
	ConfidenceWeighted:  "confidence",
	ProbabilityWeighted: "probability",
	Threshold:           "threshold",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMethod maps a method name to its Method. Both "confidence" and
// "confidence_weighted" style names are accepted.
func ParseMethod(name string) (Method, error) {
	name = strings.TrimSuffix(strings.ToLower(name), "_weighted")
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, scigoErrors.NewCategorizedValueError("multivote.ParseMethod",
		scigoErrors.ErrInvalidCombinationMethod, "unknown combination method %q", name)
}

// Vote is one model's prediction. Optional statistics are nil when the
// model did not produce them.
type Vote struct {
	Prediction fields.Value
	// Order breaks exact ties; lower orders win.
	Order int

	Confidence   *float64
	Probability  *float64
	Distribution []stats.Category
	Bins         []stats.Point
	Count        *float64
	Median       *float64
	Min          *float64
	Max          *float64

	// Weight and Class are set on votes from boosted trees.
	Weight *float64
	Class  string
}

// IsNumeric reports whether the vote predicts a number.
func (v Vote) IsNumeric() bool {
	return v.Prediction.Kind() == fields.KindNumber
}

func (v Vote) category() string {
	return v.Prediction.String()
}

// MultiVote is an ordered set of votes.
type MultiVote struct {
	votes    []Vote
	boosting bool
}

// New returns a MultiVote whose votes are ordered by position.
func New(votes ...Vote) *MultiVote {
	mv := &MultiVote{}
	for _, v := range votes {
		mv.Append(v)
	}
	return mv
}

// WithOrders returns a MultiVote that keeps each vote's explicit Order.
func WithOrders(votes ...Vote) *MultiVote {
	mv := &MultiVote{votes: make([]Vote, 0, len(votes))}
	for _, v := range votes {
		mv.add(v)
	}
	return mv
}

// Append adds v after the existing votes, overriding its order.
func (mv *MultiVote) Append(v Vote) {
	v.Order = len(mv.votes)
	mv.add(v)
}

// Extend appends every vote of other in order.
func (mv *MultiVote) Extend(other *MultiVote) {
	for _, v := range other.votes {
		mv.Append(v)
	}
}

func (mv *MultiVote) add(v Vote) {
	if v.Weight != nil {
		mv.boosting = true
	}
	mv.votes = append(mv.votes, v)
}

// Len returns the number of votes.
func (mv *MultiVote) Len() int {
	return len(mv.votes)
}

// Votes returns a copy of the votes.
func (mv *MultiVote) Votes() []Vote {
	out := make([]Vote, len(mv.votes))
	copy(out, mv.votes)
	return out
}

// IsBoosting reports whether any vote carries a boosting weight.
func (mv *MultiVote) IsBoosting() bool {
	return mv.boosting
}

// IsRegression reports whether every vote is numeric.
func (mv *MultiVote) IsRegression() bool {
	if len(mv.votes) == 0 {
		return false
	}
	for _, v := range mv.votes {
		if !v.IsNumeric() {
			return false
		}
	}
	return true
}
