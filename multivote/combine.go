package multivote

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/stats"
)

// errorRange is the span confidences are rescaled to before the
// error-weighted exponentiation.
const errorRange = 10.0

// Options configures Combine.
type Options struct {
	Method Method
	// Threshold and Category configure the Threshold method.
	Threshold int
	Category  string
	// Flags selects the optional keys of the result.
	Flags result.Flags
	// ClassNames lists the known classes in canonical order. Boosted
	// classification scores every listed class even without votes.
	ClassNames []string
	// Offset and ClassOffsets are the initial boosting scores.
	Offset       float64
	ClassOffsets map[string]float64
}

// Combine reduces the votes to one prediction.
func (mv *MultiVote) Combine(opts Options) (*result.Result, error) {
	const op = "multivote.Combine"
	if len(mv.votes) == 0 {
		return nil, scigoErrors.NewCategorizedValueError(op, scigoErrors.ErrEmptyVoteSet,
			"no predictions to combine")
	}
	var (
		r   *result.Result
		err error
	)
	switch {
	case mv.boosting:
		r, err = mv.combineBoosting(opts)
	case mv.IsRegression():
		if opts.Method == ConfidenceWeighted {
			r, err = errorWeighted(mv.votes)
		} else {
			r = average(mv.votes)
		}
	default:
		r, err = mv.combineClassification(opts)
	}
	if err != nil {
		return nil, err
	}
	return r.Project(opts.Flags), nil
}

// average is the unweighted mean of the numeric votes.
func average(votes []Vote) *result.Result {
	n := float64(len(votes))
	sum := 0.0
	for _, v := range votes {
		f, _ := v.Prediction.Float()
		sum += f
	}
	r := &result.Result{Prediction: fields.Number(sum / n)}
	r.Confidence = meanOf(votes, func(v Vote) *float64 { return v.Confidence })
	r.Median = meanOf(votes, func(v Vote) *float64 { return v.Median })
	r.Count = sumOf(votes, func(v Vote) *float64 { return v.Count })
	r.Min, r.Max = extremes(votes)
	return r
}

// errorWeighted weights every vote by exp(-e) where e is its confidence
// rescaled to [0, 10]. Equal confidences give every vote weight 1.
func errorWeighted(votes []Vote) (*result.Result, error) {
	confidences := make([]float64, len(votes))
	for i, v := range votes {
		if v.Confidence == nil {
			return nil, scigoErrors.NewCategorizedValueError("multivote.Combine",
				scigoErrors.ErrInvalidCombinationMethod,
				"error weighted combination needs a confidence in every prediction")
		}
		confidences[i] = *v.Confidence
	}
	lo, hi := floats.Min(confidences), floats.Max(confidences)
	weights := make([]float64, len(votes))
	for i, c := range confidences {
		weights[i] = 1
		if span := hi - lo; span > 0 {
			weights[i] = math.Exp((lo - c) / span * errorRange)
		}
	}
	total := floats.Sum(weights)
	weighted := func(get func(Vote) *float64) *float64 {
		sum, norm := 0.0, 0.0
		for i, v := range votes {
			if x := get(v); x != nil {
				sum += *x * weights[i]
				norm += weights[i]
			}
		}
		if norm == 0 {
			return nil
		}
		return result.Float(sum / norm)
	}
	prediction := weighted(func(v Vote) *float64 {
		f, _ := v.Prediction.Float()
		return &f
	})
	r := &result.Result{Prediction: fields.Number(*prediction)}
	r.Confidence = result.Float(floats.Dot(weights, confidences) / total)
	r.Median = weighted(func(v Vote) *float64 { return v.Median })
	r.Count = sumOf(votes, func(v Vote) *float64 { return v.Count })
	r.Min, r.Max = extremes(votes)
	return r, nil
}

func meanOf(votes []Vote, get func(Vote) *float64) *float64 {
	sum, n := 0.0, 0
	for _, v := range votes {
		if x := get(v); x != nil {
			sum += *x
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return result.Float(sum / float64(n))
}

func sumOf(votes []Vote, get func(Vote) *float64) *float64 {
	sum, n := 0.0, 0
	for _, v := range votes {
		if x := get(v); x != nil {
			sum += *x
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return result.Float(sum)
}

func extremes(votes []Vote) (lo, hi *float64) {
	for _, v := range votes {
		if v.Min != nil && (lo == nil || *v.Min < *lo) {
			lo = result.Float(*v.Min)
		}
		if v.Max != nil && (hi == nil || *v.Max > *hi) {
			hi = result.Float(*v.Max)
		}
	}
	return lo, hi
}

// weightedVote is a classification vote with the weight its method gives it.
type weightedVote struct {
	Vote
	weight float64
}

func (mv *MultiVote) combineClassification(opts Options) (*result.Result, error) {
	const op = "multivote.Combine"
	var (
		votes []weightedVote
		err   error
	)
	switch opts.Method {
	case Plurality:
		votes = uniform(mv.votes)
	case ConfidenceWeighted:
		votes, err = byConfidence(mv.votes)
	case ProbabilityWeighted:
		votes, err = byProbability(mv.votes)
	case Threshold:
		var subset []Vote
		subset, err = singleOutCategory(mv.votes, opts.Threshold, opts.Category)
		votes = uniform(subset)
	default:
		err = scigoErrors.NewCategorizedValueError(op, scigoErrors.ErrInvalidCombinationMethod,
			"unknown combination method %d", int(opts.Method))
	}
	if err != nil {
		return nil, err
	}

	winner, dist := combineCategorical(votes)
	r := &result.Result{Prediction: fields.String(winner), Distribution: dist}
	total := stats.TotalCategories(dist)
	if total > 0 {
		r.Probability = result.Float(stats.CategoryMap(dist)[winner] / total)
	}
	count := countOf(votes)
	r.Count = count

	if opts.Flags.Has(result.WithConfidence) {
		confidence, err := weightedConfidence(winner, votes, opts.Method == ConfidenceWeighted)
		if err != nil {
			return nil, err
		}
		if confidence == nil {
			n := total
			if count != nil {
				n = *count
			}
			c, err := stats.WilsonScore(winner, dist, stats.DefaultZ, n)
			if err != nil {
				return nil, err
			}
			confidence = result.Float(stats.Round(c, stats.Precision))
		}
		r.Confidence = confidence
	}
	return r, nil
}

func uniform(votes []Vote) []weightedVote {
	out := make([]weightedVote, len(votes))
	for i, v := range votes {
		out[i] = weightedVote{Vote: v, weight: 1}
	}
	return out
}

func byConfidence(votes []Vote) ([]weightedVote, error) {
	out := make([]weightedVote, len(votes))
	for i, v := range votes {
		if v.Confidence == nil {
			return nil, scigoErrors.NewCategorizedValueError("multivote.Combine",
				scigoErrors.ErrInvalidCombinationMethod,
				"confidence weighting needs a confidence in every prediction")
		}
		out[i] = weightedVote{Vote: v, weight: *v.Confidence}
	}
	return out, nil
}

// byProbability expands each vote's distribution into one vote per
// category weighted by the category's share of the vote's instances,
// rounded to stats.Precision decimals.
func byProbability(votes []Vote) ([]weightedVote, error) {
	var out []weightedVote
	for _, v := range votes {
		if v.Distribution == nil || v.Count == nil || *v.Count <= 0 {
			return nil, scigoErrors.NewCategorizedValueError("multivote.Combine",
				scigoErrors.ErrInvalidCombinationMethod,
				"probability weighting needs a distribution and count in every prediction")
		}
		total := *v.Count
		for _, c := range v.Distribution {
			share := stats.Round(c.Count/total, stats.Precision)
			out = append(out, weightedVote{
				Vote: Vote{
					Prediction:  fields.String(c.Name),
					Order:       v.Order,
					Probability: result.Float(share),
					Count:       result.Float(c.Count),
				},
				weight: share,
			})
		}
	}
	return out, nil
}

// singleOutCategory keeps the votes for category when there are at least
// threshold of them, and the remaining votes otherwise.
func singleOutCategory(votes []Vote, threshold int, category string) ([]Vote, error) {
	const op = "multivote.Combine"
	if threshold < 1 || threshold > len(votes) {
		return nil, scigoErrors.NewCategorizedValueError(op, scigoErrors.ErrThresholdOutOfRange,
			"threshold %d outside [1, %d]", threshold, len(votes))
	}
	if category == "" {
		return nil, scigoErrors.NewValueError(op, "threshold combination needs a category")
	}
	var in, out []Vote
	for _, v := range votes {
		if v.category() == category {
			in = append(in, v)
		} else {
			out = append(out, v)
		}
	}
	if len(in) >= threshold {
		return in, nil
	}
	return out, nil
}

// combineCategorical accumulates vote weights per category and returns the
// winner: highest weight, then earliest order, then smallest name.
func combineCategorical(votes []weightedVote) (string, []stats.Category) {
	type tally struct {
		name   string
		weight float64
		order  int
	}
	index := map[string]int{}
	var tallies []tally
	for _, v := range votes {
		name := v.category()
		i, ok := index[name]
		if !ok {
			index[name] = len(tallies)
			tallies = append(tallies, tally{name: name, order: v.Order})
			i = len(tallies) - 1
		}
		tallies[i].weight += v.weight
		if v.Order < tallies[i].order {
			tallies[i].order = v.Order
		}
	}
	if len(tallies) == 0 {
		return "", nil
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.name < b.name
	})
	dist := make([]stats.Category, len(tallies))
	for i, t := range tallies {
		dist[i] = stats.Category{Name: t.name, Count: t.weight}
	}
	return tallies[0].name, dist
}

// weightedConfidence averages the confidence of the votes agreeing with
// winner. It returns nil when some vote has no confidence.
func weightedConfidence(winner string, votes []weightedVote, weighted bool) (*float64, error) {
	for _, v := range votes {
		if v.Confidence == nil {
			return nil, nil
		}
	}
	sum, norm := 0.0, 0.0
	for _, v := range votes {
		if v.category() != winner {
			continue
		}
		w := 1.0
		if weighted {
			w = v.weight
		}
		sum += *v.Confidence * w
		norm += w
	}
	if norm == 0 {
		return result.Float(0), nil
	}
	return result.Float(stats.Round(sum/norm, stats.Precision)), nil
}

func countOf(votes []weightedVote) *float64 {
	sum := 0.0
	for _, v := range votes {
		if v.Count == nil {
			return nil
		}
		sum += *v.Count
	}
	return &sum
}
