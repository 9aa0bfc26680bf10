package multivote

import (
	"math"
	"sort"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/stats"
)

// ClassScore is the probability or confidence of one class.
type ClassScore struct {
	Category string
	Score    float64
}

// SortScores orders scores by decreasing score, then category.
func SortScores(scores []ClassScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Category < scores[j].Category
	})
}

func (mv *MultiVote) combineBoosting(opts Options) (*result.Result, error) {
	if mv.IsRegression() && !hasClasses(mv.votes) {
		sum := opts.Offset
		for _, v := range mv.votes {
			f, _ := v.Prediction.Float()
			sum += boostWeight(v) * f
		}
		return &result.Result{Prediction: fields.Number(sum)}, nil
	}
	scores := mv.BoostingProbabilities(opts)
	if len(scores) == 0 {
		return &result.Result{}, nil
	}
	ranked := append([]ClassScore(nil), scores...)
	SortScores(ranked)
	dist := make([]stats.Category, len(ranked))
	for i, s := range ranked {
		dist[i] = stats.Category{Name: s.Category, Count: s.Score}
	}
	return &result.Result{
		Prediction:   fields.String(ranked[0].Category),
		Probability:  result.Float(stats.Round(ranked[0].Score, stats.Precision)),
		Confidence:   result.Float(stats.Round(ranked[0].Score, stats.Precision)),
		Distribution: dist,
	}, nil
}

// BoostingProbabilities sums the weighted scores of the boosted votes per
// class, starting from the class offsets, and normalizes them with a
// softmax. Classes follow opts.ClassNames, then first-seen vote order.
func (mv *MultiVote) BoostingProbabilities(opts Options) []ClassScore {
	classes := append([]string(nil), opts.ClassNames...)
	seen := map[string]bool{}
	for _, c := range classes {
		seen[c] = true
	}
	for _, v := range mv.votes {
		if !seen[v.Class] {
			seen[v.Class] = true
			classes = append(classes, v.Class)
		}
	}
	raw := make(map[string]float64, len(classes))
	for _, c := range classes {
		raw[c] = opts.ClassOffsets[c]
	}
	for _, v := range mv.votes {
		f, _ := v.Prediction.Float()
		raw[v.Class] += boostWeight(v) * f
	}
	return softmax(classes, raw)
}

func softmax(classes []string, raw map[string]float64) []ClassScore {
	if len(classes) == 0 {
		return nil
	}
	peak := math.Inf(-1)
	for _, c := range classes {
		peak = math.Max(peak, raw[c])
	}
	total := 0.0
	scores := make([]ClassScore, len(classes))
	for i, c := range classes {
		e := math.Exp(raw[c] - peak)
		scores[i] = ClassScore{Category: c, Score: e}
		total += e
	}
	for i := range scores {
		scores[i].Score /= total
	}
	return scores
}

func boostWeight(v Vote) float64 {
	if v.Weight == nil {
		return 1
	}
	return *v.Weight
}

func hasClasses(votes []Vote) bool {
	for _, v := range votes {
		if v.Class != "" {
			return true
		}
	}
	return false
}
