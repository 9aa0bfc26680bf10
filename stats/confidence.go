// Package stats holds the statistical helpers shared by tree traversal and
// vote combination: Wilson score confidence, regression error bounds, bin
// merging and distribution arithmetic.
//
// All functions are pure. Numerically degenerate inputs (zero variance,
// zero population) return a defined value, usually +Inf or NaN, instead of
// an error.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

const (
	// DefaultZ is the z-score of the 95% confidence level.
	DefaultZ = 1.96
	// BinsLimit bounds the number of points kept in regression distributions.
	BinsLimit = 32
	// Precision is the number of decimals kept for confidences.
	Precision = 5
)

// WilsonScore returns the lower bound of the Wilson score interval for the
// proportion of category in dist. Weights are normalized to probabilities;
// n is the number of instances, defaulting to the sum of weights when n <= 0.
func WilsonScore(category string, dist []Category, z, n float64) (float64, error) {
	return WilsonScoreMap(category, CategoryMap(dist), z, n)
}

// WilsonScoreMap is WilsonScore over a category to weight map.
func WilsonScoreMap(category string, dist map[string]float64, z, n float64) (float64, error) {
	p := dist[category]
	if p < 0 {
		return 0, scigoErrors.NewValueError("stats.WilsonScore",
			fmt.Sprintf("category %q has negative weight %v", category, p))
	}
	norm := 0.0
	for _, w := range dist {
		norm += w
	}
	if norm != 1 && norm != 0 {
		p /= norm
	}
	if n <= 0 {
		n = norm
	}
	if n < 1 {
		return 0, scigoErrors.NewValueError("stats.WilsonScore",
			fmt.Sprintf("total instances %v below 1", n))
	}
	z2 := z * z
	factor := z2 / n
	root := math.Sqrt((p*(1-p) + factor/4) / n)
	return (p + factor/2 - z*root) / (1 + factor), nil
}

// RegressionError scales the unbiased variance of a regression prediction
// into an error bound using the chi-square percentile 1-erf(z/sqrt(2)) with
// instances degrees of freedom. It is +Inf when instances is 0 or the
// percentile vanishes.
func RegressionError(variance, instances, z float64) float64 {
	if instances <= 0 || math.IsNaN(variance) {
		return math.Inf(1)
	}
	chi := distuv.ChiSquared{K: instances}
	ppf := chi.Quantile(1 - math.Erf(z/math.Sqrt2))
	if ppf == 0 || math.IsNaN(ppf) {
		return math.Inf(1)
	}
	e := variance * (instances - 1) / ppf
	e *= math.Pow(math.Sqrt(instances)+z, 2)
	return math.Sqrt(e / instances)
}

// Round rounds x to the given number of decimals. Infinities and NaN are
// returned unchanged.
func Round(x float64, decimals int) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}
