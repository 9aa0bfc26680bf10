package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Category is the weight of one class in a classification distribution.
type Category struct {
	Name  string
	Count float64
}

// Point is the weight of one value in a regression distribution.
type Point struct {
	Value float64
	Count float64
}

// CategoryMap turns an ordered distribution into a weight map.
func CategoryMap(dist []Category) map[string]float64 {
	m := make(map[string]float64, len(dist))
	for _, c := range dist {
		m[c.Name] += c.Count
	}
	return m
}

// MergeCategories adds the weights of src into dst and returns dst.
func MergeCategories(dst map[string]float64, src []Category) map[string]float64 {
	if dst == nil {
		dst = map[string]float64{}
	}
	for _, c := range src {
		dst[c.Name] += c.Count
	}
	return dst
}

// MergePoints adds the weights of src into dst and returns dst.
func MergePoints(dst map[float64]float64, src []Point) map[float64]float64 {
	if dst == nil {
		dst = map[float64]float64{}
	}
	for _, p := range src {
		dst[p.Value] += p.Count
	}
	return dst
}

// SortCategories orders a weight map by decreasing weight, then name.
func SortCategories(m map[string]float64) []Category {
	out := make([]Category, 0, len(m))
	for name, w := range m {
		out = append(out, Category{Name: name, Count: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SortPoints orders a weight map by increasing value.
func SortPoints(m map[float64]float64) []Point {
	out := make([]Point, 0, len(m))
	for v, w := range m {
		out = append(out, Point{Value: v, Count: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// TotalCategories sums the weights of dist.
func TotalCategories(dist []Category) float64 {
	total := 0.0
	for _, c := range dist {
		total += c.Count
	}
	return total
}

// TotalPoints sums the weights of dist.
func TotalPoints(dist []Point) float64 {
	total := 0.0
	for _, p := range dist {
		total += p.Count
	}
	return total
}

// MergeBins reduces a value-sorted distribution to at most limit points by
// repeatedly merging the two adjacent points with the smallest gap. The
// merged point is centered at the count-weighted mean of both and carries
// their summed count. The input is not modified.
func MergeBins(points []Point, limit int) []Point {
	out := append([]Point(nil), points...)
	if limit < 1 {
		return out
	}
	for len(out) > limit && len(out) >= 2 {
		idx := 1
		shortest := math.Inf(1)
		for i := 1; i < len(out); i++ {
			if d := out[i].Value - out[i-1].Value; d < shortest {
				shortest = d
				idx = i
			}
		}
		left, right := out[idx-1], out[idx]
		count := left.Count + right.Count
		merged := Point{Count: count}
		if count != 0 {
			merged.Value = (left.Value*left.Count + right.Value*right.Count) / count
		} else {
			merged.Value = (left.Value + right.Value) / 2
		}
		out[idx-1] = merged
		out = append(out[:idx], out[idx+1:]...)
	}
	return out
}

func split(points []Point) (values, weights []float64) {
	values = make([]float64, len(points))
	weights = make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
		weights[i] = p.Count
	}
	return values, weights
}

// Mean is the count-weighted mean of the distribution (NaN when empty).
func Mean(points []Point) float64 {
	if len(points) == 0 {
		return math.NaN()
	}
	values, weights := split(points)
	if floats.Sum(weights) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, weights)
}

// UnbiasedVariance is the count-weighted unbiased sample variance. It is
// NaN when the total count does not exceed 1.
func UnbiasedVariance(points []Point) float64 {
	values, weights := split(points)
	if floats.Sum(weights) <= 1 {
		return math.NaN()
	}
	return stat.Variance(values, weights)
}

// Median returns the median of a value-sorted distribution of count
// instances. ok is false for an empty distribution.
func Median(points []Point, count float64) (median float64, ok bool) {
	counter := 0.0
	var previous float64
	hasPrevious := false
	for _, p := range points {
		counter += p.Count
		if counter > count/2 {
			if math.Mod(count, 2) == 0 && counter-1 == count/2 && hasPrevious {
				return (p.Value + previous) / 2, true
			}
			return p.Value, true
		}
		previous = p.Value
		hasPrevious = true
	}
	return 0, false
}

// MinMax returns the extreme values of dist.
func MinMax(points []Point) (lo, hi float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	values, _ := split(points)
	return floats.Min(values), floats.Max(values), true
}

// Gini is the impurity 1 - sum((w/count)^2) of a classification
// distribution. ok is false for an empty distribution or zero count.
func Gini(dist []Category, count float64) (impurity float64, ok bool) {
	if len(dist) == 0 || count <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, c := range dist {
		p := c.Count / count
		sum += p * p
	}
	return 1 - sum, true
}

// LaplaceProbabilities smooths a leaf distribution into probabilities over
// classes. Each class receives a prior term, 1/k over k classes for
// weighted models or its share of the root training distribution
// otherwise, before normalizing by the total.
func LaplaceProbabilities(leaf map[string]float64, root []Category, classes []string, weighted bool) []float64 {
	prior := map[string]float64{}
	rootTotal := TotalCategories(root)
	for _, c := range root {
		switch {
		case weighted:
			prior[c.Name] = 1 / float64(len(root))
		case rootTotal > 0:
			prior[c.Name] = c.Count / rootTotal
		}
	}
	total := 0.0
	scores := make([]float64, len(classes))
	for i, class := range classes {
		scores[i] = leaf[class] + prior[class]
		total += scores[i]
	}
	if total > 0 {
		floats.Scale(1/total, scores)
	}
	return scores
}
