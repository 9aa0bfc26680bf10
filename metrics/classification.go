package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// Accuracy returns the fraction of predicted labels equal to the actual
// ones.
func Accuracy(actual, predicted []string) (float64, error) {
	if len(actual) == 0 {
		return 0, scigoErrors.NewValueError("Accuracy", "no labels")
	}
	if len(predicted) != len(actual) {
		return 0, scigoErrors.NewDimensionError("Accuracy", len(actual), len(predicted))
	}
	hits := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(actual)), nil
}

// Labels returns the sorted union of the labels in both slices.
func Labels(actual, predicted []string) []string {
	seen := map[string]bool{}
	var labels []string
	for _, list := range [][]string{actual, predicted} {
		for _, l := range list {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// ConfusionMatrix counts predictions per (actual, predicted) pair. Row i and
// column j follow labels; pairs with a label outside labels are ignored.
func ConfusionMatrix(actual, predicted, labels []string) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, scigoErrors.NewValueError("ConfusionMatrix", "no labels")
	}
	if len(predicted) != len(actual) {
		return nil, scigoErrors.NewDimensionError("ConfusionMatrix", len(actual), len(predicted))
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	m := mat.NewDense(len(labels), len(labels), nil)
	for k := range actual {
		i, ok := index[actual[k]]
		j, found := index[predicted[k]]
		if !ok || !found {
			continue
		}
		m.Set(i, j, m.At(i, j)+1)
	}
	return m, nil
}
