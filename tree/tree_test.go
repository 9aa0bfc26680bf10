package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multivote"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/stats"
)

func load(t *testing.T, doc string) *Model {
	t.Helper()
	m, err := Load([]byte(doc))
	require.NoError(t, err)
	return m
}

func age(a float64) fields.Input {
	return fields.Input{"000000": fields.Number(a)}
}

func TestLoad(t *testing.T) {
	m := load(t, ageModel)
	assert.Equal(t, "model/age", m.ID())
	assert.Equal(t, "age groups", m.Name())
	assert.Equal(t, 3, m.Tree().Len())
	assert.False(t, m.IsRegression())
	assert.Equal(t, []string{"old", "young"}, m.ClassNames())

	root := m.Tree().Root()
	require.NotNil(t, root.Impurity)
	assert.InDelta(t, 1-(49.0+25.0)/144, *root.Impurity, 1e-12)

	leaf, ok := m.Tree().Node(2)
	require.True(t, ok)
	assert.Equal(t, 0, leaf.Parent)
	assert.Equal(t, root, m.Tree().Parent(leaf))
	assert.Nil(t, m.Tree().Parent(root))
	assert.Equal(t, []Importance{{Field: "000000", Score: 1}}, m.Importance())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not finished", `{"status": {"code": 2}, "object": {"model": {"root": {}}}}`, scigoErrors.ErrNotFinishedModel},
		{"no root", `{"model": {}}`, scigoErrors.ErrMalformedModel},
		{"no output", `{"model": {"root": {"predicate": true}}}`, scigoErrors.ErrMalformedModel},
		{"no predicate", `{"model": {"root": {"output": "a"}}}`, scigoErrors.ErrMalformedModel},
		{
			"unknown field",
			`{"model": {"fields": {}, "root": {"predicate": true, "output": "a", "children": [
				{"predicate": {"operator": "<", "field": "000009", "value": 1}, "output": "b"}]}}}`,
			scigoErrors.ErrMalformedModel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, scigoErrors.Is(err, tt.want), "%v", err)
		})
	}
}

func TestLastPrediction(t *testing.T) {
	m := load(t, ageModel)
	p, err := m.Traverse(age(25), LastPrediction)
	require.NoError(t, err)
	assert.Equal(t, "young", p.Output.String())
	assert.Equal(t, 5.0, p.Count)
	assert.Equal(t, []string{"age < 30"}, p.Path.Rules(m.Fields()))
	assert.Empty(t, p.Next)

	t.Run("missing field stops at the root", func(t *testing.T) {
		p, err := m.Traverse(fields.Input{}, LastPrediction)
		require.NoError(t, err)
		assert.Equal(t, "old", p.Output.String())
		assert.Equal(t, 12.0, p.Count)
		assert.Equal(t, 0.31951, *p.Confidence)
		assert.Equal(t, "000000", p.Next)
		assert.Empty(t, p.Path)
	})
}

func TestLastPredictionIsDeterministic(t *testing.T) {
	m := load(t, ageModel)
	first, err := m.Predict(age(42), WithFlags(result.Full))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := m.Predict(age(42), WithFlags(result.Full))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestProportionalClassification(t *testing.T) {
	m := load(t, ageModel)
	p, err := m.Traverse(fields.Input{}, Proportional)
	require.NoError(t, err)

	dist := []stats.Category{{Name: "old", Count: 7}, {Name: "young", Count: 5}}
	assert.Equal(t, "old", p.Output.String())
	assert.Equal(t, dist, p.Distribution)
	assert.Equal(t, 12.0, p.Count, "merged population is the root count")
	want, err := stats.WilsonScore("old", dist, stats.DefaultZ, 12)
	require.NoError(t, err)
	assert.Equal(t, stats.Round(want, stats.Precision), *p.Confidence)
	assert.Empty(t, p.Path)

	t.Run("present field follows one branch", func(t *testing.T) {
		p, err := m.Traverse(age(25), Proportional)
		require.NoError(t, err)
		assert.Equal(t, "young", p.Output.String())
		assert.Equal(t, 5.0, p.Count)
		assert.Equal(t, []string{"age < 30"}, p.Path.Rules(m.Fields()))
	})
}

func TestProportionalRegression(t *testing.T) {
	m := load(t, priceModel)
	require.True(t, m.IsRegression())
	assert.Equal(t, 2, m.Tree().MaxBins())

	p, err := m.Traverse(fields.Input{}, Proportional)
	require.NoError(t, err)
	got, _ := p.Output.Float()
	assert.Equal(t, 15.0, got)
	assert.Equal(t, 4.0, p.Count)
	assert.Equal(t, UnitCounts, p.Unit)
	assert.Len(t, p.Bins, 4)

	bins := []stats.Point{{Value: 9, Count: 1}, {Value: 11, Count: 1}, {Value: 19, Count: 1}, {Value: 21, Count: 1}}
	want := stats.Round(stats.RegressionError(stats.UnbiasedVariance(bins), 4, stats.DefaultZ), stats.Precision)
	assert.Equal(t, want, *p.Confidence)
	assert.Equal(t, 15.0, *p.Median)
	assert.Equal(t, 9.0, *p.Min)
	assert.Equal(t, 21.0, *p.Max)
}

func TestProportionalNeedsRegressionDistributions(t *testing.T) {
	m := load(t, legacyPriceModel)
	_, err := m.Traverse(fields.Input{}, Proportional)
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrUnsupportedMissingStrategy))

	p, err := m.Traverse(age(50), LastPrediction)
	require.NoError(t, err)
	got, _ := p.Output.Float()
	assert.Equal(t, 20.0, got)
}

func TestBoosted(t *testing.T) {
	m := load(t, boostedModel)
	assert.True(t, m.IsBoosted())
	assert.Equal(t, Boosted, m.Tree().Kind())
	assert.Equal(t, 0.1, m.Boosting().Weight)

	p, err := m.Traverse(fields.Input{}, Proportional)
	require.NoError(t, err)
	got, _ := p.Output.Float()
	assert.InDelta(t, -1.2, got, 1e-12)
	assert.Equal(t, 6.0, p.GSum)
	assert.Equal(t, 4.0, p.HSum)
	assert.Equal(t, 8.0, p.Count)

	p, err = m.Traverse(age(25), LastPrediction)
	require.NoError(t, err)
	got, _ = p.Output.Float()
	assert.Equal(t, -1.33333, got)
	assert.Nil(t, p.Distribution)

	_, err = m.PredictProbability(age(25), LastPrediction)
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrNotImplemented))
}

func TestPredictProbabilityAndConfidence(t *testing.T) {
	m := load(t, ageModel)
	probs, err := m.PredictProbability(age(25), LastPrediction)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.Equal(t, "old", probs[0].Category)
	assert.InDelta(t, (7.0/12)/6, probs[0].Score, 1e-5)
	assert.InDelta(t, (5+5.0/12)/6, probs[1].Score, 1e-5)

	confs, err := m.PredictConfidence(age(25), LastPrediction)
	require.NoError(t, err)
	require.Len(t, confs, 2)
	assert.Equal(t, 0.0, confs[0].Score)
	assert.Greater(t, confs[1].Score, 0.5)
}

func TestPredictProjection(t *testing.T) {
	m := load(t, ageModel)

	r, err := m.Predict(age(25))
	require.NoError(t, err)
	assert.Equal(t, "young", r.Prediction.String())
	assert.Nil(t, r.Confidence)
	assert.Nil(t, r.Probability)

	r, err = m.Predict(fields.Input{}, WithFlags(result.WithConfidence|result.WithNext|result.WithProbability))
	require.NoError(t, err)
	assert.Equal(t, 0.31951, *r.Confidence)
	assert.Equal(t, "age", *r.Next)
	assert.NotNil(t, r.Probability)
	assert.Nil(t, r.Count)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "old", decoded["prediction"])
	assert.Equal(t, "age", decoded["next"])
	assert.NotContains(t, decoded, "count")
}

func TestPredictMapReportsUnusedFields(t *testing.T) {
	m := load(t, ageModel)
	r, err := m.PredictMap(map[string]interface{}{"age": "25", "color": "red"},
		WithFlags(result.WithUnusedFields|result.WithPath))
	require.NoError(t, err)
	assert.Equal(t, "young", r.Prediction.String())
	assert.Equal(t, []string{"color"}, r.UnusedFields)
	assert.Equal(t, []string{"age < 30"}, r.Path)
}

func TestOperatingPoint(t *testing.T) {
	m := load(t, ageModel)

	r, err := m.Predict(age(25), WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ProbabilityKind, Threshold: 0.05, PositiveClass: "old",
	}), WithFlags(result.WithProbability))
	require.NoError(t, err)
	assert.Equal(t, "old", r.Prediction.String())
	assert.NotNil(t, r.Probability)

	r, err = m.Predict(age(25), WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ProbabilityKind, Threshold: 0.5, PositiveClass: "old",
	}))
	require.NoError(t, err)
	assert.Equal(t, "young", r.Prediction.String())

	_, err = m.Predict(age(25), WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ConfidenceKind, Threshold: 0.5, PositiveClass: "middle",
	}))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidOperatingPoint))
}

func TestRules(t *testing.T) {
	m := load(t, ageModel)
	assert.Equal(t, []string{
		"IF age < 30 THEN group = young",
		"IF age >= 30 THEN group = old",
	}, m.Rules())
}

func TestParseMissingStrategy(t *testing.T) {
	s, err := ParseMissingStrategy("proportional")
	require.NoError(t, err)
	assert.Equal(t, Proportional, s)
	s, err = ParseMissingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, LastPrediction, s)
	_, err = ParseMissingStrategy("guess")
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrUnsupportedMissingStrategy))
}
