package multivote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/stats"
)

func label(s string) Vote {
	return Vote{Prediction: fields.String(s)}
}

func number(f float64) Vote {
	return Vote{Prediction: fields.Number(f)}
}

func f(x float64) *float64 { return &x }

func TestPlurality(t *testing.T) {
	mv := New(label("A"), label("A"), label("B"))
	r, err := mv.Combine(Options{Method: Plurality})
	require.NoError(t, err)
	assert.Equal(t, "A", r.Prediction.String())
	assert.Nil(t, r.Confidence, "confidence is only exposed when requested")
}

func TestTieBreak(t *testing.T) {
	t.Run("earlier order wins", func(t *testing.T) {
		r, err := New(label("B"), label("A")).Combine(Options{})
		require.NoError(t, err)
		assert.Equal(t, "B", r.Prediction.String())
	})
	t.Run("smaller name wins on equal order", func(t *testing.T) {
		r, err := WithOrders(label("B"), label("A")).Combine(Options{})
		require.NoError(t, err)
		assert.Equal(t, "A", r.Prediction.String())
	})
}

func TestCombineErrors(t *testing.T) {
	_, err := New().Combine(Options{})
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrEmptyVoteSet))

	_, err = New(label("A"), label("B")).Combine(Options{Method: ConfidenceWeighted})
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidCombinationMethod))

	_, err = New(label("A")).Combine(Options{Method: ProbabilityWeighted})
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidCombinationMethod))

	_, err = New(number(1), number(2)).Combine(Options{Method: ConfidenceWeighted})
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidCombinationMethod))

	three := New(label("A"), label("A"), label("B"))
	for _, threshold := range []int{0, 4} {
		_, err = three.Combine(Options{Method: Threshold, Threshold: threshold, Category: "B"})
		assert.True(t, scigoErrors.Is(err, scigoErrors.ErrThresholdOutOfRange), "threshold %d", threshold)
	}
}

func TestThreshold(t *testing.T) {
	mv := New(label("A"), label("A"), label("B"))

	r, err := mv.Combine(Options{Method: Threshold, Threshold: 1, Category: "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", r.Prediction.String())

	r, err = mv.Combine(Options{Method: Threshold, Threshold: 2, Category: "B"})
	require.NoError(t, err)
	assert.Equal(t, "A", r.Prediction.String())
}

func TestConfidence(t *testing.T) {
	t.Run("average of agreeing votes", func(t *testing.T) {
		a1, a2, b := label("A"), label("A"), label("B")
		a1.Confidence, a2.Confidence, b.Confidence = f(0.9), f(0.7), f(0.8)
		r, err := New(a1, a2, b).Combine(Options{Flags: result.WithConfidence})
		require.NoError(t, err)
		require.NotNil(t, r.Confidence)
		assert.InDelta(t, 0.8, *r.Confidence, 1e-9)
	})
	t.Run("wilson fallback", func(t *testing.T) {
		r, err := New(label("A"), label("A"), label("B")).Combine(Options{Flags: result.Full})
		require.NoError(t, err)
		want, err := stats.WilsonScore("A", []stats.Category{{Name: "A", Count: 2}, {Name: "B", Count: 1}}, stats.DefaultZ, 3)
		require.NoError(t, err)
		require.NotNil(t, r.Confidence)
		assert.InDelta(t, want, *r.Confidence, 1e-5)
		assert.InDelta(t, 2.0/3, *r.Probability, 1e-9)
	})
}

func TestProbabilityWeighted(t *testing.T) {
	vote := func(a, b float64) Vote {
		v := label("A")
		if b > a {
			v = label("B")
		}
		v.Distribution = []stats.Category{{Name: "A", Count: a}, {Name: "B", Count: b}}
		v.Count = f(a + b)
		return v
	}
	r, err := New(vote(1, 3), vote(3, 1), vote(0, 4)).Combine(Options{Method: ProbabilityWeighted, Flags: result.Full})
	require.NoError(t, err)
	assert.Equal(t, "B", r.Prediction.String())
	assert.Equal(t, []stats.Category{{Name: "B", Count: 2}, {Name: "A", Count: 1}}, r.Distribution)
	require.NotNil(t, r.Count)
	assert.Equal(t, 12.0, *r.Count)
}

func TestProbabilitySharesAreRounded(t *testing.T) {
	v := label("A")
	v.Distribution = []stats.Category{{Name: "A", Count: 2}, {Name: "B", Count: 1}}
	v.Count = f(3)
	expanded, err := byProbability([]Vote{v})
	require.NoError(t, err)
	require.Len(t, expanded, 2)
	assert.Equal(t, 0.66667, expanded[0].weight)
	assert.Equal(t, 0.66667, *expanded[0].Probability)
	assert.Equal(t, 0.33333, expanded[1].weight)
}

func TestRegressionAverage(t *testing.T) {
	a, b, c := number(1), number(2), number(3)
	a.Min, a.Max = f(0), f(4)
	b.Min, b.Max = f(-1), f(3)
	r, err := New(a, b, c).Combine(Options{Flags: result.Full})
	require.NoError(t, err)
	got, _ := r.Prediction.Float()
	assert.Equal(t, 2.0, got)
	assert.Equal(t, -1.0, *r.Min)
	assert.Equal(t, 4.0, *r.Max)
}

func TestErrorWeighted(t *testing.T) {
	t.Run("equal errors weigh uniformly", func(t *testing.T) {
		a, b := number(10), number(20)
		a.Confidence, b.Confidence = f(2), f(2)
		r, err := New(a, b).Combine(Options{Method: ConfidenceWeighted})
		require.NoError(t, err)
		got, _ := r.Prediction.Float()
		assert.Equal(t, 15.0, got)
	})
	t.Run("lower error dominates", func(t *testing.T) {
		a, b := number(10), number(20)
		a.Confidence, b.Confidence = f(1), f(3)
		r, err := New(a, b).Combine(Options{Method: ConfidenceWeighted})
		require.NoError(t, err)
		got, _ := r.Prediction.Float()
		assert.InDelta(t, 10, got, 1e-3)
	})
}

func TestBoosting(t *testing.T) {
	t.Run("regression sums weighted steps", func(t *testing.T) {
		a, b := number(-1.2), number(0.4)
		a.Weight, b.Weight = f(0.5), f(0.5)
		mv := New(a, b)
		assert.True(t, mv.IsBoosting())
		r, err := mv.Combine(Options{Offset: 1})
		require.NoError(t, err)
		got, _ := r.Prediction.Float()
		assert.InDelta(t, 0.6, got, 1e-12)
	})
	t.Run("classification softmax", func(t *testing.T) {
		a, b := number(1), number(0)
		a.Weight, a.Class = f(1), "a"
		b.Weight, b.Class = f(1), "b"
		mv := New(a, b)
		scores := mv.BoostingProbabilities(Options{ClassNames: []string{"a", "b", "c"}})
		require.Len(t, scores, 3)
		e := math.E
		assert.InDelta(t, e/(e+2), scores[0].Score, 1e-12)
		assert.InDelta(t, 1/(e+2), scores[2].Score, 1e-12)

		r, err := mv.Combine(Options{ClassNames: []string{"a", "b", "c"}, Flags: result.WithProbability})
		require.NoError(t, err)
		assert.Equal(t, "a", r.Prediction.String())
		assert.InDelta(t, e/(e+2), *r.Probability, 1e-5)
	})
}

func TestSelectOperating(t *testing.T) {
	classes := []string{"a", "b", "c"}
	scores := []ClassScore{{"a", 0.3}, {"b", 0.5}, {"c", 0.2}}

	got, err := SelectOperating(scores, OperatingPoint{Kind: ProbabilityKind, Threshold: 0.2, PositiveClass: "a"}, classes)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Category)

	got, err = SelectOperating(scores, OperatingPoint{Kind: ConfidenceKind, Threshold: 0.3, PositiveClass: "a"}, classes)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Category, "score must exceed the threshold")

	for _, op := range []OperatingPoint{
		{Kind: "odds", Threshold: 0.5, PositiveClass: "a"},
		{Kind: ProbabilityKind, Threshold: 1.5, PositiveClass: "a"},
		{Kind: ProbabilityKind, Threshold: 0.5, PositiveClass: "z"},
	} {
		_, err := SelectOperating(scores, op, classes)
		assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidOperatingPoint), "%+v", op)
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("confidence_weighted")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceWeighted, m)
	m, err = ParseMethod("Threshold")
	require.NoError(t, err)
	assert.Equal(t, Threshold, m)
	_, err = ParseMethod("median")
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidCombinationMethod))
}
