package ensemble

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/multivote"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/tree"
)

const labelFields = `{
  "000000": {"name": "x", "optype": "numeric", "column_number": 0},
  "000001": {"name": "label", "optype": "categorical", "column_number": 1,
             "summary": {"categories": [["A", 10], ["B", 10]]}}}`

func classifierDoc(id string, a, b int, importance float64) string {
	output := "A"
	if b > a {
		output = "B"
	}
	return fmt.Sprintf(`{"resource": %q, "objective_field": "000001", "model": {
	  "fields": %s,
	  "importance": [["000000", %v]],
	  "root": {"predicate": true, "output": %q, "count": %d,
	           "objective_summary": {"categories": [["A", %d], ["B", %d]]}}}}`,
		id, labelFields, importance, output, a+b, a, b)
}

func regressorDoc(id string, output float64, counts string) string {
	return fmt.Sprintf(`{"resource": %q, "objective_field": "000002", "model": {
	  "fields": {"000002": {"name": "price", "optype": "numeric"}},
	  "root": {"predicate": true, "output": %v, "confidence": 1, "objective_summary": {"counts": %s}}}}`,
		id, output, counts)
}

func boostedDoc(id string, output, weight float64, class string) string {
	return fmt.Sprintf(`{"resource": %q, "objective_field": "000001",
	  "boosting": {"iteration": 1, "weight": %v, "objective_class": %q},
	  "model": {"fields": %s,
	    "root": {"predicate": true, "output": %v, "count": 4, "g_sum": 1, "h_sum": 1}}}`,
		id, weight, class, labelFields, output)
}

func mustLoad(t *testing.T, doc string) *tree.Model {
	t.Helper()
	m, err := tree.Load([]byte(doc))
	require.NoError(t, err)
	return m
}

// countingResolver counts resolutions.
type countingResolver struct {
	mu    sync.Mutex
	next  Resolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, id string) (*tree.Model, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.next.Resolve(ctx, id)
}

func classifiers(t *testing.T, n int) ([]*tree.Model, MemoryResolver, *Descriptor) {
	resolver := MemoryResolver{}
	desc := &Descriptor{ID: "ensemble/test"}
	var models []*tree.Model
	for i := 0; i < n; i++ {
		a, b := 3, 1
		if i%3 == 2 {
			a, b = 1, 3
		}
		id := fmt.Sprintf("model/%d", i)
		m := mustLoad(t, classifierDoc(id, a, b, 1))
		models = append(models, m)
		resolver[id] = m
		desc.Models = append(desc.Models, id)
	}
	return models, resolver, desc
}

func TestPlurality(t *testing.T) {
	models, _, _ := classifiers(t, 3)
	e, err := FromModels(context.Background(), models)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, e.ClassNames())
	assert.False(t, e.IsRegression())

	r, err := e.Predict(context.Background(), fields.Input{})
	require.NoError(t, err)
	assert.Equal(t, "A", r.Prediction.String())
}

func TestChunking(t *testing.T) {
	_, resolver, desc := classifiers(t, 5)
	counter := &countingResolver{next: resolver}
	e, err := New(context.Background(), desc, WithResolver(counter), WithMaxModels(2))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"model/0", "model/1"}, {"model/2", "model/3"}, {"model/4"}}, e.Chunks())
	assert.Equal(t, 1, counter.calls)

	r, err := e.Predict(context.Background(), fields.Input{}, WithFlags(result.WithCount))
	require.NoError(t, err)
	assert.Equal(t, "A", r.Prediction.String())
	assert.Equal(t, 20.0, *r.Count)
	assert.Equal(t, 6, counter.calls, "every chunk is resolved again per prediction")

	single, err := New(context.Background(), desc, WithResolver(resolver))
	require.NoError(t, err)
	assert.Len(t, single.Chunks(), 1)
	want, err := single.Predict(context.Background(), fields.Input{}, WithFlags(result.WithCount))
	require.NoError(t, err)
	assert.Equal(t, want, r)
}

func TestCachedResolution(t *testing.T) {
	_, resolver, desc := classifiers(t, 4)
	counter := &countingResolver{next: resolver}
	e, err := New(context.Background(), desc, WithResolver(counter), WithMaxModels(2), WithCacheSize(8))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.Predict(context.Background(), fields.Input{})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, counter.calls)
}

func TestNewErrors(t *testing.T) {
	_, resolver, desc := classifiers(t, 2)
	_, err := New(context.Background(), &Descriptor{}, WithResolver(resolver))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrMalformedModel))

	_, err = New(context.Background(), desc)
	assert.Error(t, err)

	desc.Models = append(desc.Models, "model/missing")
	_, err = New(context.Background(), desc, WithResolver(resolver))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrModelNotFound))
}

func TestProbabilityAndOperatingPoint(t *testing.T) {
	m1 := mustLoad(t, classifierDoc("model/1", 3, 1, 1))
	m2 := mustLoad(t, classifierDoc("model/2", 1, 3, 1))
	e, err := FromModels(context.Background(), []*tree.Model{m1, m2})
	require.NoError(t, err)

	probs, err := e.PredictProbability(context.Background(), fields.Input{}, tree.LastPrediction)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.5, probs[0].Score, 1e-5)
	assert.InDelta(t, 0.5, probs[1].Score, 1e-5)

	r, err := e.Predict(context.Background(), fields.Input{}, WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ProbabilityKind, Threshold: 0.4, PositiveClass: "B",
	}))
	require.NoError(t, err)
	assert.Equal(t, "B", r.Prediction.String())

	r, err = e.Predict(context.Background(), fields.Input{}, WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ProbabilityKind, Threshold: 0.6, PositiveClass: "B",
	}))
	require.NoError(t, err)
	assert.Equal(t, "A", r.Prediction.String())

	confs, err := e.PredictConfidence(context.Background(), fields.Input{}, tree.LastPrediction)
	require.NoError(t, err)
	assert.InDelta(t, confs[0].Score, confs[1].Score, 1e-9)
}

func TestThresholdMethod(t *testing.T) {
	models, _, _ := classifiers(t, 3)
	e, err := FromModels(context.Background(), models)
	require.NoError(t, err)
	r, err := e.Predict(context.Background(), fields.Input{}, WithThreshold(1, "B"))
	require.NoError(t, err)
	assert.Equal(t, "B", r.Prediction.String())

	_, err = e.Predict(context.Background(), fields.Input{}, WithThreshold(4, "B"))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrThresholdOutOfRange))
}

func TestRegressionMedian(t *testing.T) {
	m1 := mustLoad(t, regressorDoc("model/1", 10, "[[8, 1], [9, 1], [13, 1]]"))
	m2 := mustLoad(t, regressorDoc("model/2", 20, "[[18, 1], [19, 1], [23, 1]]"))
	e, err := FromModels(context.Background(), []*tree.Model{m1, m2})
	require.NoError(t, err)
	require.True(t, e.IsRegression())

	r, err := e.Predict(context.Background(), fields.Input{})
	require.NoError(t, err)
	got, _ := r.Prediction.Float()
	assert.Equal(t, 15.0, got)

	r, err = e.Predict(context.Background(), fields.Input{}, WithMedian())
	require.NoError(t, err)
	got, _ = r.Prediction.Float()
	assert.Equal(t, 14.0, got)

	_, err = e.Predict(context.Background(), fields.Input{}, WithOperatingPoint(multivote.OperatingPoint{
		Kind: multivote.ProbabilityKind, Threshold: 0.5, PositiveClass: "A",
	}))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidOperatingPoint))
}

func TestBoosting(t *testing.T) {
	t.Run("classification", func(t *testing.T) {
		a := mustLoad(t, boostedDoc("model/a", 2, 0.5, "A"))
		b := mustLoad(t, boostedDoc("model/b", 1, 0.5, "B"))
		e, err := FromModels(context.Background(), []*tree.Model{a, b})
		require.NoError(t, err)
		require.True(t, e.IsBoosted())

		probs, err := e.PredictProbability(context.Background(), fields.Input{}, tree.LastPrediction)
		require.NoError(t, err)
		require.Len(t, probs, 2)
		want := math.Exp(1) / (math.Exp(1) + math.Exp(0.5))
		assert.InDelta(t, want, probs[0].Score, 1e-12)

		r, err := e.Predict(context.Background(), fields.Input{}, WithFlags(result.WithProbability))
		require.NoError(t, err)
		assert.Equal(t, "A", r.Prediction.String())

		_, err = e.PredictConfidence(context.Background(), fields.Input{}, tree.LastPrediction)
		assert.True(t, scigoErrors.Is(err, scigoErrors.ErrNotImplemented))
	})
	t.Run("regression with offset", func(t *testing.T) {
		doc := func(id string, output float64) string {
			return fmt.Sprintf(`{"resource": %q, "objective_field": "000002", "boosting": {"weight": 0.1},
			  "model": {"fields": {"000002": {"name": "price", "optype": "numeric"}},
			    "root": {"predicate": true, "output": %v, "count": 2, "g_sum": 1, "h_sum": 1}}}`, id, output)
		}
		resolver := MemoryResolver{
			"model/1": mustLoad(t, doc("model/1", 2)),
			"model/2": mustLoad(t, doc("model/2", 4)),
		}
		desc := &Descriptor{ID: "ensemble/boosted", Models: []string{"model/1", "model/2"}, Boosted: true, InitialOffset: 0.5}
		e, err := New(context.Background(), desc, WithResolver(resolver))
		require.NoError(t, err)
		require.True(t, e.IsRegression())
		r, err := e.Predict(context.Background(), fields.Input{})
		require.NoError(t, err)
		got, _ := r.Prediction.Float()
		assert.InDelta(t, 1.1, got, 1e-12)
	})
}

func TestFieldImportance(t *testing.T) {
	t.Run("from distributions", func(t *testing.T) {
		_, resolver, desc := classifiers(t, 2)
		desc.Distributions = []ModelDistribution{
			{Importance: []fields.Count{{Value: "000000", Count: 0.6}, {Value: "000001", Count: 0.4}}},
			{Importance: []fields.Count{{Value: "000000", Count: 0.2}, {Value: "000001", Count: 0.8}}},
		}
		e, err := New(context.Background(), desc, WithResolver(resolver))
		require.NoError(t, err)
		imp, err := e.FieldImportance(context.Background())
		require.NoError(t, err)
		require.Len(t, imp, 2)
		assert.Equal(t, "000001", imp[0].Field)
		assert.InDelta(t, 0.6, imp[0].Score, 1e-12)
		assert.InDelta(t, 0.4, imp[1].Score, 1e-12)
	})
	t.Run("from models", func(t *testing.T) {
		m1 := mustLoad(t, classifierDoc("model/1", 3, 1, 1))
		m2 := mustLoad(t, classifierDoc("model/2", 3, 1, 0.5))
		e, err := FromModels(context.Background(), []*tree.Model{m1, m2}, WithMaxModels(1))
		require.NoError(t, err)
		imp, err := e.FieldImportance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []tree.Importance{{Field: "000000", Score: 0.75}}, imp)
	})
}

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{
	  "resource": "ensemble/1",
	  "status": {"code": 5},
	  "object": {
	    "models": ["model/1", "model/2"],
	    "objective_field": "000001",
	    "boosting": {"iterations": 2},
	    "initial_offsets": [["A", 0.1], ["B", -0.1]],
	    "ensemble": {"fields": {"000001": {"name": "label", "optype": "categorical"}}}
	  }}`))
	require.NoError(t, err)
	assert.Equal(t, "ensemble/1", d.ID)
	assert.Equal(t, []string{"model/1", "model/2"}, d.Models)
	assert.True(t, d.Boosted)
	assert.Equal(t, map[string]float64{"A": 0.1, "B": -0.1}, d.InitialOffsets)
	assert.Equal(t, "label", d.Fields.Name("000001"))
	assert.Equal(t, "000001", d.Fields["000001"].ID)

	_, err = ParseDescriptor([]byte(`{"status": {"code": 1}, "object": {"models": ["model/1"]}}`))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrNotFinishedModel))

	_, err = ParseDescriptor([]byte(`{"models": []}`))
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrMalformedModel))
}
