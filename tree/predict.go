package tree

import (
	"math"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/predicate"
	"github.com/ezoic/sciforest/rule"
	"github.com/ezoic/sciforest/stats"
)

// MissingStrategy selects how a traversal handles a missing split field.
type MissingStrategy int

const (
	// LastPrediction stops at the node whose children cannot be chosen.
	LastPrediction MissingStrategy = iota
	// Proportional follows every branch and merges their predictions.
	Proportional
)

func (s MissingStrategy) String() string {
	if s == Proportional {
		return "proportional"
	}
	return "last_prediction"
}

// ParseMissingStrategy maps "last_prediction" / "proportional" (or 0 / 1)
// to a strategy.
func ParseMissingStrategy(name string) (MissingStrategy, error) {
	switch name {
	case "", "last_prediction", "last", "0":
		return LastPrediction, nil
	case "proportional", "1":
		return Proportional, nil
	}
	return 0, scigoErrors.NewCategorizedValueError("tree.ParseMissingStrategy",
		scigoErrors.ErrUnsupportedMissingStrategy, "unknown missing strategy %q", name)
}

// Prediction is the outcome of one traversal. Optional statistics are nil
// when the tree does not provide them.
type Prediction struct {
	Output fields.Value
	Path   rule.Path

	Confidence *float64
	// Distribution is set for classification, Bins for regression.
	Distribution []stats.Category
	Bins         []stats.Point
	Unit         string
	Count        float64
	Median       *float64
	Min          *float64
	Max          *float64

	// GSum and HSum are the merged gradient statistics of boosted trees.
	GSum float64
	HSum float64

	// Next is the id of the field the terminal node splits on, empty at
	// leaves.
	Next string
}

// Predict traverses t with the given strategy.
func (t *Tree) Predict(in fields.Input, strategy MissingStrategy) (*Prediction, error) {
	switch strategy {
	case LastPrediction:
		return t.predictLast(in), nil
	case Proportional:
		if t.kind == Plain && t.IsRegression() && t.maxBins == 0 {
			return nil, scigoErrors.NewCategorizedValueError("tree.Predict",
				scigoErrors.ErrUnsupportedMissingStrategy,
				"regression tree carries no distributions for proportional predictions")
		}
		return t.predictProportional(in)
	}
	return nil, scigoErrors.NewCategorizedValueError("tree.Predict",
		scigoErrors.ErrUnsupportedMissingStrategy, "unknown missing strategy %d", int(strategy))
}

func (t *Tree) predictLast(in fields.Input) *Prediction {
	idx := 0
	var path rule.Path
	for {
		next := -1
		for _, c := range t.nodes[idx].Children {
			if t.nodes[c].Predicate.Apply(in, t.fields) {
				next = c
				break
			}
		}
		if next < 0 {
			break
		}
		path = path.Append(t.nodes[next].Predicate)
		idx = next
	}
	n := &t.nodes[idx]
	p := &Prediction{
		Output:       n.Output,
		Path:         path,
		Confidence:   n.Confidence,
		Distribution: n.Distribution,
		Bins:         n.Bins,
		Unit:         n.Unit,
		Count:        n.Count,
		Median:       n.Median,
		Min:          n.Min,
		Max:          n.Max,
		GSum:         n.GSum,
		HSum:         n.HSum,
		Next:         t.splitField(n),
	}
	if t.kind == Boosted {
		p.Distribution, p.Bins, p.Unit = nil, nil, ""
		p.Median, p.Min, p.Max = nil, nil, nil
		p.Confidence = nil
	}
	if p.Confidence == nil && t.kind == Plain && !n.Regression && n.Distribution != nil {
		if c, err := stats.WilsonScore(n.Output.String(), n.Distribution, stats.DefaultZ, n.Count); err == nil {
			p.Confidence = floatPtr(stats.Round(c, stats.Precision))
		}
	}
	return p
}

// merger accumulates what the leaves reached by a proportional traversal
// predict.
type merger struct {
	kind       Kind
	categories map[string]float64
	points     map[float64]float64
	lo, hi     *float64
	population float64
	gSum, hSum float64
}

func (m *merger) add(n *Node) {
	m.population += n.Count
	if m.kind == Boosted {
		m.gSum += n.GSum
		m.hSum += n.HSum
		return
	}
	if n.Regression {
		m.points = stats.MergePoints(m.points, n.Bins)
	} else {
		m.categories = stats.MergeCategories(m.categories, n.Distribution)
	}
	if n.Min != nil && (m.lo == nil || *n.Min < *m.lo) {
		m.lo = floatPtr(*n.Min)
	}
	if n.Max != nil && (m.hi == nil || *n.Max > *m.hi) {
		m.hi = floatPtr(*n.Max)
	}
}

// walk descends from idx. While the split can be decided it follows the
// single matching child and extends the path; once a missing split field
// is met every child below it is merged and the path stops growing. It
// returns the terminal node and its parent, as arena indices.
func (t *Tree) walk(idx, parent int, in fields.Input, m *merger, path *rule.Path, missingFound bool) (last, lastParent int) {
	n := &t.nodes[idx]
	if n.IsLeaf() {
		m.add(n)
		return idx, parent
	}
	if t.oneBranch(n, in) {
		for _, c := range n.Children {
			pred := t.nodes[c].Predicate
			if !pred.Apply(in, t.fields) {
				continue
			}
			if !missingFound && !containsRule(*path, pred, t.fields) {
				*path = path.Append(pred)
			}
			return t.walk(c, idx, in, m, path, missingFound)
		}
		m.add(n)
		return idx, parent
	}
	for _, c := range n.Children {
		t.walk(c, idx, in, m, path, true)
	}
	return idx, idx
}

// oneBranch reports whether the children of n can be decided from in: the
// split field is present, some child takes missing values, or the split is
// on a text or items field.
func (t *Tree) oneBranch(n *Node, in fields.Input) bool {
	field := t.splitField(n)
	if in.Has(field) {
		return true
	}
	switch t.fields.Optype(field) {
	case fields.Text, fields.Items:
		return true
	}
	for _, c := range n.Children {
		p := t.nodes[c].Predicate
		if p == nil || p.Missing || p.IsMissingTest() {
			return true
		}
	}
	return false
}

func containsRule(path rule.Path, pred *predicate.Predicate, t fields.Table) bool {
	r := pred.ToRule(t)
	for _, p := range path {
		if p.ToRule(t) == r {
			return true
		}
	}
	return false
}

func (t *Tree) predictProportional(in fields.Input) (*Prediction, error) {
	m := &merger{kind: t.kind}
	var path rule.Path
	lastIdx, parentIdx := t.walk(0, -1, in, m, &path, false)
	last := &t.nodes[lastIdx]
	parent := last
	if parentIdx >= 0 {
		parent = &t.nodes[parentIdx]
	}

	if t.kind == Boosted {
		return &Prediction{
			Output: fields.Number(-m.gSum / (m.hSum + t.lambda)),
			Path:   path,
			Count:  m.population,
			GSum:   m.gSum,
			HSum:   m.hSum,
			Next:   t.splitField(last),
		}, nil
	}
	if t.IsRegression() {
		return t.regressionPrediction(m, path, last, parent), nil
	}
	return t.classificationPrediction(m, path, last)
}

func (t *Tree) classificationPrediction(m *merger, path rule.Path, last *Node) (*Prediction, error) {
	dist := stats.SortCategories(m.categories)
	p := &Prediction{
		Path:         path,
		Distribution: dist,
		Unit:         UnitCategories,
		Count:        m.population,
		Next:         t.splitField(last),
	}
	if len(dist) == 0 {
		p.Output = last.Output
		p.Confidence = last.Confidence
		return p, nil
	}
	p.Output = fields.String(dist[0].Name)
	c, err := stats.WilsonScore(dist[0].Name, dist, stats.DefaultZ, m.population)
	if err != nil {
		return nil, err
	}
	p.Confidence = floatPtr(stats.Round(c, stats.Precision))
	return p, nil
}

func (t *Tree) regressionPrediction(m *merger, path rule.Path, last, parent *Node) *Prediction {
	points := stats.SortPoints(m.points)
	p := &Prediction{
		Path: path,
		Min:  m.lo,
		Max:  m.hi,
		Next: t.splitField(last),
	}
	// A single instance reached: its node's own prediction is exact.
	if len(points) == 1 && points[0].Count == 1 {
		p.Output = last.Output
		p.Confidence = last.Confidence
		p.Bins = points
		p.Unit = UnitCounts
		p.Count = 1
		p.Median, p.Min, p.Max = last.Median, last.Min, last.Max
		return p
	}
	p.Unit = UnitCounts
	if len(points) > stats.BinsLimit {
		p.Unit = UnitBins
	}
	bins := stats.MergeBins(points, stats.BinsLimit)
	total := stats.TotalPoints(bins)
	p.Bins = bins
	p.Count = total
	switch len(bins) {
	case 0:
		p.Output = last.Output
		p.Confidence = last.Confidence
		return p
	case 1:
		p.Output = fields.Number(bins[0].Value)
		if parent.Confidence != nil {
			n := math.Max(total, 1)
			p.Confidence = floatPtr(stats.Round(*parent.Confidence/math.Sqrt(n), stats.Precision))
		}
	default:
		p.Output = fields.Number(stats.Mean(bins))
		e := stats.RegressionError(stats.UnbiasedVariance(bins), total, stats.DefaultZ)
		p.Confidence = floatPtr(stats.Round(e, stats.Precision))
	}
	if median, ok := stats.Median(bins, total); ok {
		p.Median = &median
	}
	return p
}

func floatPtr(f float64) *float64 {
	return &f
}
