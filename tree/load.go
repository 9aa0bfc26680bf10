package tree

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ezoic/sciforest/core/model"
	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/pkg/log"
	"github.com/ezoic/sciforest/predicate"
	"github.com/ezoic/sciforest/stats"
)

// defaultLambda is the L2 regularization of boosting steps when the
// boosting configuration omits it.
const defaultLambda = 1.0

// Boosting is the gradient boosting configuration of a tree that belongs
// to a boosted ensemble.
type Boosting struct {
	Iteration int `json:"iteration"`
	// Weight scales the tree's step when votes are summed.
	Weight float64 `json:"weight"`
	// ObjectiveClass is the class the tree scores in multiclass boosting.
	ObjectiveClass string   `json:"objective_class,omitempty"`
	Lambda         *float64 `json:"lambda,omitempty"`
}

// L2 returns the regularization term, defaulting to 1.
func (b *Boosting) L2() float64 {
	if b == nil || b.Lambda == nil {
		return defaultLambda
	}
	return *b.Lambda
}

type summaryJSON struct {
	Categories []fields.Count `json:"categories"`
	Counts     [][2]float64   `json:"counts"`
	Bins       [][2]float64   `json:"bins"`
	Median     *float64       `json:"median"`
	Minimum    *float64       `json:"minimum"`
	Maximum    *float64       `json:"maximum"`
}

type nodeJSON struct {
	ID                       *int              `json:"id"`
	Predicate                json.RawMessage   `json:"predicate"`
	Output                   json.RawMessage   `json:"output"`
	Count                    *float64          `json:"count"`
	Confidence               *float64          `json:"confidence"`
	Distribution             [][]interface{}   `json:"distribution"`
	ObjectiveSummary         *summaryJSON      `json:"objective_summary"`
	WeightedObjectiveSummary *summaryJSON      `json:"weighted_objective_summary"`
	Children                 []json.RawMessage `json:"children"`
	GSum                     *float64          `json:"g_sum"`
	HSum                     *float64          `json:"h_sum"`
}

type objectJSON struct {
	Resource        string    `json:"resource"`
	Name            string    `json:"name"`
	ObjectiveField  string    `json:"objective_field"`
	ObjectiveFields []string  `json:"objective_fields"`
	WeightField     string    `json:"weight_field"`
	Boosting        *Boosting `json:"boosting"`
	Model           struct {
		Root         json.RawMessage `json:"root"`
		Fields       fields.Table    `json:"fields"`
		Importance   []fields.Count  `json:"importance"`
		Distribution struct {
			Training *summaryJSON `json:"training"`
		} `json:"distribution"`
	} `json:"model"`
}

// LoadOption configures a Model at load time.
type LoadOption func(*Model)

// WithLogger sets the logger used while loading and by the model.
func WithLogger(l log.Logger) LoadOption {
	return func(m *Model) {
		m.logger = l
	}
}

// WithFields replaces the field table embedded in the model. Models that
// are parts of an ensemble are often stored without one.
func WithFields(t fields.Table) LoadOption {
	return func(m *Model) {
		m.fields = t
	}
}

// Load builds a Model from a model resource document or a bare model
// object.
func Load(data []byte, opts ...LoadOption) (*Model, error) {
	res, err := model.Decode(data)
	if err != nil {
		return nil, err
	}
	return LoadResource(res, opts...)
}

// ReadFile loads the model stored at path.
func ReadFile(path string, opts ...LoadOption) (*Model, error) {
	res, err := model.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadResource(res, opts...)
}

// LoadResource builds a Model from a decoded resource. Resources whose
// build did not finish are rejected before any node is built.
func LoadResource(res *model.Resource, opts ...LoadOption) (*Model, error) {
	const op = "tree.Load"
	if err := res.CheckFinished(); err != nil {
		return nil, err
	}
	var obj objectJSON
	if err := json.Unmarshal(res.Object, &obj); err != nil {
		return nil, scigoErrors.NewModelError(op, "invalid model object",
			scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	if len(obj.Model.Root) == 0 {
		return nil, scigoErrors.NewModelError(op, "model has no root node", scigoErrors.ErrMalformedModel)
	}

	m := &Model{
		id:       res.ID,
		name:     obj.Name,
		weighted: obj.WeightField != "",
		boosting: obj.Boosting,
		logger:   log.GetLoggerWithName("tree"),
	}
	if m.id == "" {
		m.id = obj.Resource
	}
	if obj.Model.Fields != nil {
		m.fields = obj.Model.Fields.WithIDs()
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With(log.ModelNameKey, m.id, log.ComponentKey, "tree")

	m.objective = obj.ObjectiveField
	if m.objective == "" && len(obj.ObjectiveFields) > 0 {
		m.objective = obj.ObjectiveFields[0]
	}

	kind := Plain
	if obj.Boosting != nil {
		kind = Boosted
	}
	b := &builder{
		tree: &Tree{
			kind:     kind,
			index:    map[int]int{},
			fields:   m.fields,
			weighted: m.weighted,
			lambda:   obj.Boosting.L2(),
		},
	}
	if _, err := b.build(obj.Model.Root, -1); err != nil {
		return nil, err
	}
	m.tree = b.tree
	if err := m.fields.Check(op, b.fieldIDs...); err != nil {
		return nil, err
	}

	if training := obj.Model.Distribution.Training; training != nil {
		m.rootDist = categories(training.Categories)
	} else if !m.tree.IsRegression() {
		m.rootDist = m.tree.Root().Distribution
	}
	m.classes = classNames(m)
	for _, imp := range obj.Model.Importance {
		m.importance = append(m.importance, Importance{Field: imp.Value, Score: imp.Count})
	}

	m.logger.Debug("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.NodesKey, m.tree.Len(),
		"kind", m.tree.kind.String(),
		"regression", m.tree.IsRegression(),
	)
	return m, nil
}

// builder assembles the arena in depth-first order.
type builder struct {
	tree     *Tree
	fieldIDs []string
}

func (b *builder) build(raw json.RawMessage, parent int) (int, error) {
	const op = "tree.Load"
	var nj nodeJSON
	if err := json.Unmarshal(raw, &nj); err != nil {
		return 0, scigoErrors.NewModelError(op, "invalid node", scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	if len(nj.Predicate) == 0 {
		return 0, scigoErrors.NewModelError(op, "node without predicate", scigoErrors.ErrMalformedModel)
	}
	if len(nj.Output) == 0 {
		return 0, scigoErrors.NewModelError(op, "node without output", scigoErrors.ErrMalformedModel)
	}

	idx := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, Node{ID: idx, Parent: parent})
	n := Node{ID: idx, Parent: parent}
	if nj.ID != nil {
		n.ID = *nj.ID
	}
	if _, dup := b.tree.index[n.ID]; dup {
		return 0, scigoErrors.NewModelError(op, fmt.Sprintf("duplicate node id %d", n.ID), scigoErrors.ErrMalformedModel)
	}
	b.tree.index[n.ID] = idx

	var rawPred interface{}
	if err := json.Unmarshal(nj.Predicate, &rawPred); err != nil {
		return 0, scigoErrors.NewModelError(op, "invalid predicate", scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	pred, err := predicate.Parse(rawPred)
	if err != nil {
		return 0, err
	}
	if pred == nil && parent >= 0 {
		return 0, scigoErrors.NewModelError(op, "always true predicate below the root", scigoErrors.ErrMalformedModel)
	}
	if pred != nil {
		b.fieldIDs = append(b.fieldIDs, pred.Field)
	}
	n.Predicate = pred

	var rawOutput interface{}
	if err := json.Unmarshal(nj.Output, &rawOutput); err != nil {
		return 0, scigoErrors.NewModelError(op, "invalid output", scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	output, ok := fields.FromInterface(rawOutput)
	if !ok || !output.IsValid() {
		return 0, scigoErrors.NewModelError(op, fmt.Sprintf("unsupported output %v", rawOutput), scigoErrors.ErrMalformedModel)
	}
	n.Output = output
	n.Confidence = nj.Confidence
	if nj.GSum != nil {
		n.GSum = *nj.GSum
	}
	if nj.HSum != nil {
		n.HSum = *nj.HSum
	}

	if err := b.distribution(&n, &nj); err != nil {
		return 0, err
	}
	if nj.Count != nil {
		n.Count = *nj.Count
	} else if n.Bins != nil {
		n.Count = stats.TotalPoints(n.Bins)
	} else {
		n.Count = stats.TotalCategories(n.Distribution)
	}

	regression := output.Kind() == fields.KindNumber
	for _, child := range nj.Children {
		c, err := b.build(child, idx)
		if err != nil {
			return 0, err
		}
		n.Children = append(n.Children, c)
		regression = regression && b.tree.nodes[c].Regression
	}
	n.Regression = regression

	if n.Regression && n.Bins != nil {
		if n.Median == nil {
			if median, ok := stats.Median(n.Bins, n.Count); ok {
				n.Median = &median
			}
		}
		if lo, hi, ok := stats.MinMax(n.Bins); ok {
			if n.Min == nil {
				n.Min = &lo
			}
			if n.Max == nil {
				n.Max = &hi
			}
		}
		if len(n.Bins) > b.tree.maxBins {
			b.tree.maxBins = len(n.Bins)
		}
	}
	if !n.Regression && n.Distribution != nil {
		if impurity, ok := stats.Gini(n.Distribution, n.Count); ok {
			n.Impurity = &impurity
		}
	}
	b.tree.nodes[idx] = n
	return idx, nil
}

// distribution reads the training distribution of a node from its
// objective summary, preferring the weighted summary in weighted models,
// or from the legacy distribution list.
func (b *builder) distribution(n *Node, nj *nodeJSON) error {
	summary := nj.ObjectiveSummary
	if b.tree.weighted && nj.WeightedObjectiveSummary != nil {
		summary = nj.WeightedObjectiveSummary
	}
	if summary != nil {
		n.Median, n.Min, n.Max = summary.Median, summary.Minimum, summary.Maximum
		switch {
		case summary.Categories != nil:
			n.Distribution, n.Unit = categories(summary.Categories), UnitCategories
		case summary.Bins != nil:
			n.Bins, n.Unit = points(summary.Bins), UnitBins
		case summary.Counts != nil:
			n.Bins, n.Unit = points(summary.Counts), UnitCounts
		}
		return nil
	}
	if nj.Distribution == nil {
		return nil
	}
	for _, pair := range nj.Distribution {
		if len(pair) != 2 {
			return scigoErrors.NewModelError("tree.Load", "distribution entries must be pairs", scigoErrors.ErrMalformedModel)
		}
		weight, ok := pair[1].(float64)
		if !ok {
			return scigoErrors.NewModelError("tree.Load", fmt.Sprintf("non numeric weight %v", pair[1]), scigoErrors.ErrMalformedModel)
		}
		switch v := pair[0].(type) {
		case float64:
			n.Bins = append(n.Bins, stats.Point{Value: v, Count: weight})
			n.Unit = UnitCounts
		default:
			value, _ := fields.FromInterface(v)
			n.Distribution = append(n.Distribution, stats.Category{Name: value.String(), Count: weight})
			n.Unit = UnitCategories
		}
	}
	return nil
}

func categories(counts []fields.Count) []stats.Category {
	out := make([]stats.Category, len(counts))
	for i, c := range counts {
		out[i] = stats.Category{Name: c.Value, Count: c.Count}
	}
	return out
}

func points(pairs [][2]float64) []stats.Point {
	out := make([]stats.Point, len(pairs))
	for i, p := range pairs {
		out[i] = stats.Point{Value: p[0], Count: p[1]}
	}
	return out
}

// classNames lists the objective classes in lexical order, taken from the
// objective field summary or else from the root distribution.
func classNames(m *Model) []string {
	if m.tree.IsRegression() && m.tree.kind == Plain {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if f, ok := m.fields[m.objective]; ok && f.Summary != nil {
		for _, c := range f.Summary.Categories {
			add(c.Value)
		}
	}
	for _, c := range m.rootDist {
		add(c.Name)
	}
	if m.boosting != nil && m.boosting.ObjectiveClass != "" {
		add(m.boosting.ObjectiveClass)
	}
	sort.Strings(names)
	return names
}
