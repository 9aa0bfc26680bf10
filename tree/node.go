// Package tree scores inputs against decision trees.
//
// A tree is loaded once from its JSON form into an arena of nodes whose
// parent and child links are arena indices; it is never mutated
// afterwards, so one Model may serve concurrent predictions.
//
// Two traversal strategies handle inputs missing a split field.
// LastPrediction stops at the deepest node reached and returns its
// prediction. Proportional follows every branch below a split on a missing
// field and merges what the reached leaves predict. Plain trees merge leaf
// distributions; boosted trees merge their gradient statistics and return a
// Newton step instead.
package tree

import (
	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/predicate"
	"github.com/ezoic/sciforest/stats"
)

// Kind tells plain trees from boosted ones.
type Kind int

const (
	// Plain trees predict from their training distributions.
	Plain Kind = iota
	// Boosted trees predict gradient boosting steps.
	Boosted
)

func (k Kind) String() string {
	if k == Boosted {
		return "boosted"
	}
	return "plain"
}

// Distribution units.
const (
	UnitCategories = "categories"
	UnitCounts     = "counts"
	UnitBins       = "bins"
)

// Node is one node of a tree arena.
type Node struct {
	ID int
	// Parent is the arena index of the parent node, -1 at the root.
	Parent   int
	Children []int
	// Predicate is nil at the root, which is always true.
	Predicate *predicate.Predicate

	Output     fields.Value
	Count      float64
	Confidence *float64

	// Distribution holds classification weights, Bins regression weights.
	Distribution []stats.Category
	Bins         []stats.Point
	Unit         string

	Median *float64
	Min    *float64
	Max    *float64
	// Impurity is the Gini impurity of classification nodes.
	Impurity *float64

	// Regression is set when the node and its whole subtree predict numbers.
	Regression bool

	GSum float64
	HSum float64
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is an immutable arena of nodes, the root at index 0.
type Tree struct {
	kind   Kind
	nodes  []Node
	index  map[int]int
	fields fields.Table
	// maxBins is the largest regression distribution in the tree; zero
	// when the tree carries no regression distributions.
	maxBins  int
	weighted bool
	lambda   float64
}

// Kind returns whether t is plain or boosted.
func (t *Tree) Kind() Kind {
	return t.kind
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return &t.nodes[0]
}

// Node returns the node with the given id.
func (t *Tree) Node(id int) (*Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.nodes[i], true
}

// IsRegression reports whether the root predicts numbers.
func (t *Tree) IsRegression() bool {
	return t.nodes[0].Regression
}

// MaxBins returns the largest regression distribution size in the tree.
func (t *Tree) MaxBins() int {
	return t.maxBins
}

// Parent returns the parent of n, or nil at the root.
func (t *Tree) Parent(n *Node) *Node {
	if n.Parent < 0 {
		return nil
	}
	return &t.nodes[n.Parent]
}

// splitField is the field tested by the children of n.
func (t *Tree) splitField(n *Node) string {
	for _, c := range n.Children {
		if p := t.nodes[c].Predicate; p != nil {
			return p.Field
		}
	}
	return ""
}
