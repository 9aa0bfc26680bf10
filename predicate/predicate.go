// Package predicate evaluates single split conditions of a decision tree.
//
// A Predicate tests one field of a normalized input: a numeric or string
// comparison, a membership test, or a term/item occurrence count for text
// and items fields. Predicates are immutable and Apply is a pure function of
// the predicate, the input and the field table, so they can be shared
// freely between concurrent prediction calls.
package predicate

import (
	"fmt"
	"strings"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// Operator is a comparison operator.
type Operator string

// Supported operators.
const (
	LT Operator = "<"
	LE Operator = "<="
	EQ Operator = "="
	NE Operator = "!="
	GE Operator = ">="
	GT Operator = ">"
	In Operator = "in"
)

// missingSuffix marks an operator whose branch also takes missing values.
const missingSuffix = "*"

// Predicate is a single condition on one field.
type Predicate struct {
	Operator Operator
	Field    string
	// Value is nil for "is missing" / "is not missing" tests.
	Value *fields.Value
	// Term is set for text and items predicates, which compare the number
	// of occurrences of Term against Value.
	Term    string
	HasTerm bool
	// Missing means the branch is also taken when Field is absent.
	Missing bool
}

// New builds a predicate, splitting a trailing "*" off the operator into
// the Missing flag.
func New(op string, field string, value *fields.Value) (*Predicate, error) {
	p := &Predicate{Field: field, Value: value}
	if strings.HasSuffix(op, missingSuffix) {
		p.Missing = true
		op = strings.TrimSuffix(op, missingSuffix)
	}
	switch Operator(op) {
	case LT, LE, EQ, NE, GE, GT, In:
		p.Operator = Operator(op)
	case "/=":
		p.Operator = NE
	default:
		return nil, scigoErrors.NewModelError("predicate.New", fmt.Sprintf("unknown operator %q", op), scigoErrors.ErrMalformedModel)
	}
	if p.Operator == In && (value == nil || value.Kind() != fields.KindList) {
		return nil, scigoErrors.NewModelError("predicate.New", "operator in requires a list value", scigoErrors.ErrMalformedModel)
	}
	return p, nil
}

// WithTerm returns a copy of p that counts occurrences of term.
func (p *Predicate) WithTerm(term string) *Predicate {
	c := *p
	c.Term = term
	c.HasTerm = true
	return &c
}

// Parse decodes the serialized form of a predicate: either the literal true
// (returned as a nil predicate, which always applies) or an object with
// "operator", "field", "value" and optional "term" keys.
func Parse(raw interface{}) (*Predicate, error) {
	switch t := raw.(type) {
	case bool:
		if t {
			return nil, nil
		}
		return nil, scigoErrors.NewModelError("predicate.Parse", "predicate false is not allowed", scigoErrors.ErrMalformedModel)
	case map[string]interface{}:
		op, ok := t["operator"].(string)
		if !ok {
			return nil, scigoErrors.NewModelError("predicate.Parse", "missing operator", scigoErrors.ErrMalformedModel)
		}
		field, ok := t["field"].(string)
		if !ok {
			return nil, scigoErrors.NewModelError("predicate.Parse", "missing field", scigoErrors.ErrMalformedModel)
		}
		var value *fields.Value
		v, ok := fields.FromInterface(t["value"])
		if !ok {
			return nil, scigoErrors.NewModelError("predicate.Parse", fmt.Sprintf("unsupported value %v", t["value"]), scigoErrors.ErrMalformedModel)
		}
		if v.IsValid() {
			value = &v
		}
		p, err := New(op, field, value)
		if err != nil {
			return nil, err
		}
		if term, ok := t["term"].(string); ok {
			if value == nil {
				return nil, scigoErrors.NewModelError("predicate.Parse", "term predicate without count", scigoErrors.ErrMalformedModel)
			}
			p = p.WithTerm(term)
		}
		return p, nil
	}
	return nil, scigoErrors.NewModelError("predicate.Parse", fmt.Sprintf("unsupported predicate %T", raw), scigoErrors.ErrMalformedModel)
}

// IsTrue reports whether p is the always-true root predicate.
func (p *Predicate) IsTrue() bool {
	return p == nil
}

// IsMissingTest reports whether p tests for presence or absence.
func (p *Predicate) IsMissingTest() bool {
	return p != nil && p.Value == nil && (p.Operator == EQ || p.Operator == NE)
}

// IsNegatedTerm reports whether a term predicate means "does not contain".
func (p *Predicate) IsNegatedTerm() bool {
	if p == nil || !p.HasTerm || p.Value == nil {
		return false
	}
	n, ok := p.Value.Float()
	if !ok {
		return false
	}
	return (p.Operator == LT && n <= 1) || (p.Operator == LE && n == 0)
}

// Equal reports whether two predicates express the same condition.
func (p *Predicate) Equal(o *Predicate) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Operator != o.Operator || p.Field != o.Field || p.Term != o.Term ||
		p.HasTerm != o.HasTerm || p.Missing != o.Missing {
		return false
	}
	if p.Value == nil || o.Value == nil {
		return p.Value == o.Value
	}
	return p.Value.Equal(*o.Value)
}
