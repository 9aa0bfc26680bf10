// Package rule renders the predicates satisfied along a root-to-node walk
// as human readable explanations.
//
// The extended format keeps one clause per predicate in tree order. The
// brief format groups predicates by field, in first-seen order, and merges
// each group into a single clause: numeric bounds collapse to the tightest
// interval, categorical tests to one "is any of" / "is none of" clause and
// text tests to "contains" / "does not contain" lists.
package rule

import (
	"math"
	"strings"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/predicate"
)

// Path is an ordered list of satisfied predicates.
type Path []*predicate.Predicate

// Append returns the path extended with p. The always-true root predicate
// is skipped.
func (p Path) Append(pred *predicate.Predicate) Path {
	if pred == nil {
		return p
	}
	return append(p, pred)
}

// Rules renders each predicate of the path.
func (p Path) Rules(t fields.Table) []string {
	rules := make([]string, len(p))
	for i, pred := range p {
		rules[i] = pred.ToRule(t)
	}
	return rules
}

// Extended joins every predicate's rule with " and ".
func (p Path) Extended(t fields.Table) string {
	return strings.Join(p.Rules(t), " and ")
}

// Brief merges predicates per field and joins the merged clauses with " and ".
func (p Path) Brief(t fields.Table) string {
	var order []string
	groups := map[string][]*predicate.Predicate{}
	for _, pred := range p {
		if _, seen := groups[pred.Field]; !seen {
			order = append(order, pred.Field)
		}
		groups[pred.Field] = append(groups[pred.Field], pred)
	}
	clauses := make([]string, 0, len(order))
	for _, id := range order {
		clauses = append(clauses, MergeRules(groups[id], t))
	}
	return strings.Join(clauses, " and ")
}

// MergeRules summarizes predicates that all test the same field.
func MergeRules(preds []*predicate.Predicate, t fields.Table) string {
	if len(preds) == 0 {
		return ""
	}
	id := preds[0].Field
	name := t.Name(id)
	last := preds[len(preds)-1]

	if last.Operator == predicate.EQ && last.Value == nil {
		return name + " is missing"
	}
	var missing *bool
	if last.Operator == predicate.NE && last.Value == nil {
		if len(preds) == 1 {
			return name + " is not missing"
		}
		preds = preds[:len(preds)-1]
		no := false
		missing = &no
	}
	if last.Missing {
		yes := true
		missing = &yes
	}

	switch t.Optype(id) {
	case fields.Numeric, fields.Datetime:
		return mergeNumeric(preds, t, missing)
	case fields.Text, fields.Items:
		return mergeText(preds, t)
	case fields.Categorical:
		return mergeCategorical(preds, t, missing)
	}
	rules := make([]string, len(preds))
	for i, pred := range preds {
		rules[i] = pred.ToRule(t)
	}
	return strings.Join(rules, " and ")
}

func render(pred *predicate.Predicate, t fields.Table, missing *bool) string {
	if missing == nil {
		return pred.ToRule(t)
	}
	return pred.RuleWithMissing(t, *missing)
}

func mergeNumeric(preds []*predicate.Predicate, t fields.Table, missing *bool) string {
	var lower, upper *predicate.Predicate
	lowerValue, upperValue := math.Inf(-1), math.Inf(1)
	for _, pred := range preds {
		switch pred.Operator {
		case predicate.EQ, predicate.NE:
			return render(pred, t, missing)
		}
		if pred.Value == nil {
			continue
		}
		v, ok := pred.Value.Float()
		if !ok {
			continue
		}
		switch pred.Operator {
		case predicate.GT, predicate.GE:
			if v > lowerValue {
				lower, lowerValue = pred, v
			}
		case predicate.LT, predicate.LE:
			if v < upperValue {
				upper, upperValue = pred, v
			}
		}
	}
	switch {
	case lower != nil && upper != nil:
		var b strings.Builder
		b.WriteString(fields.FormatNumber(lowerValue))
		b.WriteString(" ")
		b.WriteString(string(predicate.ReverseOperator(lower.Operator)))
		b.WriteString(" ")
		b.WriteString(t.Name(lower.Field))
		b.WriteString(" ")
		b.WriteString(string(upper.Operator))
		b.WriteString(" ")
		b.WriteString(fields.FormatNumber(upperValue))
		if missing != nil && *missing {
			b.WriteString(" or missing")
		}
		return b.String()
	case lower != nil:
		return render(lower, t, missing)
	case upper != nil:
		return render(upper, t, missing)
	}
	return render(preds[0], t, missing)
}

func mergeText(preds []*predicate.Predicate, t fields.Table) string {
	var contains, notContains []*predicate.Predicate
	for _, pred := range preds {
		if pred.IsNegatedTerm() {
			notContains = append(notContains, pred)
		} else {
			contains = append(contains, pred)
		}
	}
	var b strings.Builder
	if len(contains) > 0 {
		terms := []string{contains[0].ToRule(t)}
		seen := map[string]bool{contains[0].Term: true}
		for _, pred := range contains[1:] {
			if !seen[pred.Term] {
				seen[pred.Term] = true
				terms = append(terms, pred.Term)
			}
		}
		b.WriteString(strings.Join(terms, " and "))
	}
	if len(notContains) > 0 {
		if b.Len() > 0 {
			b.WriteString(" and ")
		}
		terms := []string{notContains[0].ToRule(t)}
		seen := map[string]bool{notContains[0].Term: true}
		for _, pred := range notContains[1:] {
			if !seen[pred.Term] {
				seen[pred.Term] = true
				terms = append(terms, pred.Term)
			}
		}
		b.WriteString(strings.Join(terms, " or "))
	}
	return b.String()
}

func mergeCategorical(preds []*predicate.Predicate, t fields.Table, missing *bool) string {
	var equal, notEqual []string
	for _, pred := range preds {
		if pred.Value == nil {
			continue
		}
		values := []string{pred.Value.String()}
		if pred.Operator == predicate.In {
			values = values[:0]
			for _, item := range pred.Value.Items() {
				values = append(values, item.String())
			}
		}
		if pred.Operator == predicate.NE {
			notEqual = appendUnique(notEqual, values...)
		} else {
			equal = appendUnique(equal, values...)
		}
	}
	name := t.Name(preds[0].Field)
	var rule string
	switch {
	case len(equal) == 1:
		rule = name + " = " + equal[0]
	case len(equal) > 1:
		rule = name + " is any of " + strings.Join(equal, ", ")
	case len(notEqual) == 1:
		rule = name + " != " + notEqual[0]
	case len(notEqual) > 1:
		rule = name + " is none of " + strings.Join(notEqual, ", ")
	default:
		return render(preds[0], t, missing)
	}
	if missing != nil && *missing {
		rule += " or missing"
	}
	return rule
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
