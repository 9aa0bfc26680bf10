package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ezoic/sciforest/fields"
)

// relations renders the occurrence count of term predicates.
var relations = map[Operator]string{
	LT: "less than %s %s",
	LE: "no more than %s %s",
	EQ: "exactly %s %s",
	NE: "other than %s %s",
	GE: "at least %s %s",
	GT: "more than %s %s",
}

// ReverseOperator mirrors an ordering operator, as used when a bound is
// written on the left of the field name.
func ReverseOperator(op Operator) Operator {
	switch op {
	case LT:
		return GT
	case LE:
		return GE
	case GT:
		return LT
	case GE:
		return LE
	}
	return op
}

// ToRule renders p as a human readable condition, e.g. "age < 30",
// "review contains great more than 2 times" or "color is missing".
func (p *Predicate) ToRule(t fields.Table) string {
	return p.RuleWithMissing(t, p != nil && p.Missing)
}

// RuleWithMissing renders p, appending " or missing" when missing is set
// regardless of p.Missing.
func (p *Predicate) RuleWithMissing(t fields.Table, missing bool) string {
	if p == nil {
		return "TRUE"
	}
	orMissing := ""
	if missing {
		orMissing = " or missing"
	}
	name := t.Name(p.Field)

	if p.HasTerm {
		full := p.isFullTerm(t)
		parts := []string{name}
		if p.IsNegatedTerm() {
			if full {
				parts = append(parts, "is not equal to", p.Term)
			} else {
				parts = append(parts, "does not contain", p.Term)
			}
		} else {
			if full {
				parts = append(parts, "is equal to", p.Term)
			} else {
				parts = append(parts, "contains", p.Term)
				if suffix := p.countSuffix(); suffix != "" {
					parts = append(parts, suffix)
				}
			}
		}
		return strings.Join(parts, " ") + orMissing
	}

	if p.Value == nil {
		if p.Operator == EQ {
			return name + " is missing"
		}
		return name + " is not missing"
	}
	return fmt.Sprintf("%s %s %s%s", name, p.Operator, p.Value.String(), orMissing)
}

func (p *Predicate) countSuffix() string {
	n, ok := p.Value.Float()
	if !ok {
		return ""
	}
	if p.Operator == GT && n == 0 {
		return ""
	}
	format, ok := relations[p.Operator]
	if !ok {
		return ""
	}
	return fmt.Sprintf(format, fields.FormatNumber(n), plural("time", n))
}

func plural(word string, n float64) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func (p *Predicate) isFullTerm(t fields.Table) bool {
	f, ok := t[p.Field]
	if !p.HasTerm || !ok || f == nil || f.Optype != fields.Text {
		return false
	}
	opts := f.Terms()
	switch opts.TokenMode {
	case fields.FullTermsOnly:
		return true
	case fields.AllTokens:
		return fullTermPattern.MatchString(p.Term)
	}
	return false
}

// ToLispRule renders p as a Flatline s-expression.
func (p *Predicate) ToLispRule(t fields.Table) string {
	if p == nil {
		return "true"
	}
	field := strconv.Quote(p.Field)
	if p.HasTerm {
		count := p.Value.String()
		if t.Optype(p.Field) == fields.Items {
			return fmt.Sprintf("(%s (if (contains-items? %s %s) 1 0) %s)",
				p.Operator, field, strconv.Quote(p.Term), count)
		}
		caseInsensitive := "true"
		language := ""
		if f, ok := t[p.Field]; ok && f != nil {
			opts := f.Terms()
			if opts.CaseSensitive {
				caseInsensitive = "false"
			}
			if opts.Language != "" {
				language = " " + strconv.Quote(opts.Language)
			}
		}
		return fmt.Sprintf("(%s (occurrences (f %s) %s %s%s) %s)",
			p.Operator, field, strconv.Quote(p.Term), caseInsensitive, language, count)
	}
	if p.Value == nil {
		if p.Operator == EQ {
			return fmt.Sprintf("(missing? %s)", field)
		}
		return fmt.Sprintf("(not (missing? %s))", field)
	}
	var rule string
	if p.Operator == In {
		clauses := make([]string, 0, len(p.Value.Items()))
		for _, item := range p.Value.Items() {
			clauses = append(clauses, fmt.Sprintf("(= (f %s) %s)", field, lispLiteral(item)))
		}
		rule = "(or " + strings.Join(clauses, " ") + ")"
	} else {
		rule = fmt.Sprintf("(%s (f %s) %s)", p.Operator, field, lispLiteral(*p.Value))
	}
	if p.Missing {
		rule = fmt.Sprintf("(or (missing? %s) %s)", field, rule)
	}
	return rule
}

func lispLiteral(v fields.Value) string {
	if _, ok := v.Float(); ok {
		return v.String()
	}
	return strconv.Quote(v.String())
}

// String renders p with field ids in place of names.
func (p *Predicate) String() string {
	return p.ToRule(nil)
}
