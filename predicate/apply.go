package predicate

import (
	"regexp"
	"strings"

	"github.com/ezoic/sciforest/fields"
)

var fullTermPattern = regexp.MustCompile(`^.+\b.+$`)

// Apply reports whether the input satisfies the predicate. A nil predicate
// always applies.
//
// When the field is absent, the branch is taken only if the predicate is
// flagged Missing or tests "= null". Term predicates see an absent field as
// zero occurrences, so they follow the "does not contain" branch.
func (p *Predicate) Apply(in fields.Input, t fields.Table) bool {
	if p == nil {
		return true
	}
	v, present := in[p.Field]
	present = present && v.IsValid()

	if !present {
		if p.HasTerm {
			return p.Missing || compare(fields.Number(0), p.Operator, *p.Value)
		}
		// "!= null" on an absent field is not true by itself: only the
		// missing flag sends the input down this branch.
		return p.Missing || (p.Operator == EQ && p.Value == nil)
	}
	if p.Value == nil {
		return p.Operator == NE
	}
	if p.HasTerm {
		f := t[p.Field]
		count := p.count(v, f)
		return compare(fields.Number(float64(count)), p.Operator, *p.Value)
	}
	if p.Operator == In {
		return p.Value.Contains(v) || containsLoose(*p.Value, v)
	}
	return compare(v, p.Operator, *p.Value)
}

func (p *Predicate) count(v fields.Value, f *fields.Field) int {
	if f != nil && f.Optype == fields.Items {
		return itemCount(v, p.Term, f.ItemOptions())
	}
	var forms []string
	opts := fields.TermAnalysis{TokenMode: fields.TokensOnly}
	if f != nil {
		forms = f.TermForms(p.Term)
		opts = f.Terms()
	}
	return TermCount(v, append([]string{p.Term}, forms...), opts)
}

// TermCount counts the occurrences of any of forms in v. forms[0] is the
// term itself and the rest its alternative forms.
func TermCount(v fields.Value, forms []string, opts fields.TermAnalysis) int {
	if len(forms) == 0 {
		return 0
	}
	if v.Kind() == fields.KindTerms {
		return countTerms(v.TermCounts(), forms, opts.CaseSensitive)
	}
	text, ok := v.Str()
	if !ok {
		text = v.String()
	}
	first := forms[0]
	switch {
	case opts.TokenMode == fields.FullTermsOnly:
		return fullTerm(text, first, opts.CaseSensitive)
	case opts.TokenMode == fields.AllTokens && len(forms) == 1 && fullTermPattern.MatchString(first):
		return fullTerm(text, first, opts.CaseSensitive)
	}
	return termMatches(text, forms, opts.CaseSensitive)
}

func countTerms(tcs []fields.TermCount, forms []string, caseSensitive bool) int {
	total := 0
	for _, tc := range tcs {
		for _, form := range forms {
			if tc.Term == form || (!caseSensitive && strings.EqualFold(tc.Term, form)) {
				total += tc.Count
				break
			}
		}
	}
	return total
}

func fullTerm(text, term string, caseSensitive bool) int {
	if !caseSensitive {
		text = strings.ToLower(text)
		term = strings.ToLower(term)
	}
	if text == term {
		return 1
	}
	return 0
}

func termMatches(text string, forms []string, caseSensitive bool) int {
	quoted := make([]string, len(forms))
	for i, form := range forms {
		quoted[i] = regexp.QuoteMeta(form)
	}
	expr := `(\b|_)` + strings.Join(quoted, `(\b|_)|(\b|_)`) + `(\b|_)`
	if !caseSensitive {
		expr = `(?i)` + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

func itemCount(v fields.Value, item string, opts fields.ItemAnalysis) int {
	if v.Kind() == fields.KindTerms {
		return countTerms(v.TermCounts(), []string{item}, true)
	}
	text, ok := v.Str()
	if !ok {
		text = v.String()
	}
	sep := opts.SeparatorRegexp
	if sep == "" {
		sep = regexp.QuoteMeta(opts.Separator)
	}
	re, err := regexp.Compile(`(^|` + sep + `)` + regexp.QuoteMeta(item) + `($|` + sep + `)`)
	if err != nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

// compare applies op between the input value x and the predicate value y.
// Values of different kinds are compared through their rendered form for
// equality and never satisfy an ordering.
func compare(x fields.Value, op Operator, y fields.Value) bool {
	cmp, ok := x.Compare(y)
	if !ok {
		if x.IsValid() && y.IsValid() {
			eq := x.String() == y.String()
			switch op {
			case EQ:
				return eq
			case NE:
				return !eq
			}
		}
		return false
	}
	switch op {
	case LT:
		return cmp < 0
	case LE:
		return cmp <= 0
	case EQ:
		return cmp == 0
	case NE:
		return cmp != 0
	case GE:
		return cmp >= 0
	case GT:
		return cmp > 0
	}
	return false
}

func containsLoose(list, x fields.Value) bool {
	s := x.String()
	for _, item := range list.Items() {
		if item.String() == s {
			return true
		}
	}
	return false
}
