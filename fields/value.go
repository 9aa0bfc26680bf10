package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the representation held by a Value.
type Kind int

const (
	// KindNumber holds a float64 (numeric and datetime-derived fields).
	KindNumber Kind = iota + 1
	// KindString holds a string (categorical fields, raw text or items).
	KindString
	// KindTerms holds term or item counts already extracted from text.
	KindTerms
	// KindList holds a collection, used by "in" predicates.
	KindList
)

// TermCount is the number of occurrences of a term in a text or items field.
type TermCount struct {
	Term  string `json:"term" yaml:"term"`
	Count int    `json:"count" yaml:"count"`
}

// Value is a typed scalar from a normalized input map or a predicate.
// The zero Value is invalid and never matches anything.
type Value struct {
	kind  Kind
	num   float64
	str   string
	terms []TermCount
	list  []Value
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Terms returns a term-count Value.
func Terms(tc ...TermCount) Value { return Value{kind: KindTerms, terms: tc} }

// List returns a collection Value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Kind returns the representation of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds anything.
func (v Value) IsValid() bool { return v.kind != 0 }

// Float returns the numeric content of v.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Str returns the string content of v.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// TermCounts returns the term counts of v.
func (v Value) TermCounts() []TermCount {
	return v.terms
}

// Items returns the elements of a list Value.
func (v Value) Items() []Value {
	return v.list
}

// Equal reports whether both values have the same kind and content.
// Numbers compare by value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindTerms:
		if len(v.terms) != len(o.terms) {
			return false
		}
		for i := range v.terms {
			if v.terms[i] != o.terms[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers or two strings. ok is false for any other pair.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	switch {
	case v.kind == KindNumber && o.kind == KindNumber:
		switch {
		case v.num < o.num:
			return -1, true
		case v.num > o.num:
			return 1, true
		}
		return 0, true
	case v.kind == KindString && o.kind == KindString:
		return strings.Compare(v.str, o.str), true
	}
	return 0, false
}

// Contains reports whether a list Value holds x.
func (v Value) Contains(x Value) bool {
	for _, item := range v.list {
		if item.Equal(x) {
			return true
		}
	}
	return false
}

// String renders v the way rules print values: numbers in their shortest
// form, strings verbatim, lists comma separated.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	case KindTerms:
		parts := make([]string, len(v.terms))
		for i, tc := range v.terms {
			parts[i] = fmt.Sprintf("%s:%d", tc.Term, tc.Count)
		}
		return strings.Join(parts, ", ")
	}
	return "<invalid>"
}

// FormatNumber prints f without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FromInterface converts a decoded JSON or YAML scalar into a Value.
// A nil input yields an invalid Value and ok=true; unsupported types yield ok=false.
func FromInterface(x interface{}) (Value, bool) {
	switch t := x.(type) {
	case nil:
		return Value{}, true
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String()), true
		}
		return Number(f), true
	case string:
		return String(t), true
	case bool:
		return String(strconv.FormatBool(t)), true
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			item, ok := FromInterface(e)
			if !ok || !item.IsValid() {
				return Value{}, false
			}
			items = append(items, item)
		}
		return List(items...), true
	}
	return Value{}, false
}

// Input is a normalized input map keyed by field id.
type Input map[string]Value

// Has reports whether id is present with a valid value.
func (in Input) Has(id string) bool {
	v, ok := in[id]
	return ok && v.IsValid()
}

// MarshalJSON encodes numbers and strings as JSON scalars, lists as arrays
// and term counts as an object of term to count.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		return json.Marshal(v.list)
	case KindTerms:
		m := make(map[string]int, len(v.terms))
		for _, tc := range v.terms {
			m[tc.Term] += tc.Count
		}
		return json.Marshal(m)
	}
	return []byte("null"), nil
}
