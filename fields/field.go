// Package fields describes the field metadata table and the normalized input
// values consumed by the scoring core.
//
// The table is read-only: it is produced once when a model is loaded and
// shared by every prediction call. Inputs are keyed by field id and already
// normalized (type casting, affix stripping and missing tokens are handled
// upstream).
package fields

import (
	"encoding/json"
	"fmt"
	"sort"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// Optype is the operational type of a field.
type Optype string

// Supported optypes.
const (
	Numeric     Optype = "numeric"
	Categorical Optype = "categorical"
	Text        Optype = "text"
	Items       Optype = "items"
	Datetime    Optype = "datetime"
)

// Token modes for text fields.
const (
	TokensOnly    = "tokens_only"
	FullTermsOnly = "full_terms_only"
	AllTokens     = "all"
)

// Count pairs a category, term or item with its number of instances.
// It decodes from the two-element array form ["value", 12].
type Count struct {
	Value string
	Count float64
}

// UnmarshalJSON decodes ["value", count].
func (c *Count) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.fromPair(raw)
}

// UnmarshalYAML decodes [value, count].
func (c *Count) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return c.fromPair(raw)
}

func (c *Count) fromPair(raw []interface{}) error {
	if len(raw) != 2 {
		return fmt.Errorf("count pair must have 2 elements, got %d", len(raw))
	}
	v, ok := FromInterface(raw[0])
	if !ok {
		return fmt.Errorf("unsupported count value %v", raw[0])
	}
	n, ok := FromInterface(raw[1])
	f, isNum := n.Float()
	if !ok || !isNum {
		return fmt.Errorf("count must be numeric, got %v", raw[1])
	}
	c.Value = v.String()
	c.Count = f
	return nil
}

// Summary holds the training statistics of a field.
type Summary struct {
	Categories []Count             `json:"categories,omitempty" yaml:"categories,omitempty"`
	TagCloud   []Count             `json:"tag_cloud,omitempty" yaml:"tag_cloud,omitempty"`
	Items      []Count             `json:"items,omitempty" yaml:"items,omitempty"`
	TermForms  map[string][]string `json:"term_forms,omitempty" yaml:"term_forms,omitempty"`
	Minimum    *float64            `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum    *float64            `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Mean       *float64            `json:"mean,omitempty" yaml:"mean,omitempty"`
}

// TermAnalysis configures term matching on text fields.
type TermAnalysis struct {
	CaseSensitive bool   `json:"case_sensitive" yaml:"case_sensitive"`
	TokenMode     string `json:"token_mode,omitempty" yaml:"token_mode,omitempty"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
}

// ItemAnalysis configures item splitting on items fields.
type ItemAnalysis struct {
	Separator       string `json:"separator,omitempty" yaml:"separator,omitempty"`
	SeparatorRegexp string `json:"separator_regexp,omitempty" yaml:"separator_regexp,omitempty"`
}

// Field is the metadata of one field.
type Field struct {
	ID           string        `json:"-" yaml:"-"`
	Name         string        `json:"name" yaml:"name"`
	Optype       Optype        `json:"optype" yaml:"optype"`
	ColumnNumber int           `json:"column_number,omitempty" yaml:"column_number,omitempty"`
	Summary      *Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	TermAnalysis *TermAnalysis `json:"term_analysis,omitempty" yaml:"term_analysis,omitempty"`
	ItemAnalysis *ItemAnalysis `json:"item_analysis,omitempty" yaml:"item_analysis,omitempty"`
}

// TermForms returns the alternative forms registered for term.
func (f *Field) TermForms(term string) []string {
	if f.Summary == nil || f.Summary.TermForms == nil {
		return nil
	}
	return f.Summary.TermForms[term]
}

// Terms returns the term analysis options, defaulting to tokens_only and
// case insensitive matching.
func (f *Field) Terms() TermAnalysis {
	if f.TermAnalysis == nil {
		return TermAnalysis{TokenMode: TokensOnly}
	}
	ta := *f.TermAnalysis
	if ta.TokenMode == "" {
		ta.TokenMode = TokensOnly
	}
	return ta
}

// ItemOptions returns the item analysis options, defaulting to a single
// space separator.
func (f *Field) ItemOptions() ItemAnalysis {
	if f.ItemAnalysis == nil {
		return ItemAnalysis{Separator: " "}
	}
	ia := *f.ItemAnalysis
	if ia.Separator == "" {
		ia.Separator = " "
	}
	return ia
}

// Table maps field ids to their metadata.
type Table map[string]*Field

// Get returns the field with the given id.
func (t Table) Get(id string) (*Field, error) {
	f, ok := t[id]
	if !ok || f == nil {
		return nil, scigoErrors.NewFieldError("fields.Get", id)
	}
	return f, nil
}

// Name returns the field name, or the id itself when the field is unknown
// or unnamed.
func (t Table) Name(id string) string {
	if f, ok := t[id]; ok && f != nil && f.Name != "" {
		return f.Name
	}
	return id
}

// Optype returns the optype of id, or "" when unknown.
func (t Table) Optype(id string) Optype {
	if f, ok := t[id]; ok && f != nil {
		return f.Optype
	}
	return ""
}

// IDByName finds the id of the field called name.
func (t Table) IDByName(name string) (string, bool) {
	for id, f := range t {
		if f != nil && f.Name == name {
			return id, true
		}
	}
	return "", false
}

// IDs returns the field ids sorted by column number, then id.
func (t Table) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := t[ids[i]].ColumnNumber, t[ids[j]].ColumnNumber
		if ci != cj {
			return ci < cj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Check verifies every id is in the table.
func (t Table) Check(op string, ids ...string) error {
	for _, id := range ids {
		if _, err := t.Get(id); err != nil {
			return scigoErrors.NewModelError(op, fmt.Sprintf("field %q is not in the field table", id), scigoErrors.ErrMalformedModel)
		}
	}
	return nil
}
