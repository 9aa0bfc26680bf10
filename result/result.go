// Package result defines the prediction record returned to callers by
// single models, vote combinations and ensembles.
//
// The scoring core fills every field it can compute; the caller decides
// which optional keys are exposed by projecting the record with a Flags
// bitmask.
package result

import (
	"encoding/json"
	"math"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/stats"
)

// Flags selects the optional keys of a Result.
type Flags uint

// Projection flags.
const (
	WithConfidence Flags = 1 << iota
	WithProbability
	WithDistribution
	WithCount
	WithMedian
	WithMinMax
	WithNext
	WithUnusedFields
	WithPath
)

// Full exposes every optional key.
const Full = WithConfidence | WithProbability | WithDistribution | WithCount |
	WithMedian | WithMinMax | WithNext | WithUnusedFields | WithPath

// Has reports whether all of want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Result is a prediction with optional statistics.
type Result struct {
	Prediction fields.Value

	Confidence  *float64
	Probability *float64
	// Distribution is set for classification, Bins for regression.
	Distribution     []stats.Category
	Bins             []stats.Point
	DistributionUnit string
	Count            *float64
	Median           *float64
	Min              *float64
	Max              *float64
	// Next is the name of the field the tree would ask about next; it is
	// nil when the terminal node has no children.
	Next         *string
	UnusedFields []string
	Path         []string

	flags Flags
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Project returns a copy of r holding only the optional keys in flags.
func (r *Result) Project(flags Flags) *Result {
	out := &Result{Prediction: r.Prediction, flags: flags}
	if flags.Has(WithConfidence) {
		out.Confidence = r.Confidence
	}
	if flags.Has(WithProbability) {
		out.Probability = r.Probability
	}
	if flags.Has(WithDistribution) {
		out.Distribution = r.Distribution
		out.Bins = r.Bins
		out.DistributionUnit = r.DistributionUnit
	}
	if flags.Has(WithCount) {
		out.Count = r.Count
	}
	if flags.Has(WithMedian) {
		out.Median = r.Median
	}
	if flags.Has(WithMinMax) {
		out.Min = r.Min
		out.Max = r.Max
	}
	if flags.Has(WithNext) {
		out.Next = r.Next
	}
	if flags.Has(WithUnusedFields) {
		out.UnusedFields = r.UnusedFields
	}
	if flags.Has(WithPath) {
		out.Path = r.Path
	}
	return out
}

// Flags returns the projection r was built with.
func (r *Result) Flags() Flags {
	return r.flags
}

// MarshalJSON encodes the prediction and the projected keys. Infinite or
// undefined statistics are encoded as null.
func (r *Result) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"prediction": r.Prediction}
	put := func(flag Flags, key string, f *float64) {
		if r.flags.Has(flag) && f != nil {
			m[key] = jsonFloat(*f)
		}
	}
	put(WithConfidence, "confidence", r.Confidence)
	put(WithProbability, "probability", r.Probability)
	put(WithCount, "count", r.Count)
	put(WithMedian, "median", r.Median)
	put(WithMinMax, "min", r.Min)
	put(WithMinMax, "max", r.Max)
	if r.flags.Has(WithDistribution) {
		switch {
		case r.Bins != nil:
			pairs := make([][2]interface{}, len(r.Bins))
			for i, p := range r.Bins {
				pairs[i] = [2]interface{}{jsonFloat(p.Value), p.Count}
			}
			m["distribution"] = pairs
		case r.Distribution != nil:
			pairs := make([][2]interface{}, len(r.Distribution))
			for i, c := range r.Distribution {
				pairs[i] = [2]interface{}{c.Name, c.Count}
			}
			m["distribution"] = pairs
		}
		if r.DistributionUnit != "" {
			m["distribution_unit"] = r.DistributionUnit
		}
	}
	if r.flags.Has(WithNext) {
		m["next"] = r.Next
	}
	if r.flags.Has(WithUnusedFields) {
		m["unused_fields"] = r.UnusedFields
	}
	if r.flags.Has(WithPath) {
		m["path"] = r.Path
	}
	return json.Marshal(m)
}

func jsonFloat(f float64) interface{} {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return f
}
