package tree_test

import (
	"fmt"

	"github.com/ezoic/sciforest/fields"
	"github.com/ezoic/sciforest/result"
	"github.com/ezoic/sciforest/tree"
)

func ExampleModel_Predict() {
	m, err := tree.Load([]byte(`{
	  "objective_field": "000001",
	  "model": {
	    "fields": {
	      "000000": {"name": "age", "optype": "numeric"},
	      "000001": {"name": "group", "optype": "categorical"}
	    },
	    "root": {"predicate": true, "output": "old", "count": 12,
	      "objective_summary": {"categories": [["old", 7], ["young", 5]]},
	      "children": [
	        {"predicate": {"operator": "<", "field": "000000", "value": 30}, "output": "young", "count": 5,
	         "objective_summary": {"categories": [["young", 5]]}},
	        {"predicate": {"operator": ">=", "field": "000000", "value": 30}, "output": "old", "count": 7,
	         "objective_summary": {"categories": [["old", 7]]}}]}}}`))
	if err != nil {
		fmt.Println(err)
		return
	}

	r, err := m.Predict(fields.Input{"000000": fields.Number(25)}, tree.WithFlags(result.WithCount|result.WithPath))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(r.Prediction, *r.Count, r.Path)

	r, err = m.Predict(fields.Input{}, tree.WithMissingStrategy(tree.Proportional), tree.WithFlags(result.WithCount))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(r.Prediction, *r.Count)
	// Output:
	// young 5 [age < 30]
	// old 12
}
