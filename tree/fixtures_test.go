package tree

const ageModel = `{
  "resource": "model/age",
  "status": {"code": 5},
  "object": {
    "name": "age groups",
    "objective_field": "000001",
    "model": {
      "fields": {
        "000000": {"name": "age", "optype": "numeric", "column_number": 0},
        "000001": {"name": "group", "optype": "categorical", "column_number": 1,
                   "summary": {"categories": [["old", 7], ["young", 5]]}}
      },
      "distribution": {"training": {"categories": [["old", 7], ["young", 5]]}},
      "importance": [["000000", 1]],
      "root": {
        "id": 0, "predicate": true, "output": "old", "count": 12, "confidence": 0.31951,
        "objective_summary": {"categories": [["old", 7], ["young", 5]]},
        "children": [
          {"id": 1, "predicate": {"operator": "<", "field": "000000", "value": 30},
           "output": "young", "count": 5, "confidence": 0.56551,
           "objective_summary": {"categories": [["young", 5]]}},
          {"id": 2, "predicate": {"operator": ">=", "field": "000000", "value": 30},
           "output": "old", "count": 7, "confidence": 0.64567,
           "objective_summary": {"categories": [["old", 7]]}}
        ]
      }
    }
  }
}`

const priceModel = `{
  "resource": "model/price",
  "objective_field": "000002",
  "model": {
    "fields": {
      "000000": {"name": "age", "optype": "numeric", "column_number": 0},
      "000002": {"name": "price", "optype": "numeric", "column_number": 2}
    },
    "root": {
      "predicate": true, "output": 15, "count": 4, "confidence": 5,
      "objective_summary": {"counts": [[10, 2], [20, 2]]},
      "children": [
        {"predicate": {"operator": "<", "field": "000000", "value": 30},
         "output": 10, "count": 2, "confidence": 1,
         "objective_summary": {"counts": [[9, 1], [11, 1]]}},
        {"predicate": {"operator": ">=", "field": "000000", "value": 30},
         "output": 20, "count": 2, "confidence": 1,
         "objective_summary": {"counts": [[19, 1], [21, 1]]}}
      ]
    }
  }
}`

const legacyPriceModel = `{
  "objective_field": "000002",
  "model": {
    "fields": {
      "000000": {"name": "age", "optype": "numeric"},
      "000002": {"name": "price", "optype": "numeric"}
    },
    "root": {
      "predicate": true, "output": 15, "count": 4, "confidence": 5,
      "children": [
        {"predicate": {"operator": "<", "field": "000000", "value": 30}, "output": 10, "count": 2},
        {"predicate": {"operator": ">=", "field": "000000", "value": 30}, "output": 20, "count": 2}
      ]
    }
  }
}`

const boostedModel = `{
  "resource": "model/boosted",
  "objective_field": "000002",
  "boosting": {"iteration": 1, "weight": 0.1, "lambda": 1},
  "model": {
    "fields": {
      "000000": {"name": "age", "optype": "numeric"},
      "000002": {"name": "price", "optype": "numeric"}
    },
    "root": {
      "predicate": true, "output": -1.2, "count": 8, "g_sum": 6, "h_sum": 4,
      "children": [
        {"predicate": {"operator": "<", "field": "000000", "value": 30},
         "output": -1.33333, "count": 4, "g_sum": 4, "h_sum": 2},
        {"predicate": {"operator": ">=", "field": "000000", "value": 30},
         "output": -0.66667, "count": 4, "g_sum": 2, "h_sum": 2}
      ]
    }
  }
}`
