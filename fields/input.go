package fields

import (
	"sort"
	"strconv"
	"strings"
)

// InputFromMap builds a normalized Input out of decoded JSON or YAML values
// keyed by field id or field name. Keys that match no field are returned as
// unused, sorted. Null values are dropped as missing.
func InputFromMap(t Table, raw map[string]interface{}) (Input, []string) {
	in := Input{}
	var unused []string
	for key, x := range raw {
		id := key
		if _, ok := t[id]; !ok {
			var found bool
			if id, found = t.IDByName(key); !found {
				unused = append(unused, key)
				continue
			}
		}
		v, ok := FromInterface(x)
		if !ok || !v.IsValid() {
			continue
		}
		if f := t[id]; f.Optype == Numeric {
			if s, isStr := v.Str(); isStr {
				if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					v = Number(n)
				}
			}
		}
		in[id] = v
	}
	sort.Strings(unused)
	return in, unused
}

// UnusedFields returns the ids of in that are not in the table, sorted.
func UnusedFields(t Table, in Input) []string {
	var unused []string
	for id := range in {
		if _, ok := t[id]; !ok {
			unused = append(unused, id)
		}
	}
	sort.Strings(unused)
	return unused
}
